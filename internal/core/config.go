package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains all of the configuration options available to any of
// fleetgrid's components.
type Config struct {
	// Hostname or IP address on which listeners will bind. Blank binds to
	// all available interfaces.
	Hostname string `mapstructure:"hostname"`
	// Pending-connection backlog hint passed to device listeners.
	ListenBacklog int `mapstructure:"listen_backlog"`
	// Offset added to every raw port number declared in the server
	// definition file. Applied once, at load time.
	PortOffset int `mapstructure:"port_offset"`
	// Path to the device communication server definition file. Relative
	// paths resolve against the config directory.
	ServerDefinitionFile string `mapstructure:"server_definition_file"`
	// Directory searched for files referenced by <Include> directives.
	IncludeDir string `mapstructure:"include_dir"`

	Logging struct {
		// Full path to file to which logs will be written. Blank will write to stdout.
		LogFilePath string `mapstructure:"log_file_path"`
		// Minimum level of a log required to be written. Options: debug, info, warn, error
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"logging"`

	Web struct {
		// Port for the diagnostics/metrics HTTP API. Zero disables it.
		HTTPPort int `mapstructure:"http_port"`
	} `mapstructure:"web"`

	Database struct {
		// Database engine; either "sqlite" or "postgres".
		Engine string `mapstructure:"engine"`
		// Hostname of the Postgres database instance.
		Host string `mapstructure:"host"`
		// Port on which the Postgres instance is accepting connections.
		Port int `mapstructure:"port"`
		// Name of the database.
		Name string `mapstructure:"name"`
		// Username and password of a user with full RW privileges to ${name}.
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		// Set to verify-full if the Postgres instance supports SSL.
		SSLMode string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	Dispatch struct {
		// Connect/read timeout (in seconds) for command dispatch calls.
		TimeoutSec int `mapstructure:"timeout_sec"`
	} `mapstructure:"dispatch"`

	Debugging struct {
		// Log the raw command request/response lines.
		WireLoggingEnabled bool `mapstructure:"wire_logging_enabled"`
		// Enable database-level query logging.
		DatabaseLoggingEnabled bool `mapstructure:"database_logging_enabled"`
	} `mapstructure:"debugging"`

	configDir string
}

const envVarPrefix = "FLEETGRID"

// LoadConfig initializes Viper with the contents of the config file under configPath.
func LoadConfig(configPath string) *Config {
	viper.AddConfigPath(configPath)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix(envVarPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("port_offset", 1000)
	viper.SetDefault("server_definition_file", "dcservers.xml")
	viper.SetDefault("logging.log_level", "info")
	viper.SetDefault("database.engine", "sqlite")
	viper.SetDefault("dispatch.timeout_sec", 10)

	if err := viper.ReadInConfig(); err != nil {
		if errors.Is(err, viper.ConfigFileNotFoundError{}) {
			fmt.Printf("error reading config file: no config file in path %s", configPath)
		} else {
			fmt.Printf("error reading config file: %v", err)
		}
		os.Exit(1)
	}

	// This allows us to set nested yaml config options through environment
	// variables. For example, database.host can be set using: <envVarPrefix>_DATABASE_HOST
	for _, k := range viper.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := viper.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			fmt.Printf("error binding %s to %s", k, envVarPrefix+"_"+envVar)
			os.Exit(1)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		fmt.Printf("error unmarshaling config object: %v", err)
		os.Exit(1)
	}
	config.configDir = filepath.Dir(viper.ConfigFileUsed())
	return config
}

const databaseURITemplate = "host=%s port=%d dbname=%s user=%s password=%s sslmode=%s"

// DatabaseURL returns a database URL generated from the provided config values.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		databaseURITemplate,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Username,
		c.Database.Password,
		c.Database.SSLMode,
	)
}

// QualifiedPath returns filename resolved against the config directory, so
// that relative paths in the config file behave the same regardless of the
// working directory.
func (c *Config) QualifiedPath(filename string) string {
	if filename == "" || filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(c.configDir, filename)
}

// ServerDefinitionPath returns the resolved path of the server definition file.
func (c *Config) ServerDefinitionPath() string {
	return c.QualifiedPath(c.ServerDefinitionFile)
}

// DispatchTimeout returns the configured command dispatch timeout.
func (c *Config) DispatchTimeout() time.Duration {
	return time.Duration(c.Dispatch.TimeoutSec) * time.Second
}
