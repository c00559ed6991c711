// Convenience tool for inspecting the parsed server definition files
// without starting any listeners.
package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fleetgrid/fleetgrid/internal/core"
	"github.com/fleetgrid/fleetgrid/internal/dcs"
	"github.com/fleetgrid/fleetgrid/internal/servers/testserver"
)

var (
	VerboseFlag bool
	AllFlag     bool
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Lists the servers declared in the definition files",
	Run:   ServersCommand,
}

// quietLogger keeps loader diagnostics out of the tool output.
func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func loadRegistry(config *core.Config) (*dcs.Registry, error) {
	registry := dcs.NewRegistry(quietLogger())
	loader := dcs.NewLoader(quietLogger(), registry, config.PortOffset)
	if config.IncludeDir != "" {
		loader.SetIncludeDir(config.QualifiedPath(config.IncludeDir))
	}
	if err := loader.Load(config.ServerDefinitionPath()); err != nil {
		return nil, err
	}
	if registry.Has(testserver.ServerName) {
		registry.MarkImplemented(testserver.ServerName)
	}
	return registry, nil
}

func ServersCommand(cmd *cobra.Command, args []string) {
	config := core.LoadConfig(ConfigFlag)
	registry, err := loadRegistry(config)
	if err != nil {
		fmt.Println("error loading server definitions:", err)
		return
	}

	title := cases.Title(language.English)
	for _, server := range registry.List(AllFlag) {
		fmt.Println(server.String())
		if desc := server.Description(); desc != "" && desc != title.String(desc) {
			fmt.Printf("  display name: %s\n", title.String(desc))
		}
		fmt.Printf("  prefixes: %s\n", strings.Join(quoteAll(server.UniquePrefixes()), ", "))
		if names := server.ModelNames(); len(names) > 0 {
			fmt.Printf("  models: %s\n", strings.Join(names, ", "))
		}
		if server.SupportsCommandDispatch() {
			fmt.Printf("  command channel: %s:%d\n",
				server.CommandDispatcherHost(), server.CommandDispatcherPort())
		}
		if names := server.CommandNames(); len(names) > 0 {
			fmt.Printf("  commands: %s\n", strings.Join(names, ", "))
		}
		if VerboseFlag {
			spew.Dump(server)
		}
	}

	if registry.HasMissing() {
		fmt.Println("referenced but not defined:", strings.Join(registry.MissingList(), ", "))
	}
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}
