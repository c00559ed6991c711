package dcs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fleetgrid/fleetgrid/internal/core/prop"
)

// CommandProtocol is the transport used to reach the physical device with a
// relayed command. This is distinct from the dispatch channel itself, which
// is always a line-oriented TCP exchange with the DCS process.
type CommandProtocol int

const (
	ProtocolUDP CommandProtocol = iota
	ProtocolTCP
	ProtocolSMS
)

func (p CommandProtocol) String() string {
	switch p {
	case ProtocolTCP:
		return "tcp"
	case ProtocolSMS:
		return "sms"
	default:
		return "udp"
	}
}

// ParseCommandProtocol maps a protocol name to its enum value. The second
// return value is false for unrecognized names.
func ParseCommandProtocol(s string) (CommandProtocol, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "udp":
		return ProtocolUDP, true
	case "tcp":
		return ProtocolTCP, true
	case "sms":
		return ProtocolSMS, true
	default:
		return ProtocolUDP, false
	}
}

// Capability flags advertised by a server definition.
type Flags uint32

const (
	FlagNone         Flags = 0
	FlagVehicleMount Flags = 1 << 0
	FlagHasInputs    Flags = 1 << 1
	FlagHasOutputs   Flags = 1 << 2
	FlagTCP          Flags = 1 << 3
	FlagUDP          Flags = 1 << 4

	FlagStdVehicle  = FlagVehicleMount | FlagHasInputs | FlagHasOutputs | FlagTCP | FlagUDP
	FlagStdPersonal = FlagTCP | FlagUDP
)

// Normalized status codes used by event-code translation.
const (
	// StatusIgnore marks a raw event code whose events are dropped.
	StatusIgnore = -1
	// StatusNone leaves the decoder's default status code in place.
	StatusNone = 0
)

// EventCode is one entry of a server's raw-code translation map.
type EventCode struct {
	Code       int
	StatusCode int
	Data       string
}

// DataString returns the entry's data-interpretation hint, or dft when none
// was configured.
func (e EventCode) DataString(dft string) string {
	if strings.TrimSpace(e.Data) == "" {
		return dft
	}
	return e.Data
}

// DataInt returns the data hint parsed as an integer, or dft when the hint
// is absent or non-numeric.
func (e EventCode) DataInt(dft int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(e.Data), 10, 64)
	if err != nil {
		return dft
	}
	return v
}

// CommandArg describes one accepted argument of a command.
type CommandArg struct {
	Name        string
	Description string
	Save        bool
}

// Command is one entry of a server's command table.
type Command struct {
	Name          string
	Description   string
	Types         []string
	ACLName       string
	CommandString string
	Protocol      string
	ExpectAck     bool
	StatusCode    int
	Args          []CommandArg

	hasArgs bool
}

// CommandTypeAll is the wildcard command type; a blank type matches it.
const CommandTypeAll = "all"

// Command types recognized by the admin surfaces.
const (
	CommandTypeMap      = "map"
	CommandTypeAdmin    = "admin"
	CommandTypeGarmin   = "garmin"
	CommandTypeSysadmin = "sysadmin"
)

// IsCommandTypeAll reports whether the given type selects every command.
func IsCommandTypeAll(t string) bool {
	return strings.TrimSpace(t) == "" || strings.EqualFold(t, CommandTypeAll)
}

// NewCommand builds a Command, inferring hasArgs when the wire string
// contains a ${...} placeholder.
func NewCommand(
	name, desc string,
	types []string,
	aclName, cmdString string,
	hasArgs bool,
	protocol string,
	expectAck bool,
	statusCode int,
) *Command {
	if types == nil {
		types = []string{}
	}
	if statusCode <= 0 {
		statusCode = StatusNone
	}
	return &Command{
		Name:          strings.TrimSpace(name),
		Description:   strings.TrimSpace(desc),
		Types:         types,
		ACLName:       strings.TrimSpace(aclName),
		CommandString: cmdString,
		Protocol:      strings.TrimSpace(protocol),
		ExpectAck:     expectAck,
		StatusCode:    statusCode,
		hasArgs:       hasArgs || strings.Contains(cmdString, "${"),
	}
}

// IsType reports whether the command is tagged with the given type.
func (c *Command) IsType(t string) bool {
	for _, ct := range c.Types {
		if strings.EqualFold(ct, t) {
			return true
		}
	}
	return false
}

// HasArgs reports whether the command accepts arguments.
func (c *Command) HasArgs() bool {
	return c.hasArgs
}

// CommandProtocol returns the command's protocol override, or dft when the
// command does not specify one (or specifies an unrecognized one).
func (c *Command) CommandProtocol(dft CommandProtocol) CommandProtocol {
	if c.Protocol == "" {
		return dft
	}
	if p, ok := ParseCommandProtocol(c.Protocol); ok {
		return p
	}
	return dft
}

// ExpandedCommandString substitutes ${arg} and ${arg0}..${arg3} placeholders
// in the wire string with values from args. Missing arguments expand to the
// empty string.
func (c *Command) ExpandedCommandString(args []string) string {
	if !c.hasArgs {
		return c.CommandString
	}
	argAt := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	out := strings.ReplaceAll(c.CommandString, "${arg}", argAt(0))
	for i := 0; i < 4; i++ {
		out = strings.ReplaceAll(out, fmt.Sprintf("${arg%d}", i), argAt(i))
	}
	return out
}

// ServerConfig describes one device communication server: its listen ports,
// unique-id prefixes, property overrides, event-code translation map, and
// command table. Instances are built by the loader (or programmatically) and
// are treated as immutable once registered.
type ServerConfig struct {
	name        string
	description string

	tcpPorts []int
	udpPorts []int

	uniquePrefixes []string
	modelNames     []string

	eventCodeEnabled bool
	eventCodes       map[int]EventCode

	commandHost     string
	commandPort     int
	protocol        CommandProtocol
	commandsACLName string
	commandOrder    []string
	commands        map[string]*Command

	flags Flags
	props *prop.Properties
}

// NewServerConfig builds a ServerConfig from programmatic registration
// values. Ports are expected to already have the port offset applied.
func NewServerConfig(
	name, desc string,
	tcpPorts, udpPorts []int,
	commandPort int,
	flags Flags,
	uniquePrefixes ...string,
) *ServerConfig {
	s := &ServerConfig{
		name:             strings.TrimSpace(name),
		description:      strings.TrimSpace(desc),
		eventCodeEnabled: true,
		flags:            flags,
		props:            prop.New(),
	}
	s.SetTCPPorts(tcpPorts)
	s.SetUDPPorts(udpPorts)
	s.SetCommandDispatcherPort(commandPort)
	s.SetUniquePrefixes(uniquePrefixes)
	return s
}

// Name returns the server's unique name.
func (s *ServerConfig) Name() string { return s.name }

// Description returns the server's human-readable description.
func (s *ServerConfig) Description() string { return s.description }

// SetDescription updates the server's description.
func (s *ServerConfig) SetDescription(d string) { s.description = strings.TrimSpace(d) }

// SetTCPPorts replaces the TCP listen-port list.
func (s *ServerConfig) SetTCPPorts(ports []int) {
	s.tcpPorts = copyPorts(ports)
}

// SetUDPPorts replaces the UDP listen-port list.
func (s *ServerConfig) SetUDPPorts(ports []int) {
	s.udpPorts = copyPorts(ports)
}

// TCPPorts returns the TCP listen ports, post-offset.
func (s *ServerConfig) TCPPorts() []int { return copyPorts(s.tcpPorts) }

// UDPPorts returns the UDP listen ports, post-offset.
func (s *ServerConfig) UDPPorts() []int { return copyPorts(s.udpPorts) }

// ListenPorts returns the union of TCP and UDP listen ports, TCP first,
// without duplicates.
func (s *ServerConfig) ListenPorts() []int {
	out := copyPorts(s.tcpPorts)
	for _, u := range s.udpPorts {
		seen := false
		for _, p := range out {
			if p == u {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, u)
		}
	}
	return out
}

func copyPorts(ports []int) []int {
	if len(ports) == 0 {
		return nil
	}
	out := make([]int, len(ports))
	copy(out, ports)
	return out
}

// SetUniquePrefixes replaces the unique-id prefix list, normalizing the
// "<blank>" and "*" placeholders to the empty prefix and stripping a
// trailing "*" from wildcard-style entries.
func (s *ServerConfig) SetUniquePrefixes(prefixes []string) {
	if len(prefixes) == 0 {
		s.uniquePrefixes = []string{""}
		return
	}
	out := make([]string, len(prefixes))
	for i, p := range prefixes {
		p = strings.TrimSpace(p)
		switch {
		case p == "<blank>" || p == "*":
			p = ""
		case strings.HasSuffix(p, "*"):
			p = p[:len(p)-1]
		}
		out[i] = p
	}
	s.uniquePrefixes = out
}

// UniquePrefixes returns the prefix list tried when resolving a raw modem
// id reported to this server. The list is never empty; an unconfigured
// server matches the bare modem id.
func (s *ServerConfig) UniquePrefixes() []string {
	if len(s.uniquePrefixes) == 0 {
		return []string{""}
	}
	out := make([]string, len(s.uniquePrefixes))
	copy(out, s.uniquePrefixes)
	return out
}

// SetModelNames records the device model names this server claims to
// support. The list is carried through from the definition file for
// display and future routing use; nothing acts on it yet.
func (s *ServerConfig) SetModelNames(names []string) {
	out := names[:0:0]
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	s.modelNames = out
}

// ModelNames returns the declared device model names, possibly empty.
func (s *ServerConfig) ModelNames() []string {
	out := make([]string, len(s.modelNames))
	copy(out, s.modelNames)
	return out
}

// SetEventCodeMap replaces the raw-code translation map.
func (s *ServerConfig) SetEventCodeMap(enabled bool, codes map[int]EventCode) {
	s.eventCodeEnabled = enabled
	s.eventCodes = codes
}

// EventCodeEnabled reports whether event-code translation is active.
func (s *ServerConfig) EventCodeEnabled() bool { return s.eventCodeEnabled }

// EventCode returns the translation entry for a raw code. The second return
// value is false when translation is disabled or the code is unmapped.
func (s *ServerConfig) EventCode(code int) (EventCode, bool) {
	if !s.eventCodeEnabled {
		return EventCode{}, false
	}
	ec, ok := s.eventCodes[code]
	return ec, ok
}

// TranslateStatusCode maps a raw protocol event code to a normalized status
// code, returning dft when no mapping applies.
func (s *ServerConfig) TranslateStatusCode(code int, dft int) int {
	if ec, ok := s.EventCode(code); ok {
		return ec.StatusCode
	}
	return dft
}

// SetCommandDispatcherHost sets the host of the server's command channel.
func (s *ServerConfig) SetCommandDispatcherHost(host string) {
	s.commandHost = strings.TrimSpace(host)
}

// CommandDispatcherHost returns the host of the server's command channel,
// defaulting to localhost when unset (the DCS processes conventionally run
// alongside the admin application).
func (s *ServerConfig) CommandDispatcherHost() string {
	if s.commandHost != "" {
		return s.commandHost
	}
	return "localhost"
}

// SetCommandDispatcherPort sets the port of the server's command channel.
// A non-positive port means command dispatch is not supported.
func (s *ServerConfig) SetCommandDispatcherPort(port int) {
	if port < 0 {
		port = 0
	}
	s.commandPort = port
}

// CommandDispatcherPort returns the command channel port, or 0 when the
// server has no command support.
func (s *ServerConfig) CommandDispatcherPort() int { return s.commandPort }

// SupportsCommandDispatch reports whether the server exposes a command
// channel.
func (s *ServerConfig) SupportsCommandDispatch() bool { return s.commandPort > 0 }

// SetCommandProtocol sets the device-reaching protocol from its name;
// unrecognized names fall back to UDP.
func (s *ServerConfig) SetCommandProtocol(name string) {
	s.protocol, _ = ParseCommandProtocol(name)
}

// CommandProtocol returns the device-reaching protocol; UDP when
// unspecified.
func (s *ServerConfig) CommandProtocol() CommandProtocol { return s.protocol }

// SetCommandsACLName sets the default ACL name for the command table.
func (s *ServerConfig) SetCommandsACLName(acl string) {
	s.commandsACLName = strings.TrimSpace(acl)
}

// CommandsACLName returns the command table's default ACL name.
func (s *ServerConfig) CommandsACLName() string { return s.commandsACLName }

// DefaultCommandACL derives the ACL name for a command that does not carry
// its own override.
func (s *ServerConfig) DefaultCommandACL(cmdName string) string {
	if s.commandsACLName == "" {
		return cmdName
	}
	return s.commandsACLName + ":" + cmdName
}

// AddCommand appends a command to the server's command table. A blank name
// or a name already present is rejected.
func (s *ServerConfig) AddCommand(cmd *Command) error {
	if cmd == nil || cmd.Name == "" {
		return fmt.Errorf("blank command name")
	}
	if _, ok := s.commands[cmd.Name]; ok {
		return fmt.Errorf("command already defined: %s", cmd.Name)
	}
	if s.commands == nil {
		s.commands = make(map[string]*Command)
	}
	s.commandOrder = append(s.commandOrder, cmd.Name)
	s.commands[cmd.Name] = cmd
	return nil
}

// Command returns the named command, or nil when undefined.
func (s *ServerConfig) Command(name string) *Command {
	return s.commands[name]
}

// CommandNames returns the command table's names in definition order.
func (s *ServerConfig) CommandNames() []string {
	out := make([]string, len(s.commandOrder))
	copy(out, s.commandOrder)
	return out
}

// CommandsOfType returns the commands matching the given type, in definition
// order. Commands with neither a description nor a wire string are skipped,
// mirroring what the admin surfaces display.
func (s *ServerConfig) CommandsOfType(t string) []*Command {
	var out []*Command
	for _, name := range s.commandOrder {
		cmd := s.commands[name]
		if !IsCommandTypeAll(t) && !cmd.IsType(t) {
			continue
		}
		if cmd.Description == "" && cmd.CommandString == "" {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

// Flags returns the server's capability flags.
func (s *ServerConfig) Flags() Flags { return s.flags }

// HasDigitalInputs reports whether devices on this server expose digital
// inputs.
func (s *ServerConfig) HasDigitalInputs() bool { return s.flags&FlagHasInputs != 0 }

// HasDigitalOutputs reports whether devices on this server expose digital
// outputs.
func (s *ServerConfig) HasDigitalOutputs() bool { return s.flags&FlagHasOutputs != 0 }

// SetProperty stores a property override. Keys are namespaced with the
// server name ("<name>.<key>") unless already prefixed.
func (s *ServerConfig) SetProperty(key, value string) {
	if strings.TrimSpace(key) == "" {
		return
	}
	s.props.Set(s.normalizeKey(key), value)
}

// PropString returns the named property, or dft when unset. The key may be
// given with or without the server-name prefix.
func (s *ServerConfig) PropString(key, dft string) string {
	return s.props.Get(s.normalizeKey(key), dft)
}

// PropInt returns the named property parsed as an int, or dft.
func (s *ServerConfig) PropInt(key string, dft int) int {
	v := s.props.Get(s.normalizeKey(key), "")
	if v == "" {
		return dft
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return dft
	}
	return n
}

// PropBool returns the named property parsed as a bool, or dft.
func (s *ServerConfig) PropBool(key string, dft bool) bool {
	v := s.props.Get(s.normalizeKey(key), "")
	if v == "" {
		return dft
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return dft
	}
	return b
}

// PropKeys returns the namespaced property keys in definition order.
func (s *ServerConfig) PropKeys() []string {
	return s.props.Keys()
}

func (s *ServerConfig) normalizeKey(key string) string {
	pfx := s.name + "."
	if strings.HasPrefix(key, pfx) {
		return key
	}
	return pfx + key
}

// String renders the server the way diagnostics tools display it:
// "(name) Description [TCP=.. UDP=..]".
func (s *ServerConfig) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%s) %s [", s.name, s.description)
	hasTCP := len(s.tcpPorts) > 0
	hasUDP := len(s.udpPorts) > 0
	switch {
	case !hasTCP && !hasUDP:
		sb.WriteString("no-ports")
	default:
		if hasTCP {
			sb.WriteString("TCP=" + joinPorts(s.tcpPorts))
		}
		if hasTCP && hasUDP {
			sb.WriteByte(' ')
		}
		if hasUDP {
			sb.WriteString("UDP=" + joinPorts(s.udpPorts))
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

func joinPorts(ports []int) string {
	strs := make([]string, len(ports))
	for i, p := range ports {
		strs[i] = strconv.Itoa(p)
	}
	return strings.Join(strs, ",")
}
