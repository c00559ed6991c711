package dcs

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Loader reads server definitions from an XML file tree and registers them.
// Definitions come from a root file plus any files it pulls in through
// Include elements.
type Loader struct {
	logger   *logrus.Logger
	registry *Registry
	ports    PortMap

	bindAddress string
	backlog     int
	includeDir  string
}

// NewLoader returns a Loader that registers parsed definitions into the
// given registry. portOffset is applied to every listen and command port
// read from the files.
func NewLoader(logger *logrus.Logger, registry *Registry, portOffset int) *Loader {
	return &Loader{
		logger:   logger,
		registry: registry,
		ports:    PortMap{Offset: portOffset},
	}
}

// SetIncludeDir sets the directory searched for include targets before
// falling back to the including file's directory. The root file's
// includeDir attribute overrides it.
func (l *Loader) SetIncludeDir(dir string) {
	l.includeDir = dir
}

// BindAddress returns the bindAddress attribute of the root file, or ""
// when unset.
func (l *Loader) BindAddress() string { return l.bindAddress }

// Backlog returns the backlog attribute of the root file, or 0 when unset.
func (l *Loader) Backlog() int { return l.backlog }

// PortOffset returns the effective port offset, after any portOffset
// override in the root file.
func (l *Loader) PortOffset() int { return l.ports.Offset }

// Load parses the given file and its includes, registering every server
// definition found. Duplicate names within a single load pass are skipped
// with a debug entry; duplicates against already-registered servers follow
// the registry's first-wins rule.
func (l *Loader) Load(path string) error {
	seen := make(map[string]bool)
	if err := l.loadFile(path, 0, seen); err != nil {
		return err
	}
	l.logger.Infof("loaded %d server definition(s) from %s", len(seen), path)
	return nil
}

func (l *Loader) loadFile(path string, depth int, seen map[string]bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open server definition file: %w", err)
	}
	defer f.Close()

	selfPath := canonicalPath(path)
	parentDir := filepath.Dir(path)

	// A document's own definitions register before anything it includes,
	// wherever the Include elements sit in the file. Under first-wins
	// registration an including file always overrides its includes.
	var servers []xmlServer
	var includes []xmlInclude

	d := xml.NewDecoder(f)
	rootSeen := false
	for {
		tok, err := d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("parse %s: %w", path, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !rootSeen {
			if start.Name.Local != "DCServerConfig" {
				return fmt.Errorf("parse %s: unexpected root element <%s>", path, start.Name.Local)
			}
			rootSeen = true
			if depth == 0 {
				l.readRootAttrs(start)
			}
			continue
		}

		switch start.Name.Local {
		case "Include":
			var inc xmlInclude
			if err := d.DecodeElement(&inc, &start); err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
			includes = append(includes, inc)
		case "DCServer":
			var srv xmlServer
			if err := d.DecodeElement(&srv, &start); err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
			servers = append(servers, srv)
		default:
			if err := d.Skip(); err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if !rootSeen {
		return fmt.Errorf("parse %s: missing DCServerConfig root element", path)
	}

	for _, srv := range servers {
		l.registerServer(srv, seen)
	}
	for _, inc := range includes {
		if err := l.loadInclude(inc, parentDir, selfPath, depth, seen); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) readRootAttrs(start xml.StartElement) {
	for _, attr := range start.Attr {
		val := strings.TrimSpace(attr.Value)
		switch attr.Name.Local {
		case "bindAddress":
			l.bindAddress = val
		case "backlog":
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				l.backlog = n
			}
		case "portOffset":
			if n, err := strconv.Atoi(val); err == nil {
				l.ports.Offset = n
			}
		case "includeDir":
			l.includeDir = val
		}
	}
}

// loadInclude resolves and loads a referenced file. The guard against
// recursive includes is intentionally shallow: a file including itself is
// detected by canonical-path comparison and skipped, but longer cycles
// (a includes b includes a) will recurse until the stack gives out. The
// definition files are curated configuration, not untrusted input.
func (l *Loader) loadInclude(inc xmlInclude, parentDir, selfPath string, depth int, seen map[string]bool) error {
	file := strings.TrimSpace(inc.File)
	if file == "" {
		l.logger.Warn("include with blank file attribute skipped")
		return nil
	}
	target := l.resolveInclude(parentDir, strings.TrimSpace(inc.Dir), file)
	if target == "" {
		if parseBoolAttr(inc.Optional, false) {
			l.logger.Debugf("optional include not found, skipping: %s", file)
			return nil
		}
		return fmt.Errorf("include file not found: %s", file)
	}
	if canonicalPath(target) == selfPath {
		l.logger.Warnf("file includes itself, skipping: %s", target)
		return nil
	}
	return l.loadFile(target, depth+1, seen)
}

// resolveInclude picks the first existing candidate for an include target.
func (l *Loader) resolveInclude(parentDir, dir, file string) string {
	var candidates []string
	if dir != "" {
		if filepath.IsAbs(dir) {
			candidates = append(candidates, filepath.Join(dir, file))
		} else {
			candidates = append(candidates, filepath.Join(parentDir, dir, file))
		}
	}
	if l.includeDir != "" {
		candidates = append(candidates, filepath.Join(l.includeDir, file))
	}
	candidates = append(candidates, filepath.Join(parentDir, file))

	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c
		}
	}
	return ""
}

func canonicalPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func (l *Loader) registerServer(srv xmlServer, seen map[string]bool) {
	name := strings.TrimSpace(srv.Name)
	if name == "" {
		l.logger.Warn("server definition with blank name skipped")
		return
	}
	if !parseBoolAttr(srv.Active, true) {
		l.logger.Debugf("inactive server definition skipped: %s", name)
		return
	}
	if seen[name] {
		l.logger.Debugf("duplicate server definition in load pass skipped: %s", name)
		return
	}
	seen[name] = true

	cfg := l.buildServer(name, srv)
	l.registry.Register(cfg)
}

func (l *Loader) buildServer(name string, srv xmlServer) *ServerConfig {
	flags, protocol := parseProtocolAttr(srv.Protocol)
	flags |= parseAttributeFlags(srv.Attributes)

	var tcpPorts, udpPorts []int
	for _, lp := range srv.ListenPorts {
		if t := l.parsePortList(name, "tcpPort", lp.TCPPort); t != nil {
			tcpPorts = append(tcpPorts, t...)
		}
		if u := l.parsePortList(name, "udpPort", lp.UDPPort); u != nil {
			udpPorts = append(udpPorts, u...)
		}
	}

	cfg := NewServerConfig(name, strings.TrimSpace(srv.Description),
		tcpPorts, udpPorts, 0, flags, splitCommaList(srv.UniqueIDPrefix)...)
	cfg.SetCommandProtocol(protocol)
	cfg.SetModelNames(splitCommaList(srv.ModelNames))

	for _, props := range srv.Properties {
		for _, p := range props.Property {
			key := strings.TrimSpace(p.Key)
			if key == "" {
				l.logger.Warnf("[%s] property with blank key skipped", name)
				continue
			}
			cfg.SetProperty(key, strings.TrimSpace(p.Value))
		}
	}

	if srv.EventCodeMap != nil {
		cfg.SetEventCodeMap(
			parseBoolAttr(srv.EventCodeMap.Enabled, true),
			l.parseEventCodes(name, srv.EventCodeMap.Codes))
	}

	if srv.Commands != nil {
		l.applyCommands(name, cfg, srv.Commands)
	}
	return cfg
}

// parsePortList parses a comma-separated port attribute and applies the
// port offset. Any invalid entry voids the whole list.
func (l *Loader) parsePortList(serverName, attrName, raw string) []int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			l.logger.Warnf("[%s] invalid %s entry %q, dropping port list", serverName, attrName, part)
			return nil
		}
		p := l.ports.Port(n)
		if !IsValidPort(p) {
			l.logger.Warnf("[%s] %s %d out of range after offset, dropping port list", serverName, attrName, p)
			return nil
		}
		out = append(out, p)
	}
	return out
}

func (l *Loader) parseEventCodes(serverName string, codes []xmlEventCode) map[int]EventCode {
	out := make(map[int]EventCode, len(codes))
	for _, c := range codes {
		key, err := parseIntText(c.Key)
		if err != nil || key < 0 {
			l.logger.Warnf("[%s] event code with invalid key %q skipped", serverName, c.Key)
			continue
		}
		out[key] = EventCode{
			Code:       key,
			StatusCode: parseStatusCodeValue(strings.TrimSpace(c.Value)),
			Data:       strings.TrimSpace(c.Data),
		}
	}
	return out
}

// parseStatusCodeValue interprets the text of a Code entry. Blank or
// "ignore" drops matching events, "default"/"none" keeps the decoder's
// status code; anything else must parse as a status code value.
func parseStatusCodeValue(val string) int {
	switch strings.ToLower(val) {
	case "", "ignore":
		return StatusIgnore
	case "default", "none":
		return StatusNone
	}
	n, err := parseIntText(val)
	if err != nil || n < 0 {
		return StatusIgnore
	}
	if n == 0 {
		return StatusNone
	}
	return n
}

func (l *Loader) applyCommands(serverName string, cfg *ServerConfig, cmds *xmlCommands) {
	cfg.SetCommandDispatcherHost(strings.TrimSpace(cmds.DispatchHost))
	if cmds.DispatchPort != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(cmds.DispatchPort)); err == nil && n > 0 {
			p := l.ports.Port(n)
			if IsValidPort(p) {
				cfg.SetCommandDispatcherPort(p)
			} else {
				l.logger.Warnf("[%s] dispatch port %d out of range after offset", serverName, p)
			}
		} else {
			l.logger.Warnf("[%s] invalid dispatchPort %q", serverName, cmds.DispatchPort)
		}
	}
	cfg.SetCommandsACLName(strings.TrimSpace(cmds.ACLName))

	for _, xc := range cmds.Command {
		if !parseBoolAttr(xc.Enabled, true) {
			continue
		}
		cmdName := strings.TrimSpace(xc.Name)
		if cmdName == "" {
			l.logger.Warnf("[%s] command with blank name skipped", serverName)
			continue
		}

		var cmdStr, cmdProto string
		if xc.String != nil {
			cmdStr = xc.String.Value
			cmdProto = strings.TrimSpace(xc.String.Protocol)
		}
		acl := strings.TrimSpace(xc.ACLName)
		if acl == "" {
			acl = cfg.DefaultCommandACL(cmdName)
		}
		statusCode := 0
		if sc := strings.TrimSpace(xc.StatusCode); sc != "" {
			if n, err := parseIntText(sc); err == nil && n > 0 {
				statusCode = n
			}
		}

		cmd := NewCommand(cmdName, strings.TrimSpace(xc.Description),
			splitCommaList([]string{xc.Type}), acl, cmdStr,
			parseBoolAttr(xc.HasArgs, false), cmdProto,
			parseBoolAttr(xc.ExpectAck, false), statusCode)
		for _, a := range xc.Arg {
			cmd.Args = append(cmd.Args, CommandArg{
				Name:        strings.TrimSpace(a.Name),
				Description: strings.TrimSpace(a.Value),
				Save:        parseBoolAttr(a.Save, false),
			})
		}
		if err := cfg.AddCommand(cmd); err != nil {
			l.logger.Warnf("[%s] %v", serverName, err)
		}
	}
}

// parseIntText accepts decimal and 0x-prefixed hex, the forms the event
// code maps use.
func parseIntText(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := strconv.ParseInt(s[2:], 16, 32)
		return int(n), err
	}
	n, err := strconv.ParseInt(s, 10, 32)
	return int(n), err
}

func parseBoolAttr(s string, dft bool) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return dft
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return dft
	}
	return b
}

// splitCommaList flattens comma-separated element values into one list.
// The "<blank>" placeholder survives as a literal token; prefix
// normalization turns it into the empty prefix later.
func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
	}
	return out
}

func parseProtocolAttr(raw string) (Flags, string) {
	var flags Flags
	first := ""
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "tcp":
			flags |= FlagTCP
		case "udp":
			flags |= FlagUDP
		case "sms":
		default:
			continue
		}
		if first == "" {
			first = part
		}
	}
	return flags, first
}

func parseAttributeFlags(raw string) Flags {
	var flags Flags
	for _, part := range strings.Split(raw, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "vehicle":
			flags |= FlagVehicleMount
		case "inputs":
			flags |= FlagHasInputs
		case "outputs":
			flags |= FlagHasOutputs
		}
	}
	return flags
}

// XML schema types for the server definition files.

type xmlInclude struct {
	Dir      string `xml:"dir,attr"`
	File     string `xml:"file,attr"`
	Optional string `xml:"optional,attr"`
	// Accepted but ignored; only the root document may set the offset.
	PortOffset string `xml:"portOffset,attr"`
}

type xmlServer struct {
	Name           string           `xml:"name,attr"`
	Protocol       string           `xml:"protocol,attr"`
	Active         string           `xml:"active,attr"`
	Description    string           `xml:"Description"`
	Attributes     string           `xml:"Attributes"`
	ModelNames     []string         `xml:"ModelNames"`
	UniqueIDPrefix []string         `xml:"UniqueIDPrefix"`
	ListenPorts    []xmlListenPorts `xml:"ListenPorts"`
	Properties     []xmlProperties  `xml:"Properties"`
	EventCodeMap   *xmlEventCodeMap `xml:"EventCodeMap"`
	Commands       *xmlCommands     `xml:"Commands"`
}

type xmlListenPorts struct {
	TCPPort string `xml:"tcpPort,attr"`
	UDPPort string `xml:"udpPort,attr"`
}

type xmlProperties struct {
	Property []xmlProperty `xml:"Property"`
}

type xmlProperty struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type xmlEventCodeMap struct {
	Enabled string         `xml:"enabled,attr"`
	Codes   []xmlEventCode `xml:"Code"`
}

type xmlEventCode struct {
	Key   string `xml:"key,attr"`
	Data  string `xml:"data,attr"`
	Value string `xml:",chardata"`
}

type xmlCommands struct {
	DispatchHost string       `xml:"dispatchHost,attr"`
	DispatchPort string       `xml:"dispatchPort,attr"`
	ACLName      string       `xml:"AclName"`
	Command      []xmlCommand `xml:"Command"`
}

type xmlCommand struct {
	Enabled     string            `xml:"enabled,attr"`
	Name        string            `xml:"name,attr"`
	HasArgs     string            `xml:"hasArgs,attr"`
	ExpectAck   string            `xml:"expectAck,attr"`
	Type        string            `xml:"Type"`
	Description string            `xml:"Description"`
	ACLName     string            `xml:"AclName"`
	String      *xmlCommandString `xml:"String"`
	StatusCode  string            `xml:"StatusCode"`
	Arg         []xmlCommandArg   `xml:"Arg"`
}

type xmlCommandString struct {
	Protocol string `xml:"protocol,attr"`
	Value    string `xml:",chardata"`
}

type xmlCommandArg struct {
	Name  string `xml:"name,attr"`
	Save  string `xml:"save,attr"`
	Value string `xml:",chardata"`
}
