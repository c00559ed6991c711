package dcs

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSetUniquePrefixes(t *testing.T) {
	tests := []struct {
		name     string
		prefixes []string
		expected []string
	}{
		{
			name:     "empty list defaults to blank prefix",
			prefixes: nil,
			expected: []string{""},
		},
		{
			name:     "blank placeholder",
			prefixes: []string{"tk_", "<blank>"},
			expected: []string{"tk_", ""},
		},
		{
			name:     "star placeholder",
			prefixes: []string{"*"},
			expected: []string{""},
		},
		{
			name:     "trailing star stripped",
			prefixes: []string{"imei_*"},
			expected: []string{"imei_"},
		},
		{
			name:     "whitespace trimmed",
			prefixes: []string{" tk_ "},
			expected: []string{"tk_"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServerConfig("tk10x", "Test", nil, nil, 0, FlagNone, tt.prefixes...)
			if diff := cmp.Diff(tt.expected, s.UniquePrefixes()); diff != "" {
				t.Errorf("unexpected prefixes (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListenPortsUnion(t *testing.T) {
	s := NewServerConfig("tk10x", "Test", []int{31200, 31201}, []int{31200, 31272}, 0, FlagNone)
	expected := []int{31200, 31201, 31272}
	if diff := cmp.Diff(expected, s.ListenPorts()); diff != "" {
		t.Errorf("unexpected port union (-want +got):\n%s", diff)
	}
}

func TestPropertyNamespacing(t *testing.T) {
	s := NewServerConfig("tk10x", "Test", nil, nil, 0, FlagNone)
	s.SetProperty("minimumSpeedKPH", "4.5")
	s.SetProperty("tk10x.simulateGeozones", "true")

	if got := s.PropString("minimumSpeedKPH", ""); got != "4.5" {
		t.Errorf("expected bare key lookup to find value, got %q", got)
	}
	if got := s.PropString("tk10x.minimumSpeedKPH", ""); got != "4.5" {
		t.Errorf("expected qualified key lookup to find value, got %q", got)
	}
	if !s.PropBool("simulateGeozones", false) {
		t.Error("expected already-qualified key to be stored as-is")
	}
	expected := []string{"tk10x.minimumSpeedKPH", "tk10x.simulateGeozones"}
	if diff := cmp.Diff(expected, s.PropKeys()); diff != "" {
		t.Errorf("unexpected property keys (-want +got):\n%s", diff)
	}
}

func TestPropertyTypedGetters(t *testing.T) {
	s := NewServerConfig("tk10x", "Test", nil, nil, 0, FlagNone)
	s.SetProperty("maxAccuracyMeters", "250")
	s.SetProperty("brokenInt", "abc")

	if got := s.PropInt("maxAccuracyMeters", -1); got != 250 {
		t.Errorf("expected 250, got %d", got)
	}
	if got := s.PropInt("brokenInt", -1); got != -1 {
		t.Errorf("expected default for unparsable int, got %d", got)
	}
	if got := s.PropInt("missing", 7); got != 7 {
		t.Errorf("expected default for missing key, got %d", got)
	}
}

func TestTranslateStatusCode(t *testing.T) {
	s := NewServerConfig("tk10x", "Test", nil, nil, 0, FlagNone)
	s.SetEventCodeMap(true, map[int]EventCode{
		0xF020: {Code: 0xF020, StatusCode: 0xF113},
		0xF030: {Code: 0xF030, StatusCode: StatusIgnore},
	})

	if got := s.TranslateStatusCode(0xF020, StatusNone); got != 0xF113 {
		t.Errorf("expected mapped code 0xF113, got 0x%X", got)
	}
	if got := s.TranslateStatusCode(0xF030, StatusNone); got != StatusIgnore {
		t.Errorf("expected ignore marker, got %d", got)
	}
	if got := s.TranslateStatusCode(0xF999, 0xF112); got != 0xF112 {
		t.Errorf("expected default for unmapped code, got 0x%X", got)
	}

	s.SetEventCodeMap(false, map[int]EventCode{
		0xF020: {Code: 0xF020, StatusCode: 0xF113},
	})
	if got := s.TranslateStatusCode(0xF020, StatusNone); got != StatusNone {
		t.Errorf("expected default when map disabled, got 0x%X", got)
	}
}

func TestCommandTable(t *testing.T) {
	s := NewServerConfig("tk10x", "Test", nil, nil, 31050, FlagNone)
	s.SetCommandsACLName("acl.dcs.tk10x")

	locate := NewCommand("Locate", "Request location", []string{"map"}, "", "AT+LOCATE", false, "", false, 0)
	output := NewCommand("SetOutput", "Set output", []string{"admin"}, "acl.custom", "AT+OUT=${arg}", false, "tcp", true, 0)
	if err := s.AddCommand(locate); err != nil {
		t.Fatalf("unexpected error adding command: %v", err)
	}
	if err := s.AddCommand(output); err != nil {
		t.Fatalf("unexpected error adding command: %v", err)
	}

	if err := s.AddCommand(NewCommand("Locate", "dup", nil, "", "", false, "", false, 0)); err == nil {
		t.Error("expected duplicate command name to be rejected")
	}
	if err := s.AddCommand(NewCommand("", "blank", nil, "", "", false, "", false, 0)); err == nil {
		t.Error("expected blank command name to be rejected")
	}

	if diff := cmp.Diff([]string{"Locate", "SetOutput"}, s.CommandNames()); diff != "" {
		t.Errorf("unexpected command order (-want +got):\n%s", diff)
	}
	if got := s.DefaultCommandACL("Locate"); got != "acl.dcs.tk10x:Locate" {
		t.Errorf("unexpected derived ACL: %q", got)
	}

	mapCmds := s.CommandsOfType("map")
	if len(mapCmds) != 1 || mapCmds[0].Name != "Locate" {
		t.Errorf("unexpected map commands: %+v", mapCmds)
	}
	allCmds := s.CommandsOfType("")
	if len(allCmds) != 2 {
		t.Errorf("expected blank type to match all commands, got %d", len(allCmds))
	}
}

func TestCommandArgExpansion(t *testing.T) {
	tests := []struct {
		name     string
		cmdStr   string
		args     []string
		expected string
	}{
		{
			name:     "single arg placeholder",
			cmdStr:   "AT+OUT=${arg}",
			args:     []string{"1"},
			expected: "AT+OUT=1",
		},
		{
			name:     "indexed placeholders",
			cmdStr:   "AT+GEOF=${arg0},${arg1}",
			args:     []string{"39.1", "-121.2"},
			expected: "AT+GEOF=39.1,-121.2",
		},
		{
			name:     "missing args expand empty",
			cmdStr:   "AT+GEOF=${arg0},${arg1}",
			args:     []string{"39.1"},
			expected: "AT+GEOF=39.1,",
		},
		{
			name:     "no placeholders returns as-is",
			cmdStr:   "AT+LOCATE",
			args:     []string{"ignored"},
			expected: "AT+LOCATE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCommand("c", "", nil, "", tt.cmdStr, false, "", false, 0)
			if got := cmd.ExpandedCommandString(tt.args); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestCommandHasArgsInferred(t *testing.T) {
	withPlaceholder := NewCommand("c", "", nil, "", "AT+OUT=${arg}", false, "", false, 0)
	if !withPlaceholder.HasArgs() {
		t.Error("expected placeholder to imply args")
	}
	plain := NewCommand("c", "", nil, "", "AT+LOCATE", false, "", false, 0)
	if plain.HasArgs() {
		t.Error("expected plain command to take no args")
	}
}

func TestCommandProtocolOverride(t *testing.T) {
	cmd := NewCommand("c", "", nil, "", "X", false, "sms", false, 0)
	if got := cmd.CommandProtocol(ProtocolUDP); got != ProtocolSMS {
		t.Errorf("expected sms override, got %v", got)
	}
	plain := NewCommand("c", "", nil, "", "X", false, "", false, 0)
	if got := plain.CommandProtocol(ProtocolTCP); got != ProtocolTCP {
		t.Errorf("expected server default, got %v", got)
	}
	bogus := NewCommand("c", "", nil, "", "X", false, "carrier-pigeon", false, 0)
	if got := bogus.CommandProtocol(ProtocolUDP); got != ProtocolUDP {
		t.Errorf("expected fallback for unknown protocol, got %v", got)
	}
}

func TestServerConfigString(t *testing.T) {
	s := NewServerConfig("tk10x", "TK10X Tracker", []int{31200}, []int{31200, 31272}, 0, FlagNone)
	expected := "(tk10x) TK10X Tracker [TCP=31200 UDP=31200,31272]"
	if got := s.String(); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}

	empty := NewServerConfig("quiet", "No Ports", nil, nil, 0, FlagNone)
	if got := empty.String(); got != "(quiet) No Ports [no-ports]" {
		t.Errorf("unexpected rendering: %q", got)
	}
}
