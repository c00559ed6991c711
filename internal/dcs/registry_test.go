package dcs

import (
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRegisterFirstWins(t *testing.T) {
	r := NewRegistry(testLogger())
	first := NewServerConfig("tk10x", "First", nil, nil, 0, FlagNone)
	second := NewServerConfig("tk10x", "Second", nil, nil, 0, FlagNone)

	if got := r.Register(first); got != first {
		t.Fatal("expected first registration to succeed")
	}
	if got := r.Register(second); got != nil {
		t.Error("expected duplicate registration to be rejected")
	}
	if got := r.Get("tk10x"); got != first {
		t.Errorf("expected first definition to survive, got %v", got)
	}
}

func TestRegisterBlankNameIgnored(t *testing.T) {
	r := NewRegistry(testLogger())
	if got := r.Register(NewServerConfig("", "Anonymous", nil, nil, 0, FlagNone)); got != nil {
		t.Error("expected blank name to be ignored")
	}
	if got := r.Register(nil); got != nil {
		t.Error("expected nil definition to be ignored")
	}
	if len(r.Names()) != 0 {
		t.Errorf("expected empty registry, got %v", r.Names())
	}
}

func TestGetUnknownReturnsNil(t *testing.T) {
	r := NewRegistry(testLogger())
	if got := r.Get("nope"); got != nil {
		t.Errorf("expected nil for unknown server, got %v", got)
	}
	if r.Has("nope") {
		t.Error("expected Has to be false for unknown server")
	}
}

func TestListFiltersUnimplemented(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(NewServerConfig("tk10x", "A", nil, nil, 0, FlagNone))
	r.Register(NewServerConfig("gc101", "B", nil, nil, 0, FlagNone))
	r.Register(NewServerConfig("enfora", "C", nil, nil, 0, FlagNone))
	r.MarkImplemented("tk10x")
	r.MarkImplemented("enfora")

	names := func(list []*ServerConfig) []string {
		out := make([]string, len(list))
		for i, s := range list {
			out[i] = s.Name()
		}
		return out
	}

	if diff := cmp.Diff([]string{"tk10x", "enfora"}, names(r.List(false))); diff != "" {
		t.Errorf("unexpected implemented list (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"tk10x", "gc101", "enfora"}, names(r.List(true))); diff != "" {
		t.Errorf("unexpected full list (-want +got):\n%s", diff)
	}
	if !r.IsImplemented("tk10x") || r.IsImplemented("gc101") {
		t.Error("unexpected implemented flags")
	}
}

func TestMissingList(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(NewServerConfig("tk10x", "A", nil, nil, 0, FlagNone))

	r.AddMissing("calamp")
	r.AddMissing("calamp")
	r.AddMissing("tk10x")
	r.AddMissing("  ")
	r.AddMissing("sanav")

	if !r.HasMissing() {
		t.Fatal("expected missing servers to be recorded")
	}
	if diff := cmp.Diff([]string{"calamp", "sanav"}, r.MissingList()); diff != "" {
		t.Errorf("unexpected missing list (-want +got):\n%s", diff)
	}
}
