package dcs

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPortMapOffset(t *testing.T) {
	pm := PortMap{Offset: 1000}
	if got := pm.Port(31200); got != 32200 {
		t.Errorf("expected offset to apply, got %d", got)
	}
	if got := pm.Port(0); got != 0 {
		t.Errorf("expected non-positive port to stay unset, got %d", got)
	}
	if got := pm.Port(-5); got != 0 {
		t.Errorf("expected negative port to stay unset, got %d", got)
	}
}

func TestPortMapPorts(t *testing.T) {
	pm := PortMap{Offset: 100}
	if diff := cmp.Diff([]int{31300, 31301}, pm.Ports(31200, 31201)); diff != "" {
		t.Errorf("unexpected ports (-want +got):\n%s", diff)
	}
	if got := pm.Ports(); len(got) != 0 || got == nil {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestIsValidPort(t *testing.T) {
	for port, valid := range map[int]bool{
		0:     false,
		-1:    false,
		1:     true,
		31200: true,
		65535: true,
		65536: false,
	} {
		if got := IsValidPort(port); got != valid {
			t.Errorf("IsValidPort(%d) = %v, expected %v", port, got, valid)
		}
	}
}

func TestResultCodes(t *testing.T) {
	if ResultSuccess.Code() != "OK000" {
		t.Errorf("unexpected success code: %s", ResultSuccess.Code())
	}
	if ResultOverLimit.Code() != "AU002" {
		t.Errorf("unexpected over-limit code: %s", ResultOverLimit.Code())
	}
	if !IsResultCodeOK("") || !IsResultCodeOK("OK000") {
		t.Error("expected blank and OK000 to both mean success")
	}
	if IsResultCodeOK("CM001") {
		t.Error("expected error code to not be success")
	}
}
