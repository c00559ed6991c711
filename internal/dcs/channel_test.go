package dcs

import (
	"testing"

	"github.com/fleetgrid/fleetgrid/internal/core/data"
)

type stubFinder struct {
	accounts map[string]*data.Account
	devices  map[string]*data.Device
}

func (s *stubFinder) FindDevice(accountID, deviceID string) (*data.Device, error) {
	return s.devices[accountID+"/"+deviceID], nil
}

func (s *stubFinder) FindAccountByAccountID(accountID string) (*data.Account, error) {
	return s.accounts[accountID], nil
}

type recordingDeliverer struct {
	delivered []string
	result    ResultCode
}

func (r *recordingDeliverer) Deliver(device *data.Device, cmd *Command, cmdString string) ResultCode {
	r.delivered = append(r.delivered, cmdString)
	return r.result
}

func channelFixture(t *testing.T) (*CommandChannel, *recordingDeliverer) {
	t.Helper()
	server := NewServerConfig("tk10x", "Test", nil, nil, 31050, FlagNone)
	if err := server.AddCommand(NewCommand("Locate", "Request location", []string{"map"}, "", "AT+LOCATE", false, "", false, 0)); err != nil {
		t.Fatal(err)
	}
	if err := server.AddCommand(NewCommand("SetOutput", "Set output", []string{"admin"}, "", "AT+OUT=${arg}", false, "", false, 0)); err != nil {
		t.Fatal(err)
	}

	truck := activeDevice("acme", "truck1", "tk_12345")
	parked := activeDevice("acme", "parked", "tk_67890")
	parked.Active = false

	finder := &stubFinder{
		accounts: map[string]*data.Account{
			"acme": {AccountID: "acme", Active: true},
		},
		devices: map[string]*data.Device{
			"acme/truck1": truck,
			"acme/parked": parked,
		},
	}
	deliverer := &recordingDeliverer{result: ResultSuccess}
	return NewCommandChannel(testLogger(), server, finder, deliverer), deliverer
}

func serveLine(c *CommandChannel, req *Request) *Response {
	return c.serve(req.Encode())
}

func TestChannelServeSuccess(t *testing.T) {
	c, deliverer := channelFixture(t)
	resp := serveLine(c, NewRequest("acme", "truck1", "map", "Locate", nil))
	if !resp.OK() {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.Server != "tk10x" {
		t.Errorf("unexpected server name: %q", resp.Server)
	}
	if len(deliverer.delivered) != 1 || deliverer.delivered[0] != "AT+LOCATE" {
		t.Errorf("unexpected deliveries: %v", deliverer.delivered)
	}
}

func TestChannelServeArgExpansion(t *testing.T) {
	c, deliverer := channelFixture(t)
	resp := serveLine(c, NewRequest("acme", "truck1", "admin", "SetOutput", []string{"1"}))
	if !resp.OK() {
		t.Fatalf("expected success, got %+v", resp)
	}
	if deliverer.delivered[0] != "AT+OUT=1" {
		t.Errorf("unexpected expansion: %q", deliverer.delivered[0])
	}
}

func TestChannelServeErrors(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected ResultCode
	}{
		{
			name:     "empty request",
			line:     "",
			expected: ResultEmptyRequest,
		},
		{
			name:     "unknown account",
			line:     NewRequest("nobody", "truck1", "map", "Locate", nil).Encode(),
			expected: ResultInvalidAccount,
		},
		{
			name:     "unknown device",
			line:     NewRequest("acme", "ghost", "map", "Locate", nil).Encode(),
			expected: ResultInvalidDevice,
		},
		{
			name:     "inactive device",
			line:     NewRequest("acme", "parked", "map", "Locate", nil).Encode(),
			expected: ResultNotAuthorized,
		},
		{
			name:     "unknown command",
			line:     NewRequest("acme", "truck1", "map", "SelfDestruct", nil).Encode(),
			expected: ResultInvalidCommand,
		},
		{
			name:     "wrong command type",
			line:     NewRequest("acme", "truck1", "garmin", "Locate", nil).Encode(),
			expected: ResultInvalidType,
		},
		{
			name:     "args for argless command",
			line:     NewRequest("acme", "truck1", "map", "Locate", []string{"x"}).Encode(),
			expected: ResultInvalidArg,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, deliverer := channelFixture(t)
			resp := c.serve(tt.line)
			if resp.Result != tt.expected.Code() {
				t.Errorf("expected %s, got %s", tt.expected.Code(), resp.Result)
			}
			if len(deliverer.delivered) != 0 {
				t.Errorf("expected no delivery, got %v", deliverer.delivered)
			}
		})
	}
}

func TestChannelServeBlankTypeMatchesAll(t *testing.T) {
	c, _ := channelFixture(t)
	resp := serveLine(c, NewRequest("acme", "truck1", "", "Locate", nil))
	if !resp.OK() {
		t.Errorf("expected blank type to match, got %+v", resp)
	}
}

func TestChannelServeDeliveryFailure(t *testing.T) {
	c, deliverer := channelFixture(t)
	deliverer.result = ResultNotSupported
	resp := serveLine(c, NewRequest("acme", "truck1", "map", "Locate", nil))
	if resp.Result != ResultNotSupported.Code() {
		t.Errorf("expected delivery result to surface, got %+v", resp)
	}
}
