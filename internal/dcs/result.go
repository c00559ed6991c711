package dcs

// ResultCode enumerates the outcomes of a command dispatch. Each code has a
// stable short wire string that crosses the dispatch channel; comparisons
// against responses must use the wire string, never identity.
type ResultCode int

const (
	ResultSuccess ResultCode = iota
	ResultInvalidAccount
	ResultInvalidDevice
	ResultInvalidServer
	ResultNotAuthorized
	ResultOverLimit
	ResultInvalidCommand
	ResultInvalidArg
	ResultInvalidType
	ResultEmptyRequest
	ResultNotSupported
	ResultUnknownHost
	ResultTransmitFail
	ResultInvalidProto
	ResultInvalidPacket
)

var resultCodes = [...]struct {
	code    string
	message string
}{
	ResultSuccess:        {"OK000", "Successful"},
	ResultInvalidAccount: {"AC001", "Invalid Account"},
	ResultInvalidDevice:  {"DV001", "Invalid Device"},
	ResultInvalidServer:  {"SR001", "Invalid Server"},
	ResultNotAuthorized:  {"AU001", "Not Authorized"},
	ResultOverLimit:      {"AU002", "Over Limit"},
	ResultInvalidCommand: {"CM001", "Invalid command"},
	ResultInvalidArg:     {"CM002", "Invalid command/argument"},
	ResultInvalidType:    {"CM003", "Invalid command type"},
	ResultEmptyRequest:   {"CM004", "Invalid/Empty request"},
	ResultNotSupported:   {"CM005", "Not Supported by Device"},
	ResultUnknownHost:    {"HP001", "Invalid host"},
	ResultTransmitFail:   {"TX001", "Transmit failure"},
	ResultInvalidProto:   {"PR001", "Invalid Protocol"},
	ResultInvalidPacket:  {"PK001", "Invalid Packet"},
}

// Code returns the stable wire string for the result.
func (r ResultCode) Code() string {
	if r < 0 || int(r) >= len(resultCodes) {
		return ""
	}
	return resultCodes[r].code
}

// Message returns the human-readable description of the result.
func (r ResultCode) Message() string {
	if r < 0 || int(r) >= len(resultCodes) {
		return ""
	}
	return resultCodes[r].message
}

func (r ResultCode) String() string {
	return r.Message()
}

// IsResultCodeOK reports whether the given wire code represents success. A
// blank code is success: older dispatchers omit the result field entirely on
// a successful command.
func IsResultCodeOK(code string) bool {
	return code == "" || code == ResultSuccess.Code()
}
