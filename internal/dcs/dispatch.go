package dcs

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fleetgrid/fleetgrid/internal/core/data"
	"github.com/fleetgrid/fleetgrid/internal/core/prop"
)

// Wire keys of the command channel. A request is a single
// newline-terminated properties line; the response is the same.
const (
	reqKeyAccount = "account"
	reqKeyDevice  = "device"
	reqKeyCmdType = "cmdtype"
	reqKeyCmdName = "cmdname"
	reqKeyArg     = "arg"

	respKeyServer  = "server"
	respKeyResult  = "result"
	respKeyMessage = "message"
)

// DefaultDispatchTimeout bounds the whole dial-write-read exchange with a
// server's command channel.
const DefaultDispatchTimeout = 10 * time.Second

// Request is a command relayed to a device communication server.
type Request struct {
	AccountID string
	DeviceID  string
	CmdType   string
	CmdName   string
	Args      []string
}

// NewRequest builds a Request. The args slice carries exactly the
// arguments to send; absent arguments are an empty or shorter slice, never
// a placeholder value.
func NewRequest(accountID, deviceID, cmdType, cmdName string, args []string) *Request {
	return &Request{
		AccountID: accountID,
		DeviceID:  deviceID,
		CmdType:   cmdType,
		CmdName:   cmdName,
		Args:      args,
	}
}

// Encode renders the request as its wire line, without the trailing
// newline.
func (r *Request) Encode() string {
	p := prop.New()
	p.Set(reqKeyAccount, r.AccountID)
	p.Set(reqKeyDevice, r.DeviceID)
	p.Set(reqKeyCmdType, r.CmdType)
	p.Set(reqKeyCmdName, r.CmdName)
	for i, arg := range r.Args {
		p.Set(fmt.Sprintf("%s%d", reqKeyArg, i), arg)
	}
	return p.String()
}

// ParseRequest decodes a wire line back into a Request. Args are collected
// from arg0 upward until the first absent index.
func ParseRequest(line string) *Request {
	p := prop.Parse(line)
	req := &Request{
		AccountID: p.Get(reqKeyAccount, ""),
		DeviceID:  p.Get(reqKeyDevice, ""),
		CmdType:   p.Get(reqKeyCmdType, ""),
		CmdName:   p.Get(reqKeyCmdName, ""),
	}
	for i := 0; ; i++ {
		key := fmt.Sprintf("%s%d", reqKeyArg, i)
		if !p.Has(key) {
			break
		}
		req.Args = append(req.Args, p.Get(key, ""))
	}
	return req
}

// Response is a command channel reply. A blank Result means success.
type Response struct {
	Server  string
	Result  string
	Message string
}

// NewErrorResponse builds a locally generated response carrying the given
// result code.
func NewErrorResponse(serverName string, code ResultCode) *Response {
	return &Response{
		Server:  serverName,
		Result:  code.Code(),
		Message: code.Message(),
	}
}

// OK reports whether the response indicates success.
func (r *Response) OK() bool {
	return r != nil && IsResultCodeOK(r.Result)
}

// Encode renders the response as its wire line, without the trailing
// newline.
func (r *Response) Encode() string {
	p := prop.New()
	p.Set(respKeyServer, r.Server)
	p.Set(respKeyResult, r.Result)
	p.Set(respKeyMessage, r.Message)
	return p.String()
}

// ParseResponse decodes a wire line back into a Response.
func ParseResponse(line string) *Response {
	p := prop.Parse(line)
	return &Response{
		Server:  p.Get(respKeyServer, ""),
		Result:  p.Get(respKeyResult, ""),
		Message: p.Get(respKeyMessage, ""),
	}
}

// PingCounter persists the per-device count of relayed commands.
type PingCounter interface {
	IncrementPingCount(device *data.Device, timestamp int64) error
}

// Dispatcher relays commands to the command channels of registered
// servers and enforces the per-device command quota.
type Dispatcher struct {
	logger   *logrus.Logger
	registry *Registry
	pings    PingCounter
	timeout  time.Duration

	// exchange performs one request/response round trip. Swappable so the
	// policy paths can be exercised without sockets.
	exchange func(addr string, timeout time.Duration, line string) (string, error)

	now     func() time.Time
	wireLog bool
}

// SetWireLogging toggles logging of the raw request and response lines.
func (d *Dispatcher) SetWireLogging(enabled bool) {
	d.wireLog = enabled
}

// NewDispatcher returns a Dispatcher over the given registry. A
// non-positive timeout falls back to DefaultDispatchTimeout.
func NewDispatcher(logger *logrus.Logger, registry *Registry, pings PingCounter, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &Dispatcher{
		logger:   logger,
		registry: registry,
		pings:    pings,
		timeout:  timeout,
		exchange: exchangeLine,
		now:      time.Now,
	}
}

// Dispatch sends a request to the named server's command channel and
// returns its response. Failures to reach or talk to the channel come back
// as responses carrying a local result code; the error return is reserved
// for conditions the caller cannot express as a wire result.
func (d *Dispatcher) Dispatch(server *ServerConfig, req *Request) (*Response, error) {
	if server == nil {
		return NewErrorResponse("", ResultInvalidServer), nil
	}
	if req == nil || strings.TrimSpace(req.AccountID) == "" {
		return NewErrorResponse(server.Name(), ResultInvalidAccount), nil
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		return NewErrorResponse(server.Name(), ResultInvalidDevice), nil
	}
	if !server.SupportsCommandDispatch() {
		d.logger.Warnf("[%s] no command channel configured", server.Name())
		return NewErrorResponse(server.Name(), ResultInvalidServer), nil
	}

	addr := net.JoinHostPort(server.CommandDispatcherHost(),
		fmt.Sprintf("%d", server.CommandDispatcherPort()))
	d.logger.Debugf("[%s] dispatching %q to %s", server.Name(), req.CmdName, addr)

	wire := req.Encode()
	if d.wireLog {
		d.logger.Infof("[%s] >> %s", server.Name(), wire)
	}
	line, err := d.exchange(addr, d.timeout, wire)
	if err != nil {
		code := ResultTransmitFail
		if isDialError(err) {
			code = ResultUnknownHost
			d.logger.Warnf("[%s] command channel unreachable at %s: %v", server.Name(), addr, err)
		} else {
			d.logger.Warnf("[%s] command exchange failed: %v", server.Name(), err)
		}
		observeDispatch(server.Name(), code.Code())
		return NewErrorResponse(server.Name(), code), nil
	}

	if d.wireLog {
		d.logger.Infof("[%s] << %s", server.Name(), strings.TrimRight(line, "\r\n"))
	}
	resp := ParseResponse(strings.TrimRight(line, "\r\n"))
	if resp.Server == "" {
		resp.Server = server.Name()
	}
	observeDispatch(server.Name(), resp.Result)
	return resp, nil
}

// DispatchForDevice relays a command on behalf of a device row, enforcing
// the quota before any network traffic and counting the command only after
// a successful result.
func (d *Dispatcher) DispatchForDevice(device *data.Device, cmdType, cmdName string, args []string) (*Response, error) {
	if device == nil {
		return NewErrorResponse("", ResultInvalidDevice), nil
	}
	serverName := strings.TrimSpace(device.DeviceCode)
	if serverName == "" {
		d.logger.Warnf("device %s/%s has no server code", device.AccountID, device.DeviceID)
		return NewErrorResponse("", ResultInvalidServer), nil
	}
	server := d.registry.Get(serverName)
	if server == nil {
		d.registry.AddMissing(serverName)
		return NewErrorResponse(serverName, ResultInvalidServer), nil
	}
	if device.MaxPingCount > 0 && device.TotalPingCount >= device.MaxPingCount {
		d.logger.Warnf("device %s/%s over command limit (%d)",
			device.AccountID, device.DeviceID, device.MaxPingCount)
		return NewErrorResponse(serverName, ResultOverLimit), nil
	}

	req := NewRequest(device.AccountID, device.DeviceID, cmdType, cmdName, args)
	resp, err := d.Dispatch(server, req)
	if err != nil {
		return nil, err
	}
	if resp.OK() {
		if err := d.pings.IncrementPingCount(device, d.now().Unix()); err != nil {
			d.logger.Warnf("unable to persist command count for %s/%s: %v",
				device.AccountID, device.DeviceID, err)
		}
	}
	return resp, nil
}

// exchangeLine dials the channel, writes one request line, and reads one
// response line. The connection is closed in every path and the timeout
// covers the whole exchange.
func exchangeLine(addr string, timeout time.Duration, line string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return "", &dialError{err}
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		return "", err
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", err
	}
	return resp, nil
}

type dialError struct{ err error }

func (e *dialError) Error() string { return e.err.Error() }
func (e *dialError) Unwrap() error { return e.err }

func isDialError(err error) bool {
	var de *dialError
	return errors.As(err, &de)
}
