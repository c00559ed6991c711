package dcs

import (
	"bufio"
	"context"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fleetgrid/fleetgrid/internal/core/data"
)

// DeviceFinder looks up a device by account and device id. A miss returns
// (nil, nil).
type DeviceFinder interface {
	FindDevice(accountID, deviceID string) (*data.Device, error)
}

// Deliverer carries an expanded command string to a physical device. The
// returned result code becomes the wire result; implementations return
// ResultSuccess when the command was handed to the transport.
type Deliverer interface {
	Deliver(device *data.Device, cmd *Command, cmdString string) ResultCode
}

// CommandChannel serves the server side of the dispatch protocol for one
// registered server. It validates each request against the device tables
// and the server's command table before delivery.
type CommandChannel struct {
	logger    *logrus.Logger
	server    *ServerConfig
	devices   DeviceFinder
	deliverer Deliverer

	// readTimeout bounds each request read. Zero means no deadline.
	readTimeout time.Duration
}

// NewCommandChannel returns a handler for the server's command channel.
func NewCommandChannel(logger *logrus.Logger, server *ServerConfig, devices DeviceFinder, deliverer Deliverer) *CommandChannel {
	return &CommandChannel{
		logger:      logger,
		server:      server,
		devices:     devices,
		deliverer:   deliverer,
		readTimeout: DefaultDispatchTimeout,
	}
}

// HandleConnection serves request lines until the peer disconnects or the
// context is canceled.
func (c *CommandChannel) HandleConnection(ctx context.Context, conn *net.TCPConn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if c.readTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		resp := c.serve(strings.TrimRight(line, "\r\n"))
		if _, err := conn.Write([]byte(resp.Encode() + "\n")); err != nil {
			c.logger.Warnf("[%s] unable to write command response: %v", c.server.Name(), err)
			return
		}
	}
}

func (c *CommandChannel) serve(line string) *Response {
	if strings.TrimSpace(line) == "" {
		return NewErrorResponse(c.server.Name(), ResultEmptyRequest)
	}
	req := ParseRequest(line)

	if strings.TrimSpace(req.AccountID) == "" {
		return NewErrorResponse(c.server.Name(), ResultInvalidAccount)
	}
	device, err := c.devices.FindDevice(req.AccountID, req.DeviceID)
	if err != nil {
		c.logger.Warnf("[%s] device lookup failed: %v", c.server.Name(), err)
		return NewErrorResponse(c.server.Name(), ResultInvalidDevice)
	}
	if device == nil {
		if acct, _ := c.accountExists(req.AccountID); !acct {
			return NewErrorResponse(c.server.Name(), ResultInvalidAccount)
		}
		return NewErrorResponse(c.server.Name(), ResultInvalidDevice)
	}
	if !device.Active || !device.Account.Active {
		return NewErrorResponse(c.server.Name(), ResultNotAuthorized)
	}

	cmd := c.server.Command(req.CmdName)
	if cmd == nil {
		return NewErrorResponse(c.server.Name(), ResultInvalidCommand)
	}
	if !IsCommandTypeAll(req.CmdType) && !cmd.IsType(req.CmdType) {
		return NewErrorResponse(c.server.Name(), ResultInvalidType)
	}
	if len(req.Args) > 0 && !cmd.HasArgs() {
		return NewErrorResponse(c.server.Name(), ResultInvalidArg)
	}

	cmdString := cmd.ExpandedCommandString(req.Args)
	result := c.deliverer.Deliver(device, cmd, cmdString)
	resp := NewErrorResponse(c.server.Name(), result)
	if result == ResultSuccess {
		resp.Result = ""
		resp.Message = "command sent"
	}
	return resp
}

// accountExists distinguishes an unknown account from an unknown device.
// The finder may not expose accounts; a lookup miss on the device alone
// then reports an invalid device.
func (c *CommandChannel) accountExists(accountID string) (bool, error) {
	finder, ok := c.devices.(interface {
		FindAccountByAccountID(accountID string) (*data.Account, error)
	})
	if !ok {
		return true, nil
	}
	acct, err := finder.FindAccountByAccountID(accountID)
	if err != nil {
		return true, err
	}
	return acct != nil, nil
}

// LoggingDeliverer is the delivery backend of the built-in test server. It
// records what would have been sent instead of reaching for a transport.
type LoggingDeliverer struct {
	logger *logrus.Logger
}

// NewLoggingDeliverer returns a Deliverer that logs deliveries.
func NewLoggingDeliverer(logger *logrus.Logger) *LoggingDeliverer {
	return &LoggingDeliverer{logger: logger}
}

// Deliver logs the expanded command and reports success.
func (d *LoggingDeliverer) Deliver(device *data.Device, cmd *Command, cmdString string) ResultCode {
	d.logger.Infof("deliver %q to %s/%s: %s", cmd.Name, device.AccountID, device.DeviceID, cmdString)
	return ResultSuccess
}
