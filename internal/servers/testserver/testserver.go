// Package testserver implements a minimal line-oriented tracking protocol.
// It exists so an installation works end to end before any vendor protocol
// is built: simulators connect, report positions, and exercise the full
// resolution and event-code path.
package testserver

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fleetgrid/fleetgrid/internal"
	"github.com/fleetgrid/fleetgrid/internal/dcs"
)

// ServerName is the name this handler registers under; the definition file
// must declare a matching DCServer entry for it to be started.
const ServerName = "testserver"

const readTimeout = 5 * time.Minute

// Server handles device connections speaking the test protocol. Each line
// is "mobileID,eventCode,latitude,longitude", with the event code in
// decimal or 0x-prefixed hex.
type Server struct {
	logger   *logrus.Logger
	server   *dcs.ServerConfig
	resolver *dcs.Resolver
}

// NewHandler builds the connection handler. Its signature matches the
// controller's factory contract.
func NewHandler(logger *logrus.Logger, server *dcs.ServerConfig, deps *internal.Deps) (dcs.ConnectionHandler, error) {
	return &Server{
		logger:   logger,
		server:   server,
		resolver: deps.Resolver,
	}, nil
}

// HandleConnection serves report lines until the device disconnects.
func (s *Server) HandleConnection(ctx context.Context, conn *net.TCPConn) {
	defer conn.Close()
	remoteIP := remoteHost(conn)
	reader := bufio.NewReader(conn)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		reply := s.handleReport(strings.TrimSpace(line), remoteIP)
		if _, err := conn.Write([]byte(reply + "\n")); err != nil {
			return
		}
	}
}

func (s *Server) handleReport(line, remoteIP string) string {
	report, ok := parseReport(line)
	if !ok {
		s.logger.Debugf("[%s] malformed report from %s: %q", s.server.Name(), remoteIP, line)
		return "NAK"
	}

	device, err := s.resolver.LoadDevice(s.server, report.MobileID, remoteIP, true, report.Latitude, report.Longitude)
	if err != nil {
		s.logger.Warnf("[%s] device resolution failed: %v", s.server.Name(), err)
		return "NAK"
	}
	if device == nil {
		return "NAK"
	}

	status := s.server.TranslateStatusCode(report.EventCode, report.EventCode)
	if status == dcs.StatusIgnore {
		s.logger.Debugf("[%s] ignored event 0x%X from %s/%s",
			s.server.Name(), report.EventCode, device.AccountID, device.DeviceID)
		return "OK"
	}
	if status == dcs.StatusNone {
		status = report.EventCode
	}

	s.logger.Infof("[%s] event 0x%X from %s/%s at %.5f,%.5f",
		s.server.Name(), status, device.AccountID, device.DeviceID,
		report.Latitude, report.Longitude)
	return "OK"
}

// Report is one parsed position line.
type Report struct {
	MobileID  string
	EventCode int
	Latitude  float64
	Longitude float64
}

func parseReport(line string) (Report, bool) {
	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return Report{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" {
		return Report{}, false
	}

	code, err := parseEventCode(parts[1])
	if err != nil {
		return Report{}, false
	}
	lat, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || lat < -90 || lat > 90 {
		return Report{}, false
	}
	lon, err := strconv.ParseFloat(parts[3], 64)
	if err != nil || lon < -180 || lon > 180 {
		return Report{}, false
	}
	return Report{MobileID: parts[0], EventCode: code, Latitude: lat, Longitude: lon}, true
}

func parseEventCode(s string) (int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := strconv.ParseInt(s[2:], 16, 32)
		return int(n), err
	}
	n, err := strconv.ParseInt(s, 10, 32)
	return int(n), err
}

func remoteHost(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
