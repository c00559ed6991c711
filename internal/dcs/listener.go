package dcs

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// ConnectionHandler processes one accepted connection. Implementations
// own the connection and must close it.
type ConnectionHandler interface {
	HandleConnection(ctx context.Context, conn *net.TCPConn)
}

// Listener runs the accept loop for one server port and hands connections
// to its handler.
type Listener struct {
	logger     *logrus.Logger
	serverName string
	addr       string
	handler    ConnectionHandler
}

// NewListener returns a Listener bound to the given address once started.
func NewListener(logger *logrus.Logger, serverName, addr string, handler ConnectionHandler) *Listener {
	return &Listener{
		logger:     logger,
		serverName: serverName,
		addr:       addr,
		handler:    handler,
	}
}

// Start binds the listen socket and launches the accept loop. The loop
// exits when ctx is canceled; wg tracks it for shutdown.
func (l *Listener) Start(ctx context.Context, wg *sync.WaitGroup) error {
	tcpAddr, err := net.ResolveTCPAddr("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("resolve listen address %s: %w", l.addr, err)
	}
	socket, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.addr, err)
	}
	l.logger.Infof("[%s] waiting for connections on %s", l.serverName, l.addr)

	go func() {
		<-ctx.Done()
		socket.Close()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		l.acceptLoop(ctx, socket)
	}()
	return nil
}

func (l *Listener) acceptLoop(ctx context.Context, socket *net.TCPListener) {
	connWG := &sync.WaitGroup{}
	defer connWG.Wait()
	for {
		conn, err := socket.AcceptTCP()
		if err != nil {
			select {
			case <-ctx.Done():
				l.logger.Infof("[%s] listener on %s shutting down", l.serverName, l.addr)
			default:
				l.logger.Warnf("[%s] accept failed on %s: %v", l.serverName, l.addr, err)
			}
			return
		}
		l.logger.Debugf("[%s] accepted connection from %s", l.serverName, conn.RemoteAddr())
		observeConnection(l.serverName)

		connWG.Add(1)
		go func() {
			defer connWG.Done()
			l.handler.HandleConnection(ctx, conn)
		}()
	}
}
