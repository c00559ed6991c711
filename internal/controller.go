package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/core"
	"github.com/fleetgrid/fleetgrid/internal/core/data"
	"github.com/fleetgrid/fleetgrid/internal/dcs"
	"github.com/fleetgrid/fleetgrid/internal/web"
)

// HandlerFactory builds the connection handler for one implemented server.
// Factories are registered at compile time by whoever assembles the
// Controller; the definition file only describes servers, the factory map
// decides which of them can actually accept traffic.
type HandlerFactory func(logger *logrus.Logger, server *dcs.ServerConfig, deps *Deps) (dcs.ConnectionHandler, error)

// Deps bundles the shared resources handed to server handler factories.
type Deps struct {
	Store      *data.Store
	Resolver   *dcs.Resolver
	Dispatcher *dcs.Dispatcher
}

// Controller is the main entrypoint for fleetgrid. It's responsible for
// initializing the shared resources (database, logging, registry), loading
// the server definitions, and launching everything.
type Controller struct {
	Config *core.Config

	// Handlers maps server names to the factories that can serve them.
	Handlers map[string]HandlerFactory

	logger *logrus.Logger
	wg     sync.WaitGroup

	db        *gorm.DB
	registry  *dcs.Registry
	listeners []*dcs.Listener
}

func (c *Controller) Start(ctx context.Context) {
	defer c.Shutdown(ctx)

	var err error
	// Set up the logger, which is shared by every component.
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		fmt.Printf("error initializing logger: %v\n", err)
		return
	}

	c.db, err = data.Initialize(c.Config)
	if err != nil {
		c.logger.Errorf("error initializing database: %v", err)
		return
	}

	registry, deps, err := c.assemble()
	if err != nil {
		c.logger.Errorf("error assembling servers: %v", err)
		return
	}

	if err := dcs.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		c.logger.Errorf("error registering metrics: %v", err)
		return
	}

	if err := c.declareListeners(registry, deps); err != nil {
		c.logger.Errorf("error declaring listeners: %v", err)
		return
	}

	// The admin API runs beside the command channels.
	if c.Config.Web.HTTPPort > 0 {
		handler := web.NewHandler(c.logger, registry, deps.Resolver, deps.Dispatcher, deps.Store, deps.Store)
		router := web.NewRouter(handler, prometheus.DefaultGatherer)
		addr := c.buildAddress(c.Config.Web.HTTPPort)
		go func() {
			c.logger.Infof("admin API listening on %s", addr)
			if err := web.Serve(addr, router); err != nil {
				c.logger.Errorf("admin API stopped: %v", err)
			}
		}()
	}

	c.run(ctx)
}

// assemble loads the server definitions and builds the shared resolution
// and dispatch plumbing.
func (c *Controller) assemble() (*dcs.Registry, *Deps, error) {
	c.registry = dcs.NewRegistry(c.logger)

	loader := dcs.NewLoader(c.logger, c.registry, c.Config.PortOffset)
	if c.Config.IncludeDir != "" {
		loader.SetIncludeDir(c.Config.QualifiedPath(c.Config.IncludeDir))
	}
	if err := loader.Load(c.Config.ServerDefinitionPath()); err != nil {
		return nil, nil, err
	}
	if len(c.registry.Names()) == 0 {
		// Startable, but almost certainly a misconfiguration.
		c.logger.Errorf("no servers registered from %s; tracking ports will not open",
			c.Config.ServerDefinitionPath())
	}

	store := data.NewStore(c.db)
	lookup := dcs.NewCachingDeviceLookup(store, dcs.DefaultLookupTTL)
	dispatcher := dcs.NewDispatcher(c.logger, c.registry, store, c.Config.DispatchTimeout())
	dispatcher.SetWireLogging(c.Config.Debugging.WireLoggingEnabled)
	deps := &Deps{
		Store:      store,
		Resolver:   dcs.NewResolver(c.logger, c.registry, lookup, store),
		Dispatcher: dispatcher,
	}
	return c.registry, deps, nil
}

// declareListeners builds one listener per implemented server: its command
// channel plus any device listen ports its factory serves. Definitions
// without a factory stay visible in the registry but accept no traffic.
func (c *Controller) declareListeners(registry *dcs.Registry, deps *Deps) error {
	for _, server := range registry.List(true) {
		factory, ok := c.Handlers[server.Name()]
		if !ok {
			c.logger.Debugf("no handler built in for %s, definition only", server.Name())
			continue
		}
		handler, err := factory(c.logger, server, deps)
		if err != nil {
			return fmt.Errorf("build handler for %s: %w", server.Name(), err)
		}
		registry.MarkImplemented(server.Name())

		if server.SupportsCommandDispatch() {
			channel := dcs.NewCommandChannel(c.logger, server, deps.Store, dcs.NewLoggingDeliverer(c.logger))
			c.listeners = append(c.listeners, dcs.NewListener(c.logger, server.Name(),
				c.buildAddress(server.CommandDispatcherPort()), channel))
		}
		for _, port := range server.TCPPorts() {
			c.listeners = append(c.listeners, dcs.NewListener(c.logger, server.Name(),
				c.buildAddress(port), handler))
		}
	}

	if registry.HasMissing() {
		c.logger.Warnf("definitions reference unregistered servers: %v", registry.MissingList())
	}
	return nil
}

func (c *Controller) run(ctx context.Context) {
	// Failure to start one of the declared listeners is considered terminal.
	for _, listener := range c.listeners {
		if err := listener.Start(ctx, &c.wg); err != nil {
			c.logger.Errorf("error starting listener: %v", err)
			return
		}
	}
	c.wg.Wait()
}

func (c *Controller) buildAddress(port int) string {
	return fmt.Sprintf("%s:%v", c.Config.Hostname, port)
}

func (c *Controller) Shutdown(ctx context.Context) {
	c.wg.Wait()
	if c.db != nil {
		data.Shutdown(c.db)
	}
}
