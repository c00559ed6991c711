// The server command is the main entrypoint for running fleetgrid. It
// loads the server definitions and launches a listener set for every
// definition with a built-in handler.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fleetgrid/fleetgrid/internal"
	"github.com/fleetgrid/fleetgrid/internal/core"
	"github.com/fleetgrid/fleetgrid/internal/servers/testserver"
)

// builtinHandlers maps server names to their connection handler factories.
// Adding a protocol implementation means adding an entry here; everything
// else (ports, prefixes, commands) comes from the definition file.
var builtinHandlers = map[string]internal.HandlerFactory{
	testserver.ServerName: testserver.NewHandler,
}

func ServerCommand(cmd *cobra.Command, args []string) {
	config := core.LoadConfig(ConfigFlag)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	controller := &internal.Controller{
		Config:   config,
		Handlers: builtinHandlers,
	}
	controller.Start(ctx)
}
