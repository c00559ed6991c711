// Convenience tool for relaying a command to a device through its server's
// command channel.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetgrid/fleetgrid/internal/core"
	"github.com/fleetgrid/fleetgrid/internal/core/data"
	"github.com/fleetgrid/fleetgrid/internal/dcs"
)

var CmdTypeFlag string

var sendCmd = &cobra.Command{
	Use:   "send <account> <device> <command> [args...]",
	Short: "Sends a command to a device via its communication server",
	Args:  cobra.MinimumNArgs(3),
	Run:   SendCommand,
}

func SendCommand(cmd *cobra.Command, args []string) {
	config := core.LoadConfig(ConfigFlag)
	registry, err := loadRegistry(config)
	if err != nil {
		fmt.Println("error loading server definitions:", err)
		return
	}

	db, err := data.Initialize(config)
	if err != nil {
		fmt.Println("error connecting to database:", err)
		return
	}
	defer data.Shutdown(db)

	store := data.NewStore(db)
	device, err := store.FindDevice(args[0], args[1])
	if err != nil {
		fmt.Println("error finding device:", err)
		return
	}
	if device == nil {
		fmt.Printf("no device '%s/%s'\n", args[0], args[1])
		return
	}

	dispatcher := dcs.NewDispatcher(quietLogger(), registry, store, config.DispatchTimeout())
	resp, err := dispatcher.DispatchForDevice(device, CmdTypeFlag, args[2], args[3:])
	if err != nil {
		fmt.Println("error dispatching command:", err)
		return
	}
	if resp.OK() {
		fmt.Printf("command sent via %s: %s\n", resp.Server, resp.Message)
	} else {
		fmt.Printf("dispatch failed (%s): %s\n", resp.Result, resp.Message)
	}
}
