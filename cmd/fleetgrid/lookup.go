// Convenience tool for finding which account/device a raw modem id maps
// to, across every declared server's unique-id prefixes.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetgrid/fleetgrid/internal/core"
	"github.com/fleetgrid/fleetgrid/internal/core/data"
	"github.com/fleetgrid/fleetgrid/internal/dcs"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <mobileID>",
	Short: "Resolves a raw modem id against the device table",
	Args:  cobra.ExactArgs(1),
	Run:   LookupCommand,
}

func LookupCommand(cmd *cobra.Command, args []string) {
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
	resolver := dcs.NewResolver(quietLogger(), registry, store, store)

	matches := resolver.LookupAcrossAllServers(args[0])
	if len(matches) == 0 {
		fmt.Printf("no device found for %q\n", args[0])
		return
	}
	for _, m := range matches {
		serverName := m.ServerName
		if serverName == "" {
			serverName = "(bare id)"
		}
		fmt.Printf("%s: %s -> %s/%s\n", serverName, m.UniqueID, m.Device.AccountID, m.Device.DeviceID)
	}
}

var unassignedCmd = &cobra.Command{
	Use:   "unassigned",
	Short: "Lists sightings of modem ids that resolved to no device",
	Run:   UnassignedCommand,
}

func UnassignedCommand(cmd *cobra.Command, args []string) {
	config := core.LoadConfig(ConfigFlag)
	db, err := data.Initialize(config)
	if err != nil {
		fmt.Println("error connecting to database:", err)
		return
	}
	defer data.Shutdown(db)

	list, err := data.NewStore(db).ListUnassignedDevices()
	if err != nil {
		fmt.Println("error listing unassigned devices:", err)
		return
	}
	if len(list) == 0 {
		fmt.Println("no unassigned devices recorded")
		return
	}
	for _, u := range list {
		fmt.Printf("%-12s %-20s %-15s last seen %v\n", u.ServerName, u.MobileID, u.IPAddress, u.LastSeen)
	}
}
