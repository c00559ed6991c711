package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ConfigFlag string

func main() {
	rootCmd := &cobra.Command{
		Use:   "fleetgrid",
		Short: "Fleetgrid device communication server and related tools",
		Run:   ServerCommand,
	}
	rootCmd.PersistentFlags().StringVarP(&ConfigFlag, "config", "c", ".", "Path to the directory containing the config file")

	serversCmd.Flags().BoolVarP(&VerboseFlag, "verbose", "v", false, "Dump the full parsed server definitions")
	serversCmd.Flags().BoolVarP(&AllFlag, "all", "a", false, "Include servers without a built-in handler")

	sendCmd.Flags().StringVarP(&CmdTypeFlag, "type", "t", "", "Restrict the command to a command type")

	rootCmd.AddCommand(serversCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(unassignedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
	}
}
