package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// These variables are set via ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("devagent version %s\n", Version)
		if Commit != "" && Commit != "unknown" {
			fmt.Printf("commit: %s\n", Commit)
		}
		if BuildDate != "" && BuildDate != "unknown" {
			fmt.Printf("built at: %s\n", BuildDate)
		}
		return nil
	},
}
