package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "devagent",
	Short: "devagent is a daemon that executes dev tasks driven by a canister-hosted LLM.",
	Long: `devagent accepts tasks over HTTP, clones the target git repository, and
drives a bounded conversation with a remote canister-hosted LLM actor,
executing the file, shell, and git commands the actor replies with.`,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
