package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/icdev-run/devagent/pkg/actor"
	"github.com/icdev-run/devagent/pkg/config"
	"github.com/icdev-run/devagent/pkg/identity"
	devlog "github.com/icdev-run/devagent/pkg/log"
	"github.com/icdev-run/devagent/pkg/queue"
	"github.com/icdev-run/devagent/pkg/runner"
	"github.com/icdev-run/devagent/pkg/server"
	"github.com/icdev-run/devagent/pkg/shell"
	"github.com/icdev-run/devagent/pkg/workspace"
)

var (
	runConfigPath string
	runPort       int
	runCanisterID string
	runWorkspace  string
	runLogLevel   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dev agent daemon",
	Long: `Start the daemon: load or create the Ed25519 identity, connect to the
remote actor canister, and serve the task API until interrupted.

Queued and in-flight tasks are held in memory only; stopping the process
discards them.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(runConfigPath)
		if err != nil {
			return err
		}
		if runPort != 0 {
			cfg.Port = runPort
		}
		if runCanisterID != "" {
			cfg.CanisterID = runCanisterID
		}
		if runWorkspace != "" {
			cfg.Workspace = runWorkspace
		}
		if runLogLevel != "" {
			cfg.LogLevel = runLogLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if err := devlog.Init(devlog.Config{Level: devlog.Level(cfg.LogLevel)}); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer devlog.Sync()

		id, err := identity.LoadOrCreate(cfg.KeyFile)
		if err != nil {
			return err
		}
		devlog.Info("identity loaded", "principal", id.Principal(), "key_file", cfg.KeyFile)

		client, err := actor.NewCanister(cfg.CanisterID, cfg.ICURL, id.Ed25519())
		if err != nil {
			return err
		}

		sh := shell.NewRunner()
		ws := workspace.NewManager(cfg.Workspace, sh)
		if err := ws.EnsureRoot(); err != nil {
			return err
		}

		q := queue.New(runner.New(client, ws, sh))
		srv, err := server.New(server.Config{
			Port:      cfg.Port,
			Queue:     q,
			Actor:     client,
			Principal: id.Principal(),
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		devlog.Info("devagent started",
			"port", cfg.Port,
			"canister", cfg.CanisterID,
			"workspace", cfg.Workspace,
		)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		devlog.Info("shutting down")
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "devagent.yaml", "Path to YAML config file (optional)")
	runCmd.Flags().IntVar(&runPort, "port", 0, "HTTP listen port (overrides config)")
	runCmd.Flags().StringVar(&runCanisterID, "canister", "", "Actor canister id (overrides config)")
	runCmd.Flags().StringVar(&runWorkspace, "workspace", "", "Workspace root for git checkouts (overrides config)")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
}
