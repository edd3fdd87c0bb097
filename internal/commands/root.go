package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"finanzas/internal/backend"
	"finanzas/internal/cli"
	"finanzas/internal/config"
	"finanzas/internal/log"
)

// Version is overridden at build time.
var Version = "dev"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "finanzas-cli",
		Short:   "Operator tools for the finanzas ingestion service",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newIngestCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newVerifyCommand())

	return rootCmd
}

// runtime is what every subcommand needs: validated settings and a logger
// that keeps stdout free for command output.
type runtime struct {
	cfg    *config.Config
	logger *log.Logger
}

func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg := config.Load()
	if err := cfg.ValidateOffline(); err != nil {
		return nil, err
	}
	level, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Component: log.ComponentCLI, Output: cmd.ErrOrStderr()})
	log.SetDefault(logger)
	return &runtime{cfg: cfg, logger: logger}, nil
}

func (rt *runtime) openBackend(ctx context.Context) (*backend.BackendResult, func(), error) {
	result, err := cli.InitBackend(ctx, rt.logger, rt.cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := result.Cleanup(); err != nil {
			rt.logger.Warn("Backend cleanup failed", "error", err)
		}
	}
	return result, closeFn, nil
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}
