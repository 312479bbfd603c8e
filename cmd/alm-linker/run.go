package main

import (
	"context"

	"github.com/alm-toolkit/alm-linker/pkg/config"
	"github.com/alm-toolkit/alm-linker/pkg/event"
	"github.com/alm-toolkit/alm-linker/pkg/observability"
	"github.com/alm-toolkit/alm-linker/pkg/runner"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Upload a workspace snapshot archive and link it",
	Long: `Archive the whole workspace into a single file, upload it, and
replace the entity's snapshot field with a reference to it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd.Context(), func(ctx context.Context, r *runner.Runner) error {
			return r.RunSnapshot(ctx)
		})
	},
}

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Upload glob-discovered artifacts and link them",
	Long: `Discover files matching the configured glob patterns, upload
each one, and replace the entity's artifacts field with the references.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd.Context(), func(ctx context.Context, r *runner.Runner) error {
			return r.RunArtifacts(ctx)
		})
	},
}

// runAction wires config, event context and logging, then executes one run.
func runAction(ctx context.Context, action func(context.Context, *runner.Runner) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := observability.NewLogger(cfg.LogLevel)

	evt, err := event.FromEnv()
	if err != nil {
		return err
	}

	// Not a pull request: clean no-op before any validation or network
	// call, so scheduled or push builds exit 0.
	if !evt.IsPullRequest() {
		log.Info("no pull request context, exiting as a no-op")
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := action(ctx, runner.New(cfg, evt, log)); err != nil {
		log.Error("run failed", observability.Err(err))
		return err
	}
	log.Info("run succeeded")
	return nil
}

// loadConfig loads the config file from --config or the environment.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromEnv()
}
