package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gdugdh24/mpit2026-matching/internal/config"
	"github.com/gdugdh24/mpit2026-matching/internal/infrastructure/container"
	"github.com/gdugdh24/mpit2026-matching/internal/logger"
)

const app = "matchctl"

type rootOptions struct {
	envFile string
	debug   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:          app,
		Short:        "matchctl manages activity match rounds",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "env file with configuration; environment variables take precedence")
	rootCmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "verbose/debug output")

	rootCmd.AddCommand(
		newCreateRoundCmd(opts),
		newRunRoundCmd(opts),
		newCancelRoundCmd(opts),
		newListRoundsCmd(opts),
		newMatchesCmd(opts),
		newTokenCmd(opts),
	)
	return rootCmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(o.envFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if o.debug {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// withApp builds the application container for the duration of fn.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *container.Container) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Logging.JSON, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	application, err := container.NewContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Warn("closing application", zap.Error(err))
		}
	}()
	return fn(ctx, application)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}
