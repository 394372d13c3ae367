package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"woorkroom-web/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "woorkroom-web",
		Short:        "Woorkroom sign-up and sign-in frontend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")

	root.AddCommand(
		newCommand("serve", "Serve the web frontend", func(ctx context.Context, opts *app.Options, logger *zap.Logger) error {
			application, err := app.New(ctx, opts, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := application.Close(); err != nil {
					logger.Warn("failed to close application", zap.Error(err))
				}
			}()
			return application.Start(ctx)
		}),
		newCommand("devapi", "Serve a local user API for development", app.RunDevAPI),
	)
	return root
}

type runFunc func(ctx context.Context, opts *app.Options, logger *zap.Logger) error

func newCommand(use, short string, run runFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
	}
	app.NewOptions().AddFlags(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		configFile, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		opts, err := app.Load(viper.New(), cmd.Flags(), configFile)
		if err != nil {
			return err
		}

		logger, err := app.NewLogger(opts.Log.Level, opts.Log.Format)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		if err := run(cmd.Context(), opts, logger); err != nil {
			logger.Error("command failed", zap.String("command", use), zap.Error(err))
			return err
		}
		return nil
	}
	return cmd
}
