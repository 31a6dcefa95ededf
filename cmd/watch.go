package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run discovery cycles continuously",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("watch started",
			zap.Duration("scan_interval", cfg.Scan.Interval()),
			zap.Duration("batch_interval", cfg.Scan.BatchInterval()),
		)

		err = env.Runner.Watch(ctx, cfg.Scan.Interval())
		if errors.Is(err, context.Canceled) {
			zap.L().Info("watch stopped")
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
