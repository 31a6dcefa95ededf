package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pawprint/leakwatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leakwatch",
	Short: "Early-discovery scanner for unreleased game content",
	Long:  "Polls platform APIs for new badges, passes, products and assets from known developers, classifies findings by leak likelihood, and delivers them to a chat channel.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
