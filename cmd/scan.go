package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pawprint/leakwatch/internal/model"
)

var scanFlush bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one discovery cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Runner.RunCycle(ctx)
		if err != nil {
			return err
		}

		// One-shot mode: push the accumulated batch out now rather than
		// leaving it for a process that is about to exit.
		if scanFlush {
			if err := env.Scheduler.FlushBatch(ctx); err != nil {
				return err
			}
		}

		return printCycleResult(result)
	},
}

func printCycleResult(result *model.CycleResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	scanCmd.Flags().BoolVar(&scanFlush, "flush", true, "flush the lower-tier batch before exiting")
	rootCmd.AddCommand(scanCmd)
}
