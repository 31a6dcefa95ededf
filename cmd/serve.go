package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pawprint/leakwatch/internal/server"
)

var (
	servePort  int
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server (with the watch loop by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if serveWatch {
			go func() {
				if err := env.Runner.Watch(ctx, cfg.Scan.Interval()); err != nil && !errors.Is(err, context.Canceled) {
					zap.L().Error("watch loop exited", zap.Error(err))
					stop()
				}
			}()
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		api := server.New(env.Runner, env.Scheduler, env.Store)
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.Router(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background())
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.Bool("watch", serveWatch))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "run the discovery loop alongside the API")
	rootCmd.AddCommand(serveCmd)
}
