package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/loyalty-engine/api"
	"go.uber.org/zap"
)

// shutdownTimeout bounds how long active requests may take to finish.
const shutdownTimeout = 30 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var watchInterval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API on the configured SQLite database.

On SIGINT/SIGTERM the server stops accepting connections, waits for active
requests to complete (30s timeout), then closes the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts, watchInterval)
		},
	}

	cmd.Flags().DurationVar(&watchInterval, "watch-interval", 5*time.Minute, "lifecycle check interval, 0 disables")

	return cmd
}

func runServe(parent context.Context, opts *RootOptions, watchInterval time.Duration) error {
	rt, err := opts.open()
	if err != nil {
		return err
	}
	defer rt.Close()

	if watchInterval > 0 {
		watcher := api.NewLifecycleWatcher(rt.handler.Campaigns, rt.clock, rt.log)
		watcher.CheckInterval = watchInterval
		rt.handler.Watcher = watcher
		watcher.Start()
		defer watcher.Stop()
	}

	router := api.NewRouter(rt.handler, api.RouterOptions{AllowedOrigins: rt.cfg.HTTP.CORSOrigins})
	server := &http.Server{
		Addr:         rt.cfg.Addr(),
		Handler:      router,
		ReadTimeout:  rt.cfg.HTTP.ReadTimeout,
		WriteTimeout: rt.cfg.HTTP.WriteTimeout,
		IdleTimeout:  rt.cfg.HTTP.IdleTimeout,
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		rt.log.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("db", rt.cfg.DB.Path),
			zap.String("timezone", rt.cfg.Loyalty.Timezone),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	rt.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	rt.log.Info("server stopped")
	return nil
}
