package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"chatcart/internal/httpapi"
	"chatcart/internal/logger"
)

func newServeCmd(configPath *string) *cobra.Command {
	var bindAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := wireApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if bindAddr != "" {
				a.cfg.Server.BindAddr = bindAddr
			}
			return serve(ctx, a)
		},
	}
	cmd.Flags().StringVar(&bindAddr, "bind", "", "listen address, overrides server.bind_addr")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.BindAddr,
		Handler:           httpapi.New(a.processor, a.catalog, a.metrics).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	janitorInterval := a.cfg.Session.InactivityTimeout / 4
	a.sessions.StartJanitor(ctx, janitorInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		// Warm the catalog so the first turn does not pay for the fetch.
		n := a.catalog.Refresh(gctx)
		logger.Info().Int("products", n).Msg("Catalog loaded")
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info().Msg("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
