package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/denisok6893-rgb/rental-matching/internal/http"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	_ = v.BindPFlag("server.address", cmd.Flags().Lookup("addr"))
	return cmd
}

func runServe(ctx context.Context) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.CountProperties(ctx)
	if err != nil {
		return err
	}
	zlog.Info("catalog loaded", zap.String("db", cfg.Database.Path), zap.Int("properties", n))

	engine, closeCache := buildEngine(ctx)
	defer closeCache()

	opts := []httpapi.Option{
		httpapi.WithLogger(zlog),
		httpapi.WithWorkers(cfg.Matching.Workers),
		httpapi.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
	}
	if cfg.Catalog.BaseURL != "" {
		client, err := newCatalogClient()
		if err != nil {
			return err
		}
		opts = append(opts, httpapi.WithUpstream(client))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      httpapi.NewServer(engine, st, opts...).Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("API listening", zap.String("addr", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
