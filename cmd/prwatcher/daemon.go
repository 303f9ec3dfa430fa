package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/prminer/internal/adapter/driving/http"
	"github.com/ericfisherdev/prminer/internal/application"
	"github.com/ericfisherdev/prminer/internal/config"
)

func newDaemonCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run reconciliation passes on the poll interval and serve status endpoints",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cfg)
		},
	}
}

func runDaemon(cfg *config.Config) error {
	// 1. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Wire stores, clients and services.
	w, err := newWatcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	// 3. Observers for the status endpoint and metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := httphandler.NewMetrics(reg)
	board := application.NewStatusBoard()

	daemon := application.NewDaemon(w.service, w.online, cfg.PollInterval, board, metrics)

	// 4. HTTP server.
	handler := httphandler.NewServeMux(httphandler.NewHandler(board, slog.Default()), reg, slog.Default())
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("prwatcher started",
		"listen_addr", cfg.ListenAddr,
		"poll_interval", cfg.PollInterval,
	)

	// 5. Passes run on this goroutine until the shutdown signal.
	daemon.Start(ctx)
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
