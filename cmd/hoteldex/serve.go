package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hoteldex/internal/config"
	"github.com/kailas-cloud/hoteldex/internal/scheduler"
	chiTransport "github.com/kailas-cloud/hoteldex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/hoteldex/internal/usecase/health"
	queryuc "github.com/kailas-cloud/hoteldex/internal/usecase/query"
	syncuc "github.com/kailas-cloud/hoteldex/internal/usecase/sync"
	"github.com/kailas-cloud/hoteldex/internal/version"
)

func newServeCmd(env *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the sync scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *env)
		},
	}
}

func runServe(ctx context.Context, env string) error {
	a, err := newApp(ctx, env)
	if err != nil {
		return err
	}
	defer a.close()
	ctx = a.withLogger(ctx)
	cfg := a.cfg

	a.logger.Info("Starting hoteldex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("build_date", version.Date),
		zap.String("env", a.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("provider", a.provider.Name()),
	)

	// Pass nil interface (not typed nil pointer!) when live lookups cannot authenticate.
	var live queryuc.Live
	if a.provider.Configured() {
		live = a.provider
	}
	querySvc := queryuc.New(a.index, live, cfg.Query.HotelIndex, cfg.Query.RegionIndex).
		WithLiveFallback(cfg.Query.FallbackEnabled())
	healthSvc := healthuc.New(a.store, a.provider).
		WithIndexes(a.index, cfg.Query.HotelIndex, cfg.Query.RegionIndex)

	server := chiTransport.NewServer(a.registry, querySvc, healthSvc, a.logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	sched := scheduler.New(a.registry, scheduleEntries(cfg.Sync.Schedules))
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	case err := <-serveErr:
		a.logger.Error("HTTP server error", zap.Error(err))
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}
	<-schedDone

	// Running jobs finish on their own timeout; stop waiting at the shutdown deadline.
	jobsDone := make(chan struct{})
	go func() {
		a.registry.Wait()
		close(jobsDone)
	}()
	select {
	case <-jobsDone:
	case <-shutdownCtx.Done():
		a.logger.Warn("Sync jobs still running at shutdown")
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}

func scheduleEntries(schedules []config.ScheduleConfig) []scheduler.Entry {
	entries := make([]scheduler.Entry, 0, len(schedules))
	for _, s := range schedules {
		entries = append(entries, scheduler.Entry{
			Request: syncuc.Request{
				Kind:     s.Kind,
				Index:    s.Index,
				Country:  s.Country,
				Language: s.Language,
			},
			Interval: s.Interval,
		})
	}
	return entries
}
