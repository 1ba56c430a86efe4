package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/app"
	"github.com/pinky-hr/attendance-engine/internal/config"
	appHTTP "github.com/pinky-hr/attendance-engine/internal/handler/http"
	"github.com/pinky-hr/attendance-engine/internal/pkg/cron"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})).With(
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
	))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	scheduler := cron.NewScheduler()
	cron.NewSyncJobs(a.Sync, cron.SyncJobsConfig{
		JanitorInterval:  cfg.Sync.JanitorInterval,
		StuckThreshold:   cfg.Sync.JanitorThreshold,
		AutoRequestEvery: cfg.Sync.AutoRequestInterval,
		AutoRequestDays:  cfg.Sync.DefaultDays,
	}).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			AppName:        cfg.App.Name,
			Version:        cfg.App.Version,
			Env:            cfg.App.Env,
			AllowedOrigins: cfg.App.AllowedOrigins,
			AgentKey:       cfg.Agent.Key,
			AgentKeyHash:   cfg.Agent.KeyHash,
			AgentRateLimit: cfg.Agent.RateLimit,
			AgentBurst:     cfg.Agent.Burst,
			MetricsHandler: a.MetricsHandler(),
		},
		a.JWT,
		appHTTP.NewSyncAgentHandler(a.Sync, cfg.Agent.MaxBodyBytes),
		appHTTP.NewSyncHandler(a.Sync),
		appHTTP.NewAttendanceHandler(a.Attendance),
		appHTTP.NewAnomalyHandler(a.Anomalies),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Done reports are reconciled inline and may take a while.
		WriteTimeout: cfg.Sync.RunDeadline + time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server")
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
