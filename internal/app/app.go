// Package app wires configuration, storage and services into the object
// graph shared by the API server and attendancectl.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pinky-hr/attendance-engine/internal/config"
	"github.com/pinky-hr/attendance-engine/internal/domain/anomaly"
	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/schedule"
	"github.com/pinky-hr/attendance-engine/internal/domain/synclog"
	"github.com/pinky-hr/attendance-engine/internal/pkg/database"
	"github.com/pinky-hr/attendance-engine/internal/pkg/jwt"
	"github.com/pinky-hr/attendance-engine/internal/pkg/metrics"
	"github.com/pinky-hr/attendance-engine/internal/pkg/sse"
	"github.com/pinky-hr/attendance-engine/internal/repository/postgresql"
	anomalyService "github.com/pinky-hr/attendance-engine/internal/service/anomaly"
	attendanceService "github.com/pinky-hr/attendance-engine/internal/service/attendance"
	scheduleService "github.com/pinky-hr/attendance-engine/internal/service/schedule"
	syncService "github.com/pinky-hr/attendance-engine/internal/service/synclog"
	"github.com/pinky-hr/attendance-engine/migrations"
)

type App struct {
	Config *config.Config
	DB     *database.DB

	Registry *prometheus.Registry
	Metrics  *metrics.SyncMetrics

	JWT        jwt.Service
	Builder    *attendanceService.Builder
	Attendance attendance.AttendanceService
	Anomalies  anomaly.AnomalyService
	Sync       synclog.SyncService
}

// New connects to PostgreSQL, applies migrations and builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	policy, err := Policy(cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrations.Apply(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics, err := metrics.NewSyncMetrics(registry)
	if err != nil {
		db.Close()
		return nil, err
	}

	attendanceRepo := postgresql.NewAttendanceRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	punchRepo := postgresql.NewPunchRepository(db)
	scheduleRepo := postgresql.NewScheduleRepository(db)
	syncLogRepo := postgresql.NewSyncLogRepository(db)
	designationLookup := postgresql.NewDesignationLookup(db)
	authorizationLookup := postgresql.NewAuthorizationLookup(db)
	anomalyRepo := postgresql.NewAnomalyRepository(db)

	var resolver schedule.Resolver = scheduleService.NewResolver(scheduleRepo, nil, cfg.Sync.ScheduleCacheTTL)
	detector := attendanceService.NewAnomalyDetector(anomalyRepo, attendanceRepo, authorizationLookup, AnomalyRules(cfg))
	builder := attendanceService.NewBuilder(attendanceRepo, resolver, designationLookup, policy, syncMetrics).
		WithDetector(detector)

	a := &App{
		Config:     cfg,
		DB:         db,
		Registry:   registry,
		Metrics:    syncMetrics,
		JWT:        jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration),
		Builder:    builder,
		Attendance: attendanceService.NewAttendanceService(attendanceRepo, authorizationLookup, builder),
		Anomalies:  anomalyService.NewAnomalyService(anomalyRepo),
		Sync: syncService.NewSyncService(
			syncLogRepo,
			punchRepo,
			employeeRepo,
			builder,
			policy,
			syncService.Options{
				DefaultDays:    cfg.Sync.DefaultDays,
				RunDeadline:    cfg.Sync.RunDeadline,
				Workers:        cfg.Sync.Workers,
				HeartbeatTTL:   cfg.Sync.HeartbeatTTL,
				InactivityDays: cfg.Sync.InactivityDays,
			},
			syncMetrics,
			sse.NewHub(),
		),
	}
	slog.Info("Application initialized", "timezone", cfg.App.Timezone, "workers", cfg.Sync.Workers)
	return a, nil
}

// MetricsHandler serves the application registry.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry})
}

func (a *App) Close() {
	a.DB.Close()
}

// Policy converts the reconcile configuration into a reconciliation policy.
func Policy(cfg *config.Config) (attendanceService.Policy, error) {
	policy := attendanceService.DefaultPolicy()
	rc := cfg.Reconcile

	clocks := []struct {
		name  string
		value string
		dst   *schedule.ClockTime
	}{
		{"RECONCILE_NIGHT_START", rc.NightStart, &policy.NightStart},
		{"RECONCILE_NIGHT_END", rc.NightEnd, &policy.NightEnd},
		{"RECONCILE_MORNING_CUTOFF", rc.MorningCutoff, &policy.MorningCutoff},
		{"RECONCILE_EVENING_CUTOFF", rc.EveningCutoff, &policy.EveningCutoff},
	}
	for _, c := range clocks {
		ct, err := schedule.ParseClockTime(c.value)
		if err != nil {
			return policy, fmt.Errorf("invalid %s: %w", c.name, err)
		}
		*c.dst = ct
	}

	policy.DuplicateWindow = rc.DuplicateWindow
	policy.LunchThreshold = rc.LunchThreshold
	policy.MaxDailyHours = rc.MaxDailyHours
	policy.PartialFraction = rc.PartialFraction
	policy.Location = cfg.Location()
	return policy, nil
}

// AnomalyRules converts the anomaly configuration into detector rules.
func AnomalyRules(cfg *config.Config) attendanceService.AnomalyRules {
	rules := attendanceService.DefaultAnomalyRules()
	if cfg.Anomaly.BreakAllowance > 0 {
		rules.BreakAllowance = cfg.Anomaly.BreakAllowance
	}
	if cfg.Anomaly.LateToAbsence > 0 {
		rules.LateToAbsence = cfg.Anomaly.LateToAbsence
	}
	return rules
}
