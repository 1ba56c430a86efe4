package http

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/pinky-hr/attendance-engine/internal/handler/http/middleware"
	"github.com/pinky-hr/attendance-engine/internal/pkg/jwt"
	"golang.org/x/time/rate"
)

type RouterConfig struct {
	AppName        string
	Version        string
	Env            string
	AllowedOrigins []string

	AgentKey       string
	AgentKeyHash   string
	AgentRateLimit float64
	AgentBurst     int

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler

	// Logger overrides the JSON request logger, mainly for tests.
	Logger *slog.Logger
}

func NewRouter(cfg RouterConfig, jwtService jwt.Service, agentHandler SyncAgentHandler, syncHandler SyncHandler, attendanceHandler AttendanceHandler, anomalyHandler AnomalyHandler) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logFormat := httplog.SchemaECS.Concise(false)
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			ReplaceAttr: logFormat.ReplaceAttr,
		})).With(
			slog.String("app", cfg.AppName),
			slog.String("version", cfg.Version),
			slog.String("env", cfg.Env),
		)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.AgentKeyHeader},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	limit := rate.Limit(cfg.AgentRateLimit)
	if cfg.AgentRateLimit <= 0 {
		limit = rate.Inf
	}
	agentLimiter := middleware.NewIPRateLimiter(limit, max(cfg.AgentBurst, 1), 10*time.Minute)

	r.Route("/api/sync-agent", func(r chi.Router) {
		r.Use(middleware.RateLimit(agentLimiter))
		r.Use(middleware.AgentKey(cfg.AgentKey, cfg.AgentKeyHash))
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Get("/poll", agentHandler.Poll)
		r.Post("/heartbeat", agentHandler.Heartbeat)
		r.Post("/{id}/start", agentHandler.Start)
		r.Post("/{id}/done", agentHandler.Done)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
		r.Use(middleware.AuthRequired)

		r.Route("/sync", func(r chi.Router) {
			r.Get("/", syncHandler.List)
			r.Get("/agent", syncHandler.AgentStatus)
			r.Get("/events", syncHandler.Events)
			r.Get("/{id}", syncHandler.Get)

			r.With(middleware.AdminOnly).Post("/", syncHandler.Request)
		})

		r.Route("/attendance", func(r chi.Router) {
			r.Get("/", attendanceHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminOnly)
				r.Post("/recalculate", attendanceHandler.Recalculate)
				r.Put("/{employeeID}/{date}/designation", attendanceHandler.SetDesignation)
			})
		})

		r.Route("/anomalies", func(r chi.Router) {
			r.Get("/", anomalyHandler.List)
			r.With(middleware.AdminOnly).Patch("/{id}", anomalyHandler.Close)
		})
	})

	return r
}
