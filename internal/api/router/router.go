package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leadcentral/leadcentral/internal/directory"
	httpmiddleware "github.com/leadcentral/leadcentral/internal/http/middleware"
	"github.com/leadcentral/leadcentral/internal/observability/metrics"
	"github.com/leadcentral/leadcentral/internal/prospects"
	"github.com/leadcentral/leadcentral/internal/stats"
	"github.com/leadcentral/leadcentral/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Metrics            *metrics.ProspectingMetrics
	ProspectsHandler   *prospects.Handler
	DirectoryHandler   *directory.Handler
	StatsHandler       *stats.Handler
	MetricsHandler     http.Handler
	JWTSecret          string
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.Metrics))
	}

	// Public endpoints
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Authenticated API
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.Auth(cfg.JWTSecret))

		// Agent surface: worklists, call results, personal stats
		api.Route("/prospects", func(agent chi.Router) {
			agent.Get("/", cfg.ProspectsHandler.ListWorklist)
			agent.Post("/call-result", cfg.ProspectsHandler.RecordCallResult)
			agent.Get("/stats", cfg.StatsHandler.AgentStats)
		})

		// Admin surface: distribution, import, agent management, dashboards
		api.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.RequireAdmin)

			admin.Get("/stats", cfg.StatsHandler.OrgStats)
			admin.Get("/prospecteurs", cfg.StatsHandler.Prospecteurs)
			admin.Put("/prospecteurs/{agentID}/status", cfg.DirectoryHandler.SetStatus)

			admin.Route("/prospects", func(p chi.Router) {
				p.Get("/unassigned", cfg.ProspectsHandler.ListUnassigned)
				p.Get("/all", cfg.ProspectsHandler.ListAll)
				p.Post("/assign", cfg.ProspectsHandler.Assign)
				p.Post("/import", cfg.ProspectsHandler.Import)
				p.Put("/{prospectID}", cfg.ProspectsHandler.Update)
				p.Delete("/{prospectID}", cfg.ProspectsHandler.Delete)
				p.Put("/{prospectID}/reassign", cfg.ProspectsHandler.Reassign)
			})
		})
	})

	return r
}
