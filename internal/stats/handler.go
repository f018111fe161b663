package stats

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/leadcentral/leadcentral/internal/http/middleware"
	"github.com/leadcentral/leadcentral/pkg/logging"
)

// Source is the read surface handlers need; both Aggregator and
// CachedAggregator satisfy it.
type Source interface {
	AgentStats(ctx context.Context, agentID string) (*AgentStats, error)
	OrgStats(ctx context.Context) (*OrgStats, error)
	Prospecteurs(ctx context.Context) ([]*ProspecteurOverview, error)
}

// Handler serves the agent and admin statistics endpoints.
type Handler struct {
	source Source
	logger *logging.Logger
}

// NewHandler creates a stats handler.
func NewHandler(source Source, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{source: source, logger: logger}
}

// AgentStats handles GET /api/prospects/stats for the authenticated agent.
func (h *Handler) AgentStats(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	out, err := h.source.AgentStats(r.Context(), identity.AgentID)
	if err != nil {
		h.logger.Error("failed to compute agent stats", "error", err, "prospecteur_id", identity.AgentID)
		http.Error(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, out)
}

// OrgStats handles GET /api/admin/stats.
func (h *Handler) OrgStats(w http.ResponseWriter, r *http.Request) {
	out, err := h.source.OrgStats(r.Context())
	if err != nil {
		h.logger.Error("failed to compute org stats", "error", err)
		http.Error(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, out)
}

// Prospecteurs handles GET /api/admin/prospecteurs.
func (h *Handler) Prospecteurs(w http.ResponseWriter, r *http.Request) {
	out, err := h.source.Prospecteurs(r.Context())
	if err != nil {
		h.logger.Error("failed to list prospecteurs", "error", err)
		http.Error(w, "failed to list prospecteurs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
