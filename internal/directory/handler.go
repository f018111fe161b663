package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadcentral/leadcentral/pkg/logging"
)

// ActivationNotifier is told when an agent account becomes active.
type ActivationNotifier interface {
	NotifyAgentActivated(ctx context.Context, agent *Agent)
}

// Handler handles admin HTTP requests for agent accounts.
type Handler struct {
	repo     Repository
	notifier ActivationNotifier
	logger   *logging.Logger
}

// NewHandler creates a directory handler. notifier may be nil.
func NewHandler(repo Repository, notifier ActivationNotifier, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, notifier: notifier, logger: logger}
}

// SetStatusRequest is the body of PUT /api/admin/prospecteurs/{id}/status.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus handles PUT /api/admin/prospecteurs/{id}/status.
// Moving an agent to active triggers the activation email.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "agentID")

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	previous, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	agent, err := h.repo.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("agent status changed",
		"agent_id", agent.ID,
		"from", previous.Status,
		"to", agent.Status,
	)
	if h.notifier != nil && previous.Status != StatusActive && agent.Status == StatusActive {
		h.notifier.NotifyAgentActivated(r.Context(), agent)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(agent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAgentNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("agent operation failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
