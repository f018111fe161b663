package prospects

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadcentral/leadcentral/internal/directory"
	"github.com/leadcentral/leadcentral/internal/http/middleware"
	"github.com/leadcentral/leadcentral/internal/importer"
	"github.com/leadcentral/leadcentral/internal/observability/metrics"
	"github.com/leadcentral/leadcentral/pkg/logging"
)

// StatsInvalidator drops cached aggregates after a write. Optional.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

// Handler handles HTTP requests for prospects, both the agent worklist
// surface and the admin distribution surface.
type Handler struct {
	repo           Repository
	engine         *DispositionEngine
	assigner       *Assigner
	agents         directory.Repository
	invalidator    StatsInvalidator
	metrics        *metrics.ProspectingMetrics
	logger         *logging.Logger
	importMaxBytes int64
}

// NewHandler creates a prospects handler. invalidator and metrics may be nil.
func NewHandler(repo Repository, engine *DispositionEngine, assigner *Assigner,
	agents directory.Repository, invalidator StatsInvalidator,
	m *metrics.ProspectingMetrics, logger *logging.Logger, importMaxBytes int64) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if importMaxBytes <= 0 {
		importMaxBytes = 5 << 20
	}
	return &Handler{
		repo:           repo,
		engine:         engine,
		assigner:       assigner,
		agents:         agents,
		invalidator:    invalidator,
		metrics:        m,
		logger:         logger,
		importMaxBytes: importMaxBytes,
	}
}

// ListWorklist handles GET /api/prospects?liste=
// The caller sees only their own worklists; liste defaults to principale.
func (h *Handler) ListWorklist(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	liste := r.URL.Query().Get("liste")
	if liste == "" {
		liste = StatusPrincipale
	}
	if !WorklistStatus(liste) {
		http.Error(w, "unknown worklist", http.StatusBadRequest)
		return
	}

	out, err := h.repo.ListByAgentAndStatus(r.Context(), identity.AgentID, liste)
	if err != nil {
		h.logger.Error("failed to list worklist", "error", err, "prospecteur_id", identity.AgentID)
		http.Error(w, "failed to list prospects", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// CallResultRequest is the body of POST /api/prospects/call-result.
type CallResultRequest struct {
	ProspectID string `json:"prospect_id"`
	Result     string `json:"result"`
	CallExtra
}

// RecordCallResult handles POST /api/prospects/call-result.
func (h *Handler) RecordCallResult(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	var req CallResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.engine.ApplyOutcome(r.Context(), identity.AgentID, req.ProspectID, req.Result, req.CallExtra)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.invalidator != nil {
		h.invalidator.Invalidate(r.Context())
	}
	writeJSON(w, http.StatusOK, updated)
}

// ListUnassigned handles GET /api/admin/prospects/unassigned.
func (h *Handler) ListUnassigned(w http.ResponseWriter, r *http.Request) {
	out, err := h.repo.ListUnassigned(r.Context())
	if err != nil {
		h.logger.Error("failed to list unassigned prospects", "error", err)
		http.Error(w, "failed to list prospects", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// AssignRequest is the body of POST /api/admin/prospects/assign.
type AssignRequest struct {
	ProspectIDs    []string `json:"prospect_ids"`
	ProspecteurIDs []string `json:"prospecteur_ids"`
}

// Assign handles POST /api/admin/prospects/assign.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	count, err := h.assigner.Assign(r.Context(), req.ProspectIDs, req.ProspecteurIDs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.invalidator != nil {
		h.invalidator.Invalidate(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]int{"assigned": count})
}

// prospectWithOwner decorates a prospect with its owning agent for the
// admin listing.
type prospectWithOwner struct {
	*Prospect
	Prospecteur *directory.Agent `json:"prospecteur,omitempty"`
}

// ListAll handles GET /api/admin/prospects/all?status=
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{}
	switch status := r.URL.Query().Get("status"); status {
	case "", "all":
	case "active":
		filter.Active = true
	default:
		filter.Status = status
	}

	list, err := h.repo.ListAll(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list prospects", "error", err)
		http.Error(w, "failed to list prospects", http.StatusInternalServerError)
		return
	}

	out := make([]prospectWithOwner, 0, len(list))
	for _, p := range list {
		row := prospectWithOwner{Prospect: p}
		if p.OwnerAgentID != "" && h.agents != nil {
			if agent, err := h.agents.GetByID(r.Context(), p.OwnerAgentID); err == nil {
				row.Prospecteur = agent
			}
		}
		out = append(out, row)
	}
	writeJSON(w, http.StatusOK, out)
}

// Import handles POST /api/admin/prospects/import (multipart field "file").
// Parsed rows are inserted as unassigned prospects.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.importMaxBytes); err != nil {
		http.Error(w, "invalid multipart upload", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.importMaxBytes))
	if err != nil {
		http.Error(w, "unreadable upload", http.StatusBadRequest)
		return
	}

	records, err := importer.Parse(data)
	if err != nil {
		h.writeError(w, err)
		return
	}

	batch := make([]*Prospect, 0, len(records))
	for _, rec := range records {
		batch = append(batch, &Prospect{
			Nom:       rec.Nom,
			Secteur:   rec.Secteur,
			Telephone: rec.Telephone,
			Email:     rec.Email,
		})
	}

	count, err := h.repo.InsertBatch(r.Context(), batch)
	if err != nil {
		h.logger.Error("failed to insert imported leads", "error", err)
		http.Error(w, "failed to import prospects", http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveImport(count)
	if h.invalidator != nil {
		h.invalidator.Invalidate(r.Context())
	}
	h.logger.Info("leads imported", "count", count)
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// UpdateRequest is the body of PUT /api/admin/prospects/{id}. Only
// non-empty fields are applied.
type UpdateRequest struct {
	Nom       string `json:"nom"`
	Secteur   string `json:"secteur"`
	Telephone string `json:"telephone"`
	Email     string `json:"email"`
}

// Update handles PUT /api/admin/prospects/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "prospectID")

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Nom == "" && req.Secteur == "" && req.Telephone == "" && req.Email == "" {
		http.Error(w, "nothing to update", http.StatusBadRequest)
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if req.Nom != "" {
		p.Nom = req.Nom
	}
	if req.Secteur != "" {
		p.Secteur = req.Secteur
	}
	if req.Telephone != "" {
		p.Telephone = req.Telephone
	}
	if req.Email != "" {
		p.Email = req.Email
	}

	updated, err := h.repo.Update(r.Context(), p)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/admin/prospects/{id}. Hard delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "prospectID")

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	if h.invalidator != nil {
		h.invalidator.Invalidate(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ReassignRequest is the body of PUT /api/admin/prospects/{id}/reassign.
type ReassignRequest struct {
	ProspecteurID string `json:"prospecteur_id"`
}

// Reassign handles PUT /api/admin/prospects/{id}/reassign.
func (h *Handler) Reassign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "prospectID")

	var req ReassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.assigner.Reassign(r.Context(), id, req.ProspecteurID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.invalidator != nil {
		h.invalidator.Invalidate(r.Context())
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProspectNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrUnowned), errors.Is(err, ErrNotOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrInvalidOutcome),
		errors.Is(err, ErrMissingField),
		errors.Is(err, ErrInvalidTarget),
		errors.Is(err, ErrAlreadyAssigned),
		errors.Is(err, importer.ErrParse):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("prospect operation failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
