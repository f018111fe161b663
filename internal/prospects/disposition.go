package prospects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/leadcentral/leadcentral/internal/observability/metrics"
	"github.com/leadcentral/leadcentral/pkg/logging"
)

var dispositionTracer = otel.Tracer("leadcentral/prospects/disposition")

// RdvNotifier is told when an appointment is booked. Failures are the
// notifier's problem; dispositions never fail because of it.
type RdvNotifier interface {
	NotifyRdvBooked(ctx context.Context, p *Prospect, event CallEvent)
}

// DispositionEngine validates and applies call outcomes. It is the sole
// mutation path for a prospect's worklist membership besides assignment.
type DispositionEngine struct {
	repo     Repository
	notifier RdvNotifier
	metrics  *metrics.ProspectingMetrics
	logger   *logging.Logger
}

// NewDispositionEngine creates a disposition engine. notifier and metrics
// may be nil.
func NewDispositionEngine(repo Repository, notifier RdvNotifier, m *metrics.ProspectingMetrics, logger *logging.Logger) *DispositionEngine {
	if logger == nil {
		logger = logging.Default()
	}
	return &DispositionEngine{
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// ApplyOutcome records one call result for the prospect and moves it to
// the matching worklist. Exactly one history event is appended per call,
// including repeat applications of the same outcome. Fields belonging to
// other outcome kinds are overwritten, never merged; they survive only in
// the call history. Returns ErrConflict when a concurrent write raced on
// the record, in which case the caller retries with the refreshed record.
func (e *DispositionEngine) ApplyOutcome(ctx context.Context, callerAgentID, prospectID, outcome string, extra CallExtra) (*Prospect, error) {
	ctx, span := dispositionTracer.Start(ctx, "disposition.apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("prospect.id", prospectID),
		attribute.String("call.outcome", outcome),
	)

	if !ValidOutcome(outcome) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}
	if err := requireFields(outcome, extra); err != nil {
		return nil, err
	}

	p, err := e.repo.GetByID(ctx, prospectID)
	if err != nil {
		return nil, err
	}
	if p.OwnerAgentID == "" {
		return nil, ErrUnowned
	}
	if callerAgentID != "" && p.OwnerAgentID != callerAgentID {
		return nil, ErrNotOwner
	}

	now := time.Now().UTC()
	applyTransition(p, outcome, extra, now)

	event := CallEvent{
		ID:           uuid.New().String(),
		ProspectID:   p.ID,
		AgentID:      p.OwnerAgentID,
		Outcome:      outcome,
		Timestamp:    now,
		RappelDate:   p.RappelDate,
		RappelNote:   p.RappelNote,
		RdvDate:      p.RdvDate,
		RdvHeure:     p.RdvHeure,
		RdvTelephone: p.RdvTelephone,
		RdvEmail:     p.RdvEmail,
		RdvNote:      p.RdvNote,
	}

	updated, err := e.repo.RecordCall(ctx, p, event)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			e.metrics.ObserveConflict()
		}
		return nil, err
	}

	e.metrics.ObserveOutcome(outcome)
	e.logger.Info("call outcome recorded",
		"prospect_id", updated.ID,
		"prospecteur_id", updated.OwnerAgentID,
		"outcome", outcome,
	)

	if outcome == OutcomeRdvPris && e.notifier != nil {
		e.notifier.NotifyRdvBooked(ctx, updated, event)
	}
	return updated, nil
}

func requireFields(outcome string, extra CallExtra) error {
	switch outcome {
	case OutcomeARappeler:
		if extra.RappelDate == "" {
			return fmt.Errorf("%w: rappel_date", ErrMissingField)
		}
	case OutcomeRdvPris:
		if extra.RdvDate == "" {
			return fmt.Errorf("%w: rdv_date", ErrMissingField)
		}
		if extra.RdvHeure == "" {
			return fmt.Errorf("%w: rdv_heure", ErrMissingField)
		}
	}
	return nil
}

// applyTransition rewrites the prospect's active record for the outcome.
func applyTransition(p *Prospect, outcome string, extra CallExtra, now time.Time) {
	telephone := p.Telephone
	email := p.Email

	p.RappelDate = ""
	p.RappelNote = ""
	p.RdvDate = ""
	p.RdvHeure = ""
	p.RdvTelephone = ""
	p.RdvEmail = ""
	p.RdvNote = ""

	switch outcome {
	case OutcomeRefus:
		p.Status = StatusRefus
	case OutcomePasDeReponse:
		p.Status = StatusPasDeReponse
		p.NoResponseAttempts++
	case OutcomeARappeler:
		p.Status = StatusARappeler
		p.RappelDate = extra.RappelDate
		p.RappelNote = extra.RappelNote
	case OutcomeRdvPris:
		p.Status = StatusRdvPris
		p.RdvDate = extra.RdvDate
		p.RdvHeure = extra.RdvHeure
		p.RdvTelephone = extra.RdvTelephone
		p.RdvEmail = extra.RdvEmail
		p.RdvNote = extra.RdvNote
		if p.RdvTelephone == "" {
			p.RdvTelephone = telephone
		}
		if p.RdvEmail == "" {
			p.RdvEmail = email
		}
	}
	p.LastCallAt = &now
}
