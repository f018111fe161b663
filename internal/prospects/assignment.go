package prospects

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/leadcentral/leadcentral/internal/directory"
	"github.com/leadcentral/leadcentral/internal/observability/metrics"
	"github.com/leadcentral/leadcentral/pkg/logging"
)

var assignmentTracer = otel.Tracer("leadcentral/prospects/assignment")

// Assigner distributes unassigned prospects across selected agents.
type Assigner struct {
	repo    Repository
	agents  directory.Repository
	metrics *metrics.ProspectingMetrics
	logger  *logging.Logger
}

// NewAssigner creates an assignment engine. metrics may be nil.
func NewAssigner(repo Repository, agents directory.Repository, m *metrics.ProspectingMetrics, logger *logging.Logger) *Assigner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Assigner{
		repo:    repo,
		agents:  agents,
		metrics: m,
		logger:  logger,
	}
}

// Assign distributes the prospects over the agents by round robin and
// returns the number assigned. Both id sets are deduplicated and sorted
// ascending before distribution, so the result is a pure function of the
// inputs: prospect[i] goes to agent[i mod k], each agent ends up with
// either floor(n/k) or ceil(n/k) prospects.
//
// Every prospect id must reference an existing, unassigned record and
// every agent id an existing active agent. Assignment itself creates no
// call history event. On a mid-batch write failure the already-written
// prefix is put back in the unassigned pool, so a failed Assign leaves
// the whole selection retryable.
func (a *Assigner) Assign(ctx context.Context, prospectIDs, agentIDs []string) (int, error) {
	ctx, span := assignmentTracer.Start(ctx, "assignment.assign")
	defer span.End()
	span.SetAttributes(
		attribute.Int("assignment.prospects", len(prospectIDs)),
		attribute.Int("assignment.agents", len(agentIDs)),
	)

	prospectIDs = dedupeSorted(prospectIDs)
	agentIDs = dedupeSorted(agentIDs)
	if len(prospectIDs) == 0 {
		return 0, fmt.Errorf("%w: no prospects selected", ErrInvalidTarget)
	}
	if len(agentIDs) == 0 {
		return 0, fmt.Errorf("%w: no agents selected", ErrInvalidTarget)
	}

	for _, id := range agentIDs {
		if err := a.checkAgent(ctx, id); err != nil {
			return 0, err
		}
	}

	// Validate the whole batch before touching any record.
	batch := make([]*Prospect, 0, len(prospectIDs))
	for _, id := range prospectIDs {
		p, err := a.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrProspectNotFound) {
				return 0, fmt.Errorf("%w: unknown prospect %s", ErrInvalidTarget, id)
			}
			return 0, err
		}
		if p.OwnerAgentID != "" {
			return 0, fmt.Errorf("%w: %s", ErrAlreadyAssigned, id)
		}
		batch = append(batch, p)
	}

	for i, p := range batch {
		p.OwnerAgentID = agentIDs[i%len(agentIDs)]
		p.Status = StatusPrincipale
		if _, err := a.repo.Update(ctx, p); err != nil {
			a.unwindAssigned(ctx, batch[:i])
			return 0, err
		}
	}

	a.metrics.ObserveAssignment(len(batch))
	a.logger.Info("prospects assigned",
		"count", len(batch),
		"agents", len(agentIDs),
	)
	return len(batch), nil
}

// Reassign moves one prospect to another active agent and puts it back in
// the principale worklist. Unlike Assign it accepts an already-owned
// prospect; this is the administrator's explicit reassignment path.
func (a *Assigner) Reassign(ctx context.Context, prospectID, agentID string) (*Prospect, error) {
	ctx, span := assignmentTracer.Start(ctx, "assignment.reassign")
	defer span.End()

	if err := a.checkAgent(ctx, agentID); err != nil {
		return nil, err
	}

	p, err := a.repo.GetByID(ctx, prospectID)
	if err != nil {
		return nil, err
	}
	p.OwnerAgentID = agentID
	p.Status = StatusPrincipale

	updated, err := a.repo.Update(ctx, p)
	if err != nil {
		return nil, err
	}
	a.logger.Info("prospect reassigned", "prospect_id", prospectID, "prospecteur_id", agentID)
	return updated, nil
}

// unwindAssigned puts an interrupted batch's written prefix back in the
// unassigned pool so the caller can retry the whole selection without
// tripping over AlreadyAssigned. Best effort: a record that cannot be
// unwound is logged and left for manual reassignment.
func (a *Assigner) unwindAssigned(ctx context.Context, written []*Prospect) {
	for _, p := range written {
		fresh, err := a.repo.GetByID(ctx, p.ID)
		if err == nil {
			fresh.OwnerAgentID = ""
			fresh.Status = StatusUnassigned
			_, err = a.repo.Update(ctx, fresh)
		}
		if err != nil {
			a.logger.Error("failed to unwind interrupted assignment",
				"prospect_id", p.ID,
				"error", err,
			)
		}
	}
}

func (a *Assigner) checkAgent(ctx context.Context, id string) error {
	agent, err := a.agents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrAgentNotFound) {
			return fmt.Errorf("%w: unknown agent %s", ErrInvalidTarget, id)
		}
		return err
	}
	if agent.Status != directory.StatusActive {
		return fmt.Errorf("%w: agent %s is %s", ErrInvalidTarget, id, agent.Status)
	}
	return nil
}

func dedupeSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
