package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for agent storage.
type Repository interface {
	Create(ctx context.Context, agent *Agent) (*Agent, error)
	GetByID(ctx context.Context, id string) (*Agent, error)
	List(ctx context.Context, role string) ([]*Agent, error)
	ListActive(ctx context.Context) ([]*Agent, error)
	SetStatus(ctx context.Context, id, status string) (*Agent, error)
}

// InMemoryRepository keeps agents in a map, for tests and single-node runs.
type InMemoryRepository struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{agents: make(map[string]*Agent)}
}

// Create stores a new agent. A missing id is generated, a missing role
// defaults to prospecteur and a missing status to pending.
func (r *InMemoryRepository) Create(ctx context.Context, agent *Agent) (*Agent, error) {
	cp := *agent
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.Role == "" {
		cp.Role = RoleProspecteur
	}
	if cp.Status == "" {
		cp.Status = StatusPending
	}
	if !ValidStatus(cp.Status) {
		return nil, ErrInvalidStatus
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	r.agents[cp.ID] = &cp
	r.mu.Unlock()

	out := cp
	return &out, nil
}

// GetByID returns the agent or ErrAgentNotFound.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}
	cp := *agent
	return &cp, nil
}

// List returns agents, optionally filtered by role, ordered by id for
// deterministic output.
func (r *InMemoryRepository) List(ctx context.Context, role string) ([]*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		if role != "" && a.Role != role {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListActive returns active prospecteurs ordered by id.
func (r *InMemoryRepository) ListActive(ctx context.Context) ([]*Agent, error) {
	agents, err := r.List(ctx, RoleProspecteur)
	if err != nil {
		return nil, err
	}
	out := agents[:0]
	for _, a := range agents {
		if a.Status == StatusActive {
			out = append(out, a)
		}
	}
	return out, nil
}

// SetStatus updates an agent's status and returns the updated record.
func (r *InMemoryRepository) SetStatus(ctx context.Context, id, status string) (*Agent, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}
	agent.Status = status
	cp := *agent
	return &cp, nil
}
