package prospects

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows ListAll. Status filters by exact status; Active keeps
// prospects that are owned and in one of the four worklists.
type ListFilter struct {
	Status string
	Active bool
}

// Repository defines the interface for prospect storage. All list methods
// order by most-recently-updated first with ties broken by id ascending,
// so reads are deterministic for a given store state.
type Repository interface {
	Insert(ctx context.Context, p *Prospect) (*Prospect, error)
	InsertBatch(ctx context.Context, ps []*Prospect) (int, error)
	GetByID(ctx context.Context, id string) (*Prospect, error)
	// Update persists scalar fields. The stored version must match
	// p.Version or ErrConflict is returned.
	Update(ctx context.Context, p *Prospect) (*Prospect, error)
	// RecordCall is Update plus an atomic append of one call event.
	RecordCall(ctx context.Context, p *Prospect, event CallEvent) (*Prospect, error)
	Delete(ctx context.Context, id string) error
	ListByAgentAndStatus(ctx context.Context, agentID, status string) ([]*Prospect, error)
	ListByAgent(ctx context.Context, agentID string) ([]*Prospect, error)
	ListUnassigned(ctx context.Context) ([]*Prospect, error)
	ListAll(ctx context.Context, filter ListFilter) ([]*Prospect, error)
	ListEventsByAgent(ctx context.Context, agentID string) ([]CallEvent, error)
	ListAllEvents(ctx context.Context) ([]CallEvent, error)
}

// InMemoryRepository keeps prospects in a map guarded by a RWMutex.
// Per-record serialization comes from the version check under the write
// lock; statistics reads never block behind it longer than a map copy.
type InMemoryRepository struct {
	mu        sync.RWMutex
	prospects map[string]*Prospect
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{prospects: make(map[string]*Prospect)}
}

// Insert stores a new prospect. Missing id and timestamps are filled in;
// a prospect without an owner starts unassigned.
func (r *InMemoryRepository) Insert(ctx context.Context, p *Prospect) (*Prospect, error) {
	cp := clone(p)
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.Status == "" {
		cp.Status = StatusUnassigned
	}
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = cp.CreatedAt
	cp.Version = 1

	r.mu.Lock()
	r.prospects[cp.ID] = cp
	r.mu.Unlock()

	return clone(cp), nil
}

// InsertBatch stores parsed lead records and reports the count inserted.
func (r *InMemoryRepository) InsertBatch(ctx context.Context, ps []*Prospect) (int, error) {
	for _, p := range ps {
		if _, err := r.Insert(ctx, p); err != nil {
			return 0, err
		}
	}
	return len(ps), nil
}

// GetByID returns the prospect with its call history, or ErrProspectNotFound.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Prospect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.prospects[id]
	if !ok {
		return nil, ErrProspectNotFound
	}
	return clone(p), nil
}

// Update persists p if its version still matches the stored record.
func (r *InMemoryRepository) Update(ctx context.Context, p *Prospect) (*Prospect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(p, nil)
}

// RecordCall persists p and appends one call event under the same lock.
func (r *InMemoryRepository) RecordCall(ctx context.Context, p *Prospect, event CallEvent) (*Prospect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(p, &event)
}

func (r *InMemoryRepository) updateLocked(p *Prospect, event *CallEvent) (*Prospect, error) {
	stored, ok := r.prospects[p.ID]
	if !ok {
		return nil, ErrProspectNotFound
	}
	if stored.Version != p.Version {
		return nil, ErrConflict
	}

	cp := clone(p)
	cp.CallHistory = stored.CallHistory
	cp.Version = stored.Version + 1
	cp.UpdatedAt = time.Now().UTC()
	if event != nil {
		cp.CallHistory = append(cp.CallHistory, *event)
	}
	r.prospects[cp.ID] = cp
	return clone(cp), nil
}

// Delete removes the prospect permanently.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.prospects[id]; !ok {
		return ErrProspectNotFound
	}
	delete(r.prospects, id)
	return nil
}

// ListByAgentAndStatus returns the agent's worklist for one status.
func (r *InMemoryRepository) ListByAgentAndStatus(ctx context.Context, agentID, status string) ([]*Prospect, error) {
	return r.list(func(p *Prospect) bool {
		return p.OwnerAgentID == agentID && p.Status == status
	}), nil
}

// ListByAgent returns every prospect owned by the agent.
func (r *InMemoryRepository) ListByAgent(ctx context.Context, agentID string) ([]*Prospect, error) {
	return r.list(func(p *Prospect) bool {
		return agentID != "" && p.OwnerAgentID == agentID
	}), nil
}

// ListUnassigned returns prospects without an owner.
func (r *InMemoryRepository) ListUnassigned(ctx context.Context) ([]*Prospect, error) {
	return r.list(func(p *Prospect) bool {
		return p.OwnerAgentID == ""
	}), nil
}

// ListAll returns prospects matching the filter.
func (r *InMemoryRepository) ListAll(ctx context.Context, filter ListFilter) ([]*Prospect, error) {
	return r.list(func(p *Prospect) bool {
		if filter.Status != "" && p.Status != filter.Status {
			return false
		}
		if filter.Active && (p.OwnerAgentID == "" || !WorklistStatus(p.Status)) {
			return false
		}
		return true
	}), nil
}

func (r *InMemoryRepository) list(keep func(*Prospect) bool) []*Prospect {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*Prospect{}
	for _, p := range r.prospects {
		if keep(p) {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListEventsByAgent returns the call events of all prospects currently
// owned by the agent, oldest first.
func (r *InMemoryRepository) ListEventsByAgent(ctx context.Context, agentID string) ([]CallEvent, error) {
	return r.events(func(p *Prospect) bool {
		return agentID != "" && p.OwnerAgentID == agentID
	}), nil
}

// ListAllEvents returns every call event in the store, oldest first.
func (r *InMemoryRepository) ListAllEvents(ctx context.Context) ([]CallEvent, error) {
	return r.events(func(*Prospect) bool { return true }), nil
}

func (r *InMemoryRepository) events(keep func(*Prospect) bool) []CallEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []CallEvent{}
	for _, p := range r.prospects {
		if keep(p) {
			out = append(out, p.CallHistory...)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func clone(p *Prospect) *Prospect {
	cp := *p
	if p.CallHistory != nil {
		cp.CallHistory = make([]CallEvent, len(p.CallHistory))
		copy(cp.CallHistory, p.CallHistory)
	}
	if p.LastCallAt != nil {
		t := *p.LastCallAt
		cp.LastCallAt = &t
	}
	return &cp
}
