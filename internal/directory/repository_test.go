package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCreateDefaults(t *testing.T) {
	repo := NewInMemoryRepository()

	agent, err := repo.Create(context.Background(), &Agent{
		Nom:    "Durand",
		Prenom: "Claire",
		Email:  "claire.durand@leadcentral.fr",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, agent.ID)
	assert.Equal(t, RoleProspecteur, agent.Role)
	assert.Equal(t, StatusPending, agent.Status)
	assert.False(t, agent.CreatedAt.IsZero())
}

func TestInMemoryCreateRejectsBadStatus(t *testing.T) {
	repo := NewInMemoryRepository()
	_, err := repo.Create(context.Background(), &Agent{Status: "banned"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestInMemoryGetNotFound(t *testing.T) {
	repo := NewInMemoryRepository()
	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestInMemorySetStatus(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	agent, err := repo.Create(ctx, &Agent{ID: "agent-1"})
	require.NoError(t, err)
	require.Equal(t, StatusPending, agent.Status)

	updated, err := repo.SetStatus(ctx, "agent-1", StatusActive)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, updated.Status)

	_, err = repo.SetStatus(ctx, "agent-1", "banned")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = repo.SetStatus(ctx, "missing", StatusActive)
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestInMemoryListFilters(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	seed := func(id, role, status string) {
		_, err := repo.Create(ctx, &Agent{ID: id, Role: role, Status: status})
		require.NoError(t, err)
	}
	seed("a1", RoleProspecteur, StatusActive)
	seed("a2", RoleProspecteur, StatusPending)
	seed("a3", RoleAdmin, StatusActive)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Ordered by id for deterministic output.
	assert.Equal(t, "a1", all[0].ID)
	assert.Equal(t, "a3", all[2].ID)

	prospecteurs, err := repo.List(ctx, RoleProspecteur)
	require.NoError(t, err)
	assert.Len(t, prospecteurs, 2)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a1", active[0].ID)
}
