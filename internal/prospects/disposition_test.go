package prospects

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOwnedProspect(t *testing.T, repo *InMemoryRepository, owner string) *Prospect {
	t.Helper()
	p, err := repo.Insert(context.Background(), &Prospect{
		Nom:          "Boulangerie Martin",
		Secteur:      "Alimentation",
		Telephone:    "0612345678",
		Email:        "contact@boulangerie-martin.fr",
		OwnerAgentID: owner,
		Status:       StatusPrincipale,
	})
	require.NoError(t, err)
	return p
}

type fakeNotifier struct {
	booked []string
}

func (f *fakeNotifier) NotifyRdvBooked(_ context.Context, p *Prospect, _ CallEvent) {
	f.booked = append(f.booked, p.ID)
}

func TestApplyOutcomeRdvPris(t *testing.T) {
	repo := NewInMemoryRepository()
	engine := NewDispositionEngine(repo, nil, nil, nil)
	p := seedOwnedProspect(t, repo, "agent-1")

	updated, err := engine.ApplyOutcome(context.Background(), "agent-1", p.ID, OutcomeRdvPris, CallExtra{
		RdvDate:  "2024-06-01",
		RdvHeure: "14:00",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusRdvPris, updated.Status)
	assert.Equal(t, "2024-06-01", updated.RdvDate)
	assert.Equal(t, "14:00", updated.RdvHeure)
	assert.Len(t, updated.CallHistory, 1)
	assert.Equal(t, OutcomeRdvPris, updated.CallHistory[0].Outcome)

	// rdv contact fields default to the prospect's own phone/email.
	assert.Equal(t, "0612345678", updated.RdvTelephone)
	assert.Equal(t, "contact@boulangerie-martin.fr", updated.RdvEmail)
}

func TestApplyOutcomeRdvPrisExplicitContact(t *testing.T) {
	repo := NewInMemoryRepository()
	engine := NewDispositionEngine(repo, nil, nil, nil)
	p := seedOwnedProspect(t, repo, "agent-1")

	updated, err := engine.ApplyOutcome(context.Background(), "agent-1", p.ID, OutcomeRdvPris, CallExtra{
		RdvDate:      "2024-06-01",
		RdvHeure:     "14:00",
		RdvTelephone: "0700000000",
		RdvEmail:     "gerant@boulangerie-martin.fr",
	})
	require.NoError(t, err)
	assert.Equal(t, "0700000000", updated.RdvTelephone)
	assert.Equal(t, "gerant@boulangerie-martin.fr", updated.RdvEmail)
}

func TestApplyOutcomeUnowned(t *testing.T) {
	repo := NewInMemoryRepository()
	engine := NewDispositionEngine(repo, nil, nil, nil)
	p, err := repo.Insert(context.Background(), &Prospect{
		Nom:       "Garage Dupont",
		Secteur:   "Automobile",
		Telephone: "0611111111",
	})
	require.NoError(t, err)

	_, err = engine.ApplyOutcome(context.Background(), "agent-1", p.ID, OutcomeRefus, CallExtra{})
	assert.ErrorIs(t, err, ErrUnowned)
}

func TestApplyOutcomeNotOwner(t *testing.T) {
	repo := NewInMemoryRepository()
	engine := NewDispositionEngine(repo, nil, nil, nil)
	p := seedOwnedProspect(t, repo, "agent-1")

	_, err := engine.ApplyOutcome(context.Background(), "agent-2", p.ID, OutcomeRefus, CallExtra{})
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestApplyOutcomeValidation(t *testing.T) {
	repo := NewInMemoryRepository()
	engine := NewDispositionEngine(repo, nil, nil, nil)
	p := seedOwnedProspect(t, repo, "agent-1")

	tests := []struct {
		name    string
		outcome string
		extra   CallExtra
		wantErr error
	}{
		{"unknown outcome", "injoignable", CallExtra{}, ErrInvalidOutcome},
		{"rappel without date", OutcomeARappeler, CallExtra{RappelNote: "rappeler lundi"}, ErrMissingField},
		{"rdv without date", OutcomeRdvPris, CallExtra{RdvHeure: "14:00"}, ErrMissingField},
		{"rdv without heure", OutcomeRdvPris, CallExtra{RdvDate: "2024-06-01"}, ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.ApplyOutcome(context.Background(), "agent-1", p.ID, tt.outcome, tt.extra)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Validation failures must not touch the record.
	fresh, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.CallHistory)
	assert.Equal(t, StatusPrincipale, fresh.Status)
}

func TestApplyOutcomeNotFound(t *testing.T) {
	repo := NewInMemoryRepository()
	engine := NewDispositionEngine(repo, nil, nil, nil)

	_, err := engine.ApplyOutcome(context.Background(), "agent-1", "missing", OutcomeRefus, CallExtra{})
	assert.ErrorIs(t, err, ErrProspectNotFound)
}

func TestApplyOutcomeOverwritesOtherKindFields(t *testing.T) {
	repo := NewInMemoryRepository()
	engine := NewDispositionEngine(repo, nil, nil, nil)
	p := seedOwnedProspect(t, repo, "agent-1")
	ctx := context.Background()

	_, err := engine.ApplyOutcome(ctx, "agent-1", p.ID, OutcomeARappeler, CallExtra{
		RappelDate: "2024-05-20",
		RappelNote: "rappeler après 18h",
	})
	require.NoError(t, err)

	updated, err := engine.ApplyOutcome(ctx, "agent-1", p.ID, OutcomeRdvPris, CallExtra{
		RdvDate:  "2024-06-01",
		RdvHeure: "14:00",
	})
	require.NoError(t, err)

	// The active record loses the rappel fields; history keeps them.
	assert.Empty(t, updated.RappelDate)
	assert.Empty(t, updated.RappelNote)
	require.Len(t, updated.CallHistory, 2)
	assert.Equal(t, "2024-05-20", updated.CallHistory[0].RappelDate)
	assert.Equal(t, "2024-06-01", updated.CallHistory[1].RdvDate)
}

func TestApplyOutcomeRefusIsTerminal(t *testing.T) {
	repo := NewInMemoryRepository()
	engine := NewDispositionEngine(repo, nil, nil, nil)
	p := seedOwnedProspect(t, repo, "agent-1")
	ctx := context.Background()

	_, err := engine.ApplyOutcome(ctx, "agent-1", p.ID, OutcomeRdvPris, CallExtra{
		RdvDate:  "2024-06-01",
		RdvHeure: "14:00",
	})
	require.NoError(t, err)

	updated, err := engine.ApplyOutcome(ctx, "agent-1", p.ID, OutcomeRefus, CallExtra{})
	require.NoError(t, err)

	assert.Equal(t, StatusRefus, updated.Status)
	assert.False(t, WorklistStatus(updated.Status))
	assert.Empty(t, updated.RdvDate)
	assert.Empty(t, updated.RdvHeure)

	// The refused prospect leaves every agent worklist.
	for _, status := range []string{StatusPrincipale, StatusARappeler, StatusPasDeReponse, StatusRdvPris} {
		list, err := repo.ListByAgentAndStatus(ctx, "agent-1", status)
		require.NoError(t, err)
		assert.Empty(t, list)
	}
}

func TestApplyOutcomeHistoryAppendOnly(t *testing.T) {
	repo := NewInMemoryRepository()
	engine := NewDispositionEngine(repo, nil, nil, nil)
	p := seedOwnedProspect(t, repo, "agent-1")
	ctx := context.Background()

	// Re-applying the same outcome with the same extras is safe but still
	// appends a new event; history is never deduplicated.
	for i := 1; i <= 3; i++ {
		updated, err := engine.ApplyOutcome(ctx, "agent-1", p.ID, OutcomePasDeReponse, CallExtra{})
		require.NoError(t, err)
		assert.Len(t, updated.CallHistory, i)
		assert.Equal(t, i, updated.NoResponseAttempts)
	}
}

func TestApplyOutcomeNotifiesOnRdv(t *testing.T) {
	repo := NewInMemoryRepository()
	notifier := &fakeNotifier{}
	engine := NewDispositionEngine(repo, notifier, nil, nil)
	p := seedOwnedProspect(t, repo, "agent-1")
	ctx := context.Background()

	_, err := engine.ApplyOutcome(ctx, "agent-1", p.ID, OutcomeARappeler, CallExtra{RappelDate: "2024-05-20"})
	require.NoError(t, err)
	assert.Empty(t, notifier.booked)

	_, err = engine.ApplyOutcome(ctx, "agent-1", p.ID, OutcomeRdvPris, CallExtra{RdvDate: "2024-06-01", RdvHeure: "14:00"})
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, notifier.booked)
}
