package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadcentral/leadcentral/internal/directory"
	"github.com/leadcentral/leadcentral/internal/prospects"
)

type statsFixture struct {
	repo   *prospects.InMemoryRepository
	agents *directory.InMemoryRepository
	agg    *Aggregator
}

func newStatsFixture() *statsFixture {
	repo := prospects.NewInMemoryRepository()
	agents := directory.NewInMemoryRepository()
	return &statsFixture{repo: repo, agents: agents, agg: NewAggregator(repo, agents)}
}

func (f *statsFixture) addAgent(t *testing.T, id string) {
	t.Helper()
	_, err := f.agents.Create(context.Background(), &directory.Agent{
		ID: id, Nom: "Agent", Prenom: id, Status: directory.StatusActive,
	})
	require.NoError(t, err)
}

func (f *statsFixture) addProspect(t *testing.T, id, owner, status string) {
	t.Helper()
	_, err := f.repo.Insert(context.Background(), &prospects.Prospect{
		ID: id, Nom: "Prospect " + id, Secteur: "Commerce", Telephone: "0600000000",
		OwnerAgentID: owner, Status: status,
	})
	require.NoError(t, err)
}

func (f *statsFixture) addCall(t *testing.T, prospectID, agentID, outcome string, at time.Time) {
	t.Helper()
	ctx := context.Background()
	p, err := f.repo.GetByID(ctx, prospectID)
	require.NoError(t, err)
	_, err = f.repo.RecordCall(ctx, p, prospects.CallEvent{
		ID:         fmt.Sprintf("%s-%d", prospectID, len(p.CallHistory)+1),
		ProspectID: prospectID,
		AgentID:    agentID,
		Outcome:    outcome,
		Timestamp:  at,
	})
	require.NoError(t, err)
}

func TestAgentStats(t *testing.T) {
	f := newStatsFixture()
	f.addAgent(t, "agent-1")
	f.addProspect(t, "p1", "agent-1", prospects.StatusRdvPris)
	f.addProspect(t, "p2", "agent-1", prospects.StatusRefus)
	f.addProspect(t, "p3", "agent-1", prospects.StatusARappeler)
	f.addProspect(t, "p4", "agent-1", prospects.StatusPasDeReponse)
	f.addProspect(t, "p5", "agent-2", prospects.StatusRdvPris)

	day1 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	f.addCall(t, "p1", "agent-1", prospects.OutcomeRdvPris, day1)
	f.addCall(t, "p2", "agent-1", prospects.OutcomeRefus, day1)
	f.addCall(t, "p3", "agent-1", prospects.OutcomeARappeler, day2)
	f.addCall(t, "p4", "agent-1", prospects.OutcomePasDeReponse, day2)

	got, err := f.agg.AgentStats(context.Background(), "agent-1")
	require.NoError(t, err)

	assert.Equal(t, 4, got.TotalCalls)
	assert.Equal(t, 4, got.ProspectsCount)
	assert.Equal(t, 1, got.RdvPris)
	assert.Equal(t, 1, got.Refus)
	assert.Equal(t, 1, got.ARappeler)
	assert.Equal(t, 1, got.PasDeReponse)
	// 1 rdv over 4 calls rounds to 25.
	assert.Equal(t, 25, got.ConversionRate)

	require.Len(t, got.DailyStats, 2)
	assert.Equal(t, DayStats{Calls: 2, Rdv: 1, Refus: 1}, got.DailyStats["2024-05-01"])
	assert.Equal(t, DayStats{Calls: 2, Rappel: 1, NoResponse: 1}, got.DailyStats["2024-05-02"])
}

func TestAgentStatsNoCalls(t *testing.T) {
	f := newStatsFixture()
	f.addAgent(t, "agent-1")

	got, err := f.agg.AgentStats(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalCalls)
	assert.Equal(t, 0, got.ConversionRate)
	assert.Empty(t, got.DailyStats)
}

func TestOrgStats(t *testing.T) {
	f := newStatsFixture()
	f.addAgent(t, "agent-1")
	f.addAgent(t, "agent-2")
	f.addProspect(t, "p1", "agent-1", prospects.StatusRdvPris)
	f.addProspect(t, "p2", "agent-2", prospects.StatusRefus)
	f.addProspect(t, "p3", "", prospects.StatusUnassigned)

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	f.addCall(t, "p1", "agent-1", prospects.OutcomeRdvPris, at)
	f.addCall(t, "p2", "agent-2", prospects.OutcomeRefus, at)

	got, err := f.agg.OrgStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, got.TotalProspecteurs)
	assert.Equal(t, 2, got.TotalCalls)
	assert.Equal(t, 1, got.TotalRdv)
	assert.Equal(t, 3, got.TotalProspects)
	assert.Equal(t, 50, got.ConversionRate)
	require.Len(t, got.RdvList, 1)
	assert.Equal(t, "p1", got.RdvList[0].ID)
	require.Len(t, got.TopPerformers, 1)
	assert.Equal(t, "agent-1", got.TopPerformers[0].ID)

	// A second read with no intervening writes is identical.
	again, err := f.agg.OrgStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestTopPerformersOrderingAndCutoff(t *testing.T) {
	f := newStatsFixture()
	// a0 leads with two rdv; a1..a5 tie with one each, ranked by id.
	for i := 0; i <= 5; i++ {
		id := fmt.Sprintf("a%d", i)
		f.addAgent(t, id)
		f.addProspect(t, fmt.Sprintf("p%d", i), id, prospects.StatusRdvPris)
	}
	f.addProspect(t, "p0b", "a0", prospects.StatusRdvPris)
	// Booked by an agent no longer in the directory: skipped, not an error.
	f.addProspect(t, "ghost", "gone", prospects.StatusRdvPris)

	got, err := f.agg.OrgStats(context.Background())
	require.NoError(t, err)

	require.Len(t, got.TopPerformers, 5)
	ids := []string{}
	for _, p := range got.TopPerformers {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a0", "a1", "a2", "a3", "a4"}, ids)
	assert.Equal(t, 2, got.TopPerformers[0].RdvCount)
}

func TestProspecteurs(t *testing.T) {
	f := newStatsFixture()
	f.addAgent(t, "agent-1")
	f.addAgent(t, "agent-2")
	f.addProspect(t, "p1", "agent-1", prospects.StatusRdvPris)
	f.addProspect(t, "p2", "agent-1", prospects.StatusPrincipale)

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	f.addCall(t, "p1", "agent-1", prospects.OutcomeRdvPris, at)

	got, err := f.agg.Prospecteurs(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "agent-1", got[0].ID)
	assert.Equal(t, 1, got[0].TotalCalls)
	assert.Equal(t, 1, got[0].RdvPris)
	assert.Equal(t, 2, got[0].ProspectsCount)

	assert.Equal(t, "agent-2", got[1].ID)
	assert.Equal(t, 0, got[1].TotalCalls)
}

func TestConversionRate(t *testing.T) {
	tests := []struct {
		rdv, calls, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 4, 25},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, conversionRate(tt.rdv, tt.calls), "rdv=%d calls=%d", tt.rdv, tt.calls)
	}
}
