// Package stats computes per-agent and org-wide prospecting metrics from
// the prospect store and the account directory. All computations are pure
// reads: two calls with no intervening writes return identical results.
package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/leadcentral/leadcentral/internal/directory"
	"github.com/leadcentral/leadcentral/internal/prospects"
)

// DayStats counts the call outcomes recorded on one calendar day.
type DayStats struct {
	Calls      int `json:"calls"`
	Rdv        int `json:"rdv"`
	Refus      int `json:"refus"`
	Rappel     int `json:"rappel"`
	NoResponse int `json:"no_response"`
}

// AgentStats is the per-agent dashboard payload.
type AgentStats struct {
	TotalCalls     int                 `json:"total_calls"`
	RdvPris        int                 `json:"rdv_pris"`
	Refus          int                 `json:"refus"`
	ARappeler      int                 `json:"a_rappeler"`
	PasDeReponse   int                 `json:"pas_de_reponse"`
	ProspectsCount int                 `json:"prospects_count"`
	ConversionRate int                 `json:"conversion_rate"`
	DailyStats     map[string]DayStats `json:"daily_stats"`
}

// TopPerformer is one row of the admin leaderboard.
type TopPerformer struct {
	ID       string `json:"id"`
	Nom      string `json:"nom"`
	Prenom   string `json:"prenom"`
	RdvCount int    `json:"rdv_count"`
}

// OrgStats is the org-wide dashboard payload. RdvList carries the booked
// appointments with their rdv fields for calendar display.
type OrgStats struct {
	TotalProspecteurs int                   `json:"total_prospecteurs"`
	TotalCalls        int                   `json:"total_calls"`
	TotalRdv          int                   `json:"total_rdv"`
	TotalProspects    int                   `json:"total_prospects"`
	ConversionRate    int                   `json:"conversion_rate"`
	TopPerformers     []TopPerformer        `json:"top_performers"`
	RdvList           []*prospects.Prospect `json:"rdv_list"`
}

// ProspecteurOverview is an agent record with its derived counters, for
// the admin agent-management view.
type ProspecteurOverview struct {
	*directory.Agent
	TotalCalls     int `json:"total_calls"`
	RdvPris        int `json:"rdv_pris"`
	ProspectsCount int `json:"prospects_count"`
}

// Aggregator reads the prospect store and account directory.
type Aggregator struct {
	repo   prospects.Repository
	agents directory.Repository
}

// NewAggregator creates a statistics aggregator.
func NewAggregator(repo prospects.Repository, agents directory.Repository) *Aggregator {
	return &Aggregator{repo: repo, agents: agents}
}

// AgentStats computes the dashboard counters for one agent. An agent with
// no calls gets a conversion rate of 0, not an error.
func (a *Aggregator) AgentStats(ctx context.Context, agentID string) (*AgentStats, error) {
	owned, err := a.repo.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("stats: list prospects: %w", err)
	}
	events, err := a.repo.ListEventsByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("stats: list calls: %w", err)
	}

	out := &AgentStats{
		TotalCalls:     len(events),
		ProspectsCount: len(owned),
		DailyStats:     map[string]DayStats{},
	}
	for _, p := range owned {
		switch p.Status {
		case prospects.StatusRdvPris:
			out.RdvPris++
		case prospects.StatusRefus:
			out.Refus++
		case prospects.StatusARappeler:
			out.ARappeler++
		case prospects.StatusPasDeReponse:
			out.PasDeReponse++
		}
	}
	out.ConversionRate = conversionRate(out.RdvPris, out.TotalCalls)

	for _, e := range events {
		day := e.Timestamp.UTC().Format("2006-01-02")
		d := out.DailyStats[day]
		d.Calls++
		switch e.Outcome {
		case prospects.OutcomeRdvPris:
			d.Rdv++
		case prospects.OutcomeRefus:
			d.Refus++
		case prospects.OutcomeARappeler:
			d.Rappel++
		case prospects.OutcomePasDeReponse:
			d.NoResponse++
		}
		out.DailyStats[day] = d
	}
	return out, nil
}

// OrgStats computes the admin dashboard payload.
func (a *Aggregator) OrgStats(ctx context.Context) (*OrgStats, error) {
	activeAgents, err := a.agents.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: list active agents: %w", err)
	}
	events, err := a.repo.ListAllEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: list calls: %w", err)
	}
	rdvList, err := a.repo.ListAll(ctx, prospects.ListFilter{Status: prospects.StatusRdvPris})
	if err != nil {
		return nil, fmt.Errorf("stats: list rdv: %w", err)
	}
	all, err := a.repo.ListAll(ctx, prospects.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("stats: list prospects: %w", err)
	}

	out := &OrgStats{
		TotalProspecteurs: len(activeAgents),
		TotalCalls:        len(events),
		TotalRdv:          len(rdvList),
		TotalProspects:    len(all),
		ConversionRate:    conversionRate(len(rdvList), len(events)),
		RdvList:           rdvList,
	}
	out.TopPerformers, err = a.topPerformers(ctx, rdvList)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Prospecteurs returns every prospecteur account with derived counters.
func (a *Aggregator) Prospecteurs(ctx context.Context) ([]*ProspecteurOverview, error) {
	agents, err := a.agents.List(ctx, directory.RoleProspecteur)
	if err != nil {
		return nil, fmt.Errorf("stats: list agents: %w", err)
	}

	out := make([]*ProspecteurOverview, 0, len(agents))
	for _, agent := range agents {
		owned, err := a.repo.ListByAgent(ctx, agent.ID)
		if err != nil {
			return nil, fmt.Errorf("stats: list prospects: %w", err)
		}
		events, err := a.repo.ListEventsByAgent(ctx, agent.ID)
		if err != nil {
			return nil, fmt.Errorf("stats: list calls: %w", err)
		}
		row := &ProspecteurOverview{
			Agent:          agent,
			TotalCalls:     len(events),
			ProspectsCount: len(owned),
		}
		for _, p := range owned {
			if p.Status == prospects.StatusRdvPris {
				row.RdvPris++
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// topPerformers ranks agents by booked appointments, ties broken by agent
// id ascending, top 5. Agents missing from the directory are skipped.
func (a *Aggregator) topPerformers(ctx context.Context, rdvList []*prospects.Prospect) ([]TopPerformer, error) {
	counts := map[string]int{}
	for _, p := range rdvList {
		if p.OwnerAgentID != "" {
			counts[p.OwnerAgentID]++
		}
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})

	out := []TopPerformer{}
	for _, id := range ids {
		if len(out) == 5 {
			break
		}
		agent, err := a.agents.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, directory.ErrAgentNotFound) {
				continue
			}
			return nil, fmt.Errorf("stats: get agent: %w", err)
		}
		out = append(out, TopPerformer{
			ID:       agent.ID,
			Nom:      agent.Nom,
			Prenom:   agent.Prenom,
			RdvCount: counts[id],
		})
	}
	return out, nil
}

// conversionRate is round(100 * rdv / calls) clamped to an integer,
// defined as 0 when no calls were made.
func conversionRate(rdv, calls int) int {
	if calls == 0 {
		return 0
	}
	return int(math.Round(100 * float64(rdv) / float64(calls)))
}
