package prospects

import "time"

// Status values a prospect moves through. A prospect starts unassigned,
// enters the principale worklist when assigned, and is moved between
// worklists by call outcomes. refus is terminal: the prospect leaves all
// active worklists but keeps its call history.
const (
	StatusUnassigned   = "unassigned"
	StatusPrincipale   = "principale"
	StatusARappeler    = "a_rappeler"
	StatusPasDeReponse = "pas_de_reponse"
	StatusRdvPris      = "rdv_pris"
	StatusRefus        = "refus"
)

// Outcome values accepted by the disposition engine.
const (
	OutcomeRefus        = "refus"
	OutcomePasDeReponse = "pas_de_reponse"
	OutcomeARappeler    = "a_rappeler"
	OutcomeRdvPris      = "rdv_pris"
)

// Prospect is a sales lead tracked through the call pipeline.
// Rappel fields are set iff status is a_rappeler, rdv fields iff status
// is rdv_pris. Version backs optimistic concurrency: conflicting writers
// on the same record fail with ErrConflict.
type Prospect struct {
	ID           string `json:"id"`
	Nom          string `json:"nom"`
	Secteur      string `json:"secteur"`
	Telephone    string `json:"telephone"`
	Email        string `json:"email,omitempty"`
	OwnerAgentID string `json:"prospecteur_id,omitempty"`
	Status       string `json:"status"`

	RappelDate string `json:"rappel_date,omitempty"`
	RappelNote string `json:"rappel_note,omitempty"`

	RdvDate      string `json:"rdv_date,omitempty"`
	RdvHeure     string `json:"rdv_heure,omitempty"`
	RdvTelephone string `json:"rdv_telephone,omitempty"`
	RdvEmail     string `json:"rdv_email,omitempty"`
	RdvNote      string `json:"rdv_note,omitempty"`

	NoResponseAttempts int        `json:"no_response_attempts,omitempty"`
	LastCallAt         *time.Time `json:"last_call,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"-"`

	// CallHistory is append-only and never reordered; it is the audit
	// trail consumed by the statistics aggregator.
	CallHistory []CallEvent `json:"call_history,omitempty"`
}

// CallEvent records one disposition applied to a prospect, with the extra
// fields supplied at that moment.
type CallEvent struct {
	ID         string    `json:"id"`
	ProspectID string    `json:"prospect_id"`
	AgentID    string    `json:"prospecteur_id"`
	Outcome    string    `json:"result"`
	Timestamp  time.Time `json:"timestamp"`

	RappelDate   string `json:"rappel_date,omitempty"`
	RappelNote   string `json:"rappel_note,omitempty"`
	RdvDate      string `json:"rdv_date,omitempty"`
	RdvHeure     string `json:"rdv_heure,omitempty"`
	RdvTelephone string `json:"rdv_telephone,omitempty"`
	RdvEmail     string `json:"rdv_email,omitempty"`
	RdvNote      string `json:"rdv_note,omitempty"`
}

// CallExtra carries the outcome-conditional fields of a call result.
type CallExtra struct {
	RappelDate   string `json:"rappel_date,omitempty"`
	RappelNote   string `json:"rappel_note,omitempty"`
	RdvDate      string `json:"rdv_date,omitempty"`
	RdvHeure     string `json:"rdv_heure,omitempty"`
	RdvTelephone string `json:"rdv_telephone,omitempty"`
	RdvEmail     string `json:"rdv_email,omitempty"`
	RdvNote      string `json:"rdv_note,omitempty"`
}

// ValidOutcome reports whether o is one of the four call outcomes.
func ValidOutcome(o string) bool {
	switch o {
	case OutcomeRefus, OutcomePasDeReponse, OutcomeARappeler, OutcomeRdvPris:
		return true
	}
	return false
}

// WorklistStatus reports whether s names one of the four agent worklists.
func WorklistStatus(s string) bool {
	switch s {
	case StatusPrincipale, StatusARappeler, StatusPasDeReponse, StatusRdvPris:
		return true
	}
	return false
}
