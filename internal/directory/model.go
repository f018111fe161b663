package directory

import "time"

// Role values for directory accounts.
const (
	RoleProspecteur = "prospecteur"
	RoleAdmin       = "admin"
)

// Status values for agent accounts. Only active agents may receive
// prospect assignments.
const (
	StatusActive   = "active"
	StatusPending  = "pending"
	StatusInactive = "inactive"
)

// Agent is a prospecteur or admin account. Agents are never deleted;
// setting status to inactive is the removal mechanism.
type Agent struct {
	ID        string    `json:"id"`
	Nom       string    `json:"nom"`
	Prenom    string    `json:"prenom"`
	Email     string    `json:"email"`
	Telephone string    `json:"telephone"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidStatus reports whether s is one of the three agent statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusPending, StatusInactive:
		return true
	}
	return false
}
