package notify

import (
	"context"
	"fmt"

	"github.com/leadcentral/leadcentral/internal/directory"
	"github.com/leadcentral/leadcentral/internal/prospects"
	"github.com/leadcentral/leadcentral/pkg/logging"
)

// Service emails the organizer when an appointment is booked and agents
// when their account is activated. A nil email sender disables both;
// notification failures are logged and never propagated to callers.
type Service struct {
	email      EmailSender
	agents     directory.Repository
	adminEmail string
	logger     *logging.Logger
}

// NewService creates a notification service. email may be nil.
func NewService(email EmailSender, agents directory.Repository, adminEmail string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:      email,
		agents:     agents,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

// NotifyRdvBooked emails the organizer about a freshly booked appointment.
func (s *Service) NotifyRdvBooked(ctx context.Context, p *prospects.Prospect, event prospects.CallEvent) {
	if s == nil || s.email == nil || s.adminEmail == "" {
		return
	}

	var agentName string
	if s.agents != nil {
		if agent, err := s.agents.GetByID(ctx, event.AgentID); err == nil {
			agentName = agent.Prenom + " " + agent.Nom
		}
	}

	telephone := event.RdvTelephone
	if telephone == "" {
		telephone = "N/A"
	}

	msg := EmailMessage{
		To:      s.adminEmail,
		Subject: fmt.Sprintf("Nouveau RDV - %s", p.Nom),
		Body: fmt.Sprintf(
			"Nouveau rendez-vous pris !\nProspecteur : %s\nClient : %s\nSecteur : %s\nDate : %s\nHeure : %s\nTéléphone : %s",
			agentName, p.Nom, p.Secteur, event.RdvDate, event.RdvHeure, telephone),
		HTML: fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; padding: 20px;">
<h2 style="color: #22C55E;">Nouveau rendez-vous pris !</h2>
<div style="background: #F3F4F6; padding: 20px; border-radius: 8px; margin: 20px 0;">
<p><strong>Prospecteur :</strong> %s</p>
<p><strong>Client :</strong> %s</p>
<p><strong>Secteur :</strong> %s</p>
<p><strong>Date :</strong> %s</p>
<p><strong>Heure :</strong> %s</p>
<p><strong>Téléphone :</strong> %s</p>
</div></body></html>`,
			agentName, p.Nom, p.Secteur, event.RdvDate, event.RdvHeure, telephone),
	}

	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("rdv notification failed", "error", err, "prospect_id", p.ID)
	}
}

// NotifyAgentActivated emails an agent that their account is now active.
func (s *Service) NotifyAgentActivated(ctx context.Context, agent *directory.Agent) {
	if s == nil || s.email == nil || agent.Email == "" {
		return
	}

	msg := EmailMessage{
		To:      agent.Email,
		ToName:  agent.Prenom + " " + agent.Nom,
		Subject: "Votre compte LeadCentral est activé",
		Body: fmt.Sprintf(
			"Bienvenue sur LeadCentral !\nBonjour %s, votre compte prospecteur a été validé. Vous pouvez maintenant vous connecter.",
			agent.Prenom),
		HTML: fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; padding: 20px;">
<h2 style="color: #22C55E;">Bienvenue sur LeadCentral !</h2>
<p>Bonjour %s, votre compte prospecteur a été validé. Vous pouvez maintenant vous connecter.</p>
</body></html>`, agent.Prenom),
	}

	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("activation notification failed", "error", err, "agent_id", agent.ID)
	}
}
