// Package identity narrows persisted accounts into role-specific values.
//
// An Account is exactly one of Participant, Organizer or Admin. Role-specific
// profile fields only exist on the matching variant, so callers must switch on
// the concrete type before reading them.
package identity

import (
	"fmt"
	"strings"

	"github.com/felicity-dev/felicity/internal/models"
)

type Account interface {
	AccountID() uint
	AccountEmail() string
	Role() string
	DisplayName() string

	sealed()
}

type Participant struct {
	ID                  uint     `json:"id"`
	Email               string   `json:"email"`
	FirstName           string   `json:"first_name"`
	LastName            string   `json:"last_name"`
	College             string   `json:"college"`
	ContactNumber       string   `json:"contact_number"`
	ParticipantType     string   `json:"participant_type"`
	Interests           []string `json:"interests"`
	OnboardingCompleted bool     `json:"onboarding_completed"`
}

type Organizer struct {
	ID             uint   `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"organizer_name"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	ContactEmail   string `json:"contact_email"`
	DiscordWebhook string `json:"discord_webhook,omitempty"`
}

type Admin struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

func (p Participant) AccountID() uint      { return p.ID }
func (p Participant) AccountEmail() string { return p.Email }
func (p Participant) Role() string         { return models.RoleParticipant }
func (p Participant) sealed()              {}

func (p Participant) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Email
	}
	return name
}

func (o Organizer) AccountID() uint      { return o.ID }
func (o Organizer) AccountEmail() string { return o.Email }
func (o Organizer) Role() string         { return models.RoleOrganizer }
func (o Organizer) sealed()              {}

func (o Organizer) DisplayName() string {
	if o.Name == "" {
		return o.Email
	}
	return o.Name
}

func (a Admin) AccountID() uint      { return a.ID }
func (a Admin) AccountEmail() string { return a.Email }
func (a Admin) Role() string         { return models.RoleAdmin }
func (a Admin) DisplayName() string  { return "Admin" }
func (a Admin) sealed()              {}

// FromModel converts a stored row into its role variant.
func FromModel(m models.Account) (Account, error) {
	switch m.Role {
	case models.RoleParticipant:
		return Participant{
			ID:                  m.ID,
			Email:               m.Email,
			FirstName:           m.FirstName,
			LastName:            m.LastName,
			College:             m.College,
			ContactNumber:       m.ContactNumber,
			ParticipantType:     m.ParticipantType,
			Interests:           []string(m.Interests),
			OnboardingCompleted: m.OnboardingCompleted,
		}, nil
	case models.RoleOrganizer:
		return Organizer{
			ID:             m.ID,
			Email:          m.Email,
			Name:           m.OrganizerName,
			Category:       m.Category,
			Description:    m.Description,
			ContactEmail:   m.ContactEmail,
			DiscordWebhook: m.DiscordWebhook,
		}, nil
	case models.RoleAdmin:
		return Admin{ID: m.ID, Email: m.Email}, nil
	}

	return nil, fmt.Errorf("account %d has unknown role %q", m.ID, m.Role)
}

// IsOwner reports whether acct is the organizer identified by organizerID.
func IsOwner(acct Account, organizerID uint) bool {
	org, ok := acct.(Organizer)
	return ok && org.ID == organizerID
}
