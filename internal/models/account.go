package models

import "gorm.io/datatypes"

const (
	RoleParticipant = "participant"
	RoleOrganizer   = "organizer"
	RoleAdmin       = "admin"
)

const (
	ParticipantTypeIIIT    = "iiit"
	ParticipantTypeNonIIIT = "non-iiit"
)

// Account is the single persisted row behind every role. Role-specific
// columns are only meaningful for their role; code outside the storage layer
// goes through identity.Account instead of reading them directly.
type Account struct {
	BaseModel

	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;index"`

	// Participant profile
	FirstName       string
	LastName        string
	College         string
	ContactNumber   string
	ParticipantType string
	Interests       datatypes.JSONSlice[string]

	// Organizer profile
	OrganizerName  string
	Category       string
	Description    string
	ContactEmail   string
	DiscordWebhook string

	OnboardingCompleted bool
}

type Follow struct {
	BaseModel

	ParticipantID uint `gorm:"not null;uniqueIndex:idx_follow_pair"`
	OrganizerID   uint `gorm:"not null;uniqueIndex:idx_follow_pair;index"`
}
