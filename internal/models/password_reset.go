package models

import "time"

const (
	ResetPending  = "pending"
	ResetApproved = "approved"
	ResetRejected = "rejected"
)

type PasswordResetRequest struct {
	BaseModel

	OrganizerID  uint   `gorm:"not null;index"`
	Reason       string `gorm:"type:text"`
	Status       string `gorm:"not null;index"`
	AdminComment string
	ResolvedAt   *time.Time
}
