package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PaymentPaid     = "paid"
	PaymentPending  = "pending"
	PaymentRefunded = "refunded"
)

const (
	RegistrationRegistered = "registered"
	RegistrationCancelled  = "cancelled"
	RegistrationCompleted  = "completed"
)

type Registration struct {
	BaseModel

	EventID       uint   `gorm:"not null;uniqueIndex:idx_registration_pair"`
	ParticipantID uint   `gorm:"not null;uniqueIndex:idx_registration_pair;index"`
	TicketID      string `gorm:"not null;uniqueIndex"`
	FormData      datatypes.JSONMap
	VariantID     *uint
	Quantity      int    `gorm:"not null"`
	Amount        int64  `gorm:"not null"`
	PaymentStatus string `gorm:"not null"`
	Status        string `gorm:"not null;index"`
	Attended      bool   `gorm:"not null"`
	AttendedAt    *time.Time
	RegisteredAt  time.Time `gorm:"not null"`
}
