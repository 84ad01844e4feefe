package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
)

const (
	NotificationPending = "pending"
	NotificationSending = "sending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is an outbox entry delivered asynchronously by the scheduler.
type Notification struct {
	BaseModel

	Channel       string `gorm:"not null;index"`
	Recipient     string `gorm:"not null"`
	Subject       string
	Payload       datatypes.JSON
	Status        string `gorm:"not null;index"`
	Attempts      int    `gorm:"not null"`
	LastError     string
	NextAttemptAt time.Time `gorm:"not null;index"`
	SentAt        *time.Time
}
