package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felicity-dev/felicity/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Outbox records notifications for asynchronous delivery by the scheduler.
// Callers enqueue after their own transaction commits so a rolled-back
// operation never produces a notification.
type Outbox struct {
	db  *gorm.DB
	now func() time.Time
}

func NewOutbox(database *gorm.DB) *Outbox {
	return &Outbox{db: database, now: time.Now}
}

func (o *Outbox) EnqueueEmail(ctx context.Context, msg EmailMessage) error {
	if msg.To == "" {
		return fmt.Errorf("email has no recipient")
	}
	return o.enqueue(ctx, models.ChannelEmail, msg.To, msg.Subject, msg)
}

func (o *Outbox) EnqueueWebhook(ctx context.Context, webhookURL string, payload DiscordWebhookRequest) error {
	if webhookURL == "" {
		return nil
	}
	subject := ""
	if len(payload.Embeds) > 0 {
		subject = payload.Embeds[0].Title
	}
	return o.enqueue(ctx, models.ChannelWebhook, webhookURL, subject, payload)
}

func (o *Outbox) enqueue(ctx context.Context, channel, recipient, subject string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s notification: %w", channel, err)
	}

	n := models.Notification{
		Channel:       channel,
		Recipient:     recipient,
		Subject:       subject,
		Payload:       datatypes.JSON(body),
		Status:        models.NotificationPending,
		NextAttemptAt: o.now(),
	}

	return o.db.WithContext(ctx).Create(&n).Error
}
