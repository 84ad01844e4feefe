package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/felicity-dev/felicity/internal/models"
)

type DiscordWebhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Color       int                   `json:"color"`
	Fields      []DiscordWebhookField `json:"fields"`
	Footer      *DiscordFooter        `json:"footer,omitempty"`
	Timestamp   string                `json:"timestamp"`
}

type DiscordFooter struct {
	Text string `json:"text"`
}

type DiscordWebhookRequest struct {
	Username  string         `json:"username"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Embeds    []DiscordEmbed `json:"embeds"`
}

const (
	ColorGreen = 65280    // #00FF00 - event published
	ColorBlue  = 3447003  // #3498DB - new registration
	ColorGold  = 15844367 // #F1C40F - merchandise order

	Username = "Felicity"
)

const timeLayout = "2006-01-02 15:04 MST"

// EventPublishedPayload announces a newly published event on the organizer's
// Discord channel.
func EventPublishedPayload(event models.Event, organizerName string, now time.Time) DiscordWebhookRequest {
	return DiscordWebhookRequest{
		Username: Username,
		Embeds: []DiscordEmbed{
			{
				Title:       "📣 **" + event.Name + "**",
				Description: event.Description,
				Color:       ColorGreen,
				Fields: []DiscordWebhookField{
					{Name: "🏷️ Type", Value: event.Type, Inline: true},
					{Name: "🎓 Eligibility", Value: fallback(event.Eligibility, "Everyone"), Inline: true},
					{Name: "💰 Fee", Value: formatAmount(event.RegistrationFee), Inline: true},
					{Name: "⏳ Register By", Value: event.RegistrationDeadline.UTC().Format(timeLayout), Inline: true},
					{Name: "📅 Starts", Value: event.StartAt.UTC().Format(timeLayout), Inline: true},
				},
				Footer:    &DiscordFooter{Text: organizerName + " | Felicity"},
				Timestamp: now.Format(time.RFC3339),
			},
		},
	}
}

// RegistrationPayload notifies the organizer that a participant signed up.
func RegistrationPayload(event models.Event, participantName string, reg models.Registration, now time.Time) DiscordWebhookRequest {
	color := ColorBlue
	title := "🎟️ **New registration**"
	if event.Type == models.EventTypeMerchandise {
		color = ColorGold
		title = "🛍️ **New order**"
	}

	return DiscordWebhookRequest{
		Username: Username,
		Embeds: []DiscordEmbed{
			{
				Title:       title,
				Description: fmt.Sprintf("**%s** registered for **%s**.", participantName, event.Name),
				Color:       color,
				Fields: []DiscordWebhookField{
					{Name: "🎫 Ticket", Value: reg.TicketID, Inline: false},
					{Name: "📦 Quantity", Value: fmt.Sprintf("%d", reg.Quantity), Inline: true},
					{Name: "💰 Amount", Value: formatAmount(reg.Amount), Inline: true},
					{Name: "📊 Registrations", Value: fmt.Sprintf("%d", event.RegistrationCount), Inline: true},
				},
				Timestamp: now.Format(time.RFC3339),
			},
		},
	}
}

func formatAmount(minor int64) string {
	if minor == 0 {
		return "Free"
	}
	return fmt.Sprintf("₹%d.%02d", minor/100, minor%100)
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

type WebhookSender interface {
	Send(ctx context.Context, webhookURL string, payload DiscordWebhookRequest) error
}

type HTTPWebhookSender struct {
	client *http.Client
}

func NewWebhookSender(client *http.Client) *HTTPWebhookSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPWebhookSender{client: client}
}

func (s *HTTPWebhookSender) Send(ctx context.Context, webhookURL string, payload DiscordWebhookRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build Discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Discord webhook returned status %d", resp.StatusCode)
	}

	return nil
}
