package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSenderPostsDiscordPayload(t *testing.T) {
	var got DiscordWebhookRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	event := models.Event{Name: "Hackathon", Type: models.EventTypeNormal, RegistrationFee: 15050}
	payload := EventPublishedPayload(event, "Coding Club", time.Now())

	require.NoError(t, NewWebhookSender(srv.Client()).Send(context.Background(), srv.URL, payload))
	require.Len(t, got.Embeds, 1)
	assert.Contains(t, got.Embeds[0].Title, "Hackathon")
	assert.Equal(t, "₹150.50", got.Embeds[0].Fields[2].Value)
}

func TestWebhookSenderReportsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewWebhookSender(nil).Send(context.Background(), srv.URL, DiscordWebhookRequest{})
	assert.ErrorContains(t, err, "429")
}

func TestOutboxEnqueue(t *testing.T) {
	database := testutil.NewDB(t)
	outbox := NewOutbox(database)
	ctx := context.Background()

	require.NoError(t, outbox.EnqueueEmail(ctx, EmailMessage{To: "p@example.com", Subject: "Hi"}))
	require.NoError(t, outbox.EnqueueWebhook(ctx, "https://hooks.example.com/1", DiscordWebhookRequest{
		Embeds: []DiscordEmbed{{Title: "Published"}},
	}))
	// no webhook configured is not an error and records nothing
	require.NoError(t, outbox.EnqueueWebhook(ctx, "", DiscordWebhookRequest{}))
	assert.Error(t, outbox.EnqueueEmail(ctx, EmailMessage{}))

	var rows []models.Notification
	require.NoError(t, database.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)

	assert.Equal(t, models.ChannelEmail, rows[0].Channel)
	assert.Equal(t, models.NotificationPending, rows[0].Status)
	assert.Equal(t, models.ChannelWebhook, rows[1].Channel)
	assert.Equal(t, "Published", rows[1].Subject)
}

func TestRegistrationConfirmationAttachesQR(t *testing.T) {
	event := models.Event{BaseModel: models.BaseModel{ID: 4}, Name: "Concert", Type: models.EventTypeNormal}
	reg := models.Registration{TicketID: "TKT-XYZ", ParticipantID: 9, Quantity: 1}

	msg, err := RegistrationConfirmation("p@example.com", "Asha", event, reg)
	require.NoError(t, err)

	assert.Contains(t, msg.Text, "TKT-XYZ")
	require.Len(t, msg.Attachments, 1)
	assert.True(t, bytes.HasPrefix(msg.Attachments[0].Content, []byte("\x89PNG")))
}

func TestSendgridPrepareEncodesAttachments(t *testing.T) {
	mailer := NewSendgridMailer("key", "Felicity", "noreply@example.com")
	m := mailer.prepare(EmailMessage{
		To:          "p@example.com",
		Subject:     "Ticket",
		Text:        "hello",
		Attachments: []Attachment{{Filename: "a.png", ContentType: "image/png", Content: []byte("png")}},
	})

	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Felicity] Ticket", m.Personalizations[0].Subject)
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png")), m.Attachments[0].Content)
}

func TestConsoleMailerLogs(t *testing.T) {
	var buf bytes.Buffer
	mailer := NewConsoleMailer(log.New(&buf, "", 0))

	require.NoError(t, mailer.Send(context.Background(), EmailMessage{To: "p@example.com", Subject: "Hi", Text: "body"}))
	assert.Contains(t, buf.String(), "p@example.com")
}

func TestNewReporterWithoutToken(t *testing.T) {
	reporter := NewReporter("", "test")
	reporter.Error(assert.AnError, nil)
	reporter.Close()
	assert.IsType(t, nopReporter{}, reporter)
}
