package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// EmailMessage is the serialized form of an outbound email in the outbox.
type EmailMessage struct {
	To          string       `json:"to"`
	ToName      string       `json:"to_name,omitempty"`
	Subject     string       `json:"subject"`
	Text        string       `json:"text"`
	HTML        string       `json:"html,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// ConsoleMailer logs messages instead of sending them. Used when no SendGrid
// key is configured.
type ConsoleMailer struct {
	logger *log.Logger
}

func NewConsoleMailer(logger *log.Logger) *ConsoleMailer {
	if logger == nil {
		logger = log.Default()
	}
	return &ConsoleMailer{logger: logger}
}

func (m *ConsoleMailer) Send(_ context.Context, msg EmailMessage) error {
	m.logger.Printf("email to=%s subject=%q attachments=%d\n%s", msg.To, msg.Subject, len(msg.Attachments), msg.Text)
	return nil
}

type SendgridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

func NewSendgridMailer(key, fromName, fromEmail string) *SendgridMailer {
	return &SendgridMailer{
		key:        key,
		from:       sgmail.NewEmail(fromName, fromEmail),
		subjPrefix: "[" + fromName + "] ",
	}
}

func (m *SendgridMailer) prepare(msg EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.AddPersonalizations(p)

	mail.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		mail.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	for _, a := range msg.Attachments {
		mail.AddAttachment(&sgmail.Attachment{
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			Type:        a.ContentType,
			Filename:    a.Filename,
			Disposition: "attachment",
		})
	}

	return mail
}

func (m *SendgridMailer) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sending email - status: %d - body: %s", res.StatusCode, res.Body)
	}

	return nil
}
