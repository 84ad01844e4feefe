package services

import (
	"fmt"
	"strings"

	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/tickets"
)

// RegistrationConfirmation builds the participant's ticket email with the QR
// code attached.
func RegistrationConfirmation(to, name string, event models.Event, reg models.Registration) (EmailMessage, error) {
	png, err := tickets.RenderPNG(tickets.Payload{
		TicketID:      reg.TicketID,
		EventID:       event.ID,
		ParticipantID: reg.ParticipantID,
	})
	if err != nil {
		return EmailMessage{}, fmt.Errorf("render ticket QR: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	if event.Type == models.EventTypeMerchandise {
		fmt.Fprintf(&b, "Your order for %s is confirmed.\n", event.Name)
		fmt.Fprintf(&b, "Quantity: %d\n", reg.Quantity)
	} else {
		fmt.Fprintf(&b, "You are registered for %s.\n", event.Name)
		fmt.Fprintf(&b, "Starts: %s\n", event.StartAt.UTC().Format(timeLayout))
	}
	fmt.Fprintf(&b, "Amount: %s\n", formatAmount(reg.Amount))
	fmt.Fprintf(&b, "Ticket: %s\n\n", reg.TicketID)
	b.WriteString("Show the attached QR code at the venue.\n")

	return EmailMessage{
		To:      to,
		ToName:  name,
		Subject: "Your ticket for " + event.Name,
		Text:    b.String(),
		Attachments: []Attachment{
			{Filename: reg.TicketID + ".png", ContentType: "image/png", Content: png},
		},
	}, nil
}

// TeamInvitation tells an invitee how to join a team.
func TeamInvitation(to string, team models.Team, event models.Event, leaderName string) EmailMessage {
	return EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("%s invited you to %s", leaderName, team.Name),
		Text: fmt.Sprintf(
			"%s invited you to join team %s for %s.\n\nRegister for the event, then join with invite code %s.\n",
			leaderName, team.Name, event.Name, team.InviteCode,
		),
	}
}

// OrganizerCredentials carries a generated password to a new or reset
// organizer account.
func OrganizerCredentials(to, organizerName, password string) EmailMessage {
	return EmailMessage{
		To:      to,
		ToName:  organizerName,
		Subject: "Your organizer account",
		Text: fmt.Sprintf(
			"Hi %s,\n\nSign in with %s and password %s, then change it from your profile.\n",
			organizerName, to, password,
		),
	}
}
