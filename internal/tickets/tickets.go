// Package tickets mints ticket identifiers and encodes the QR payload that
// organizers scan at the door.
package tickets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const idPrefix = "TKT-"

// qrSize is the rendered PNG edge length in pixels.
const qrSize = 256

// NewID returns a fresh, globally unique ticket identifier.
func NewID() string {
	return idPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Payload is the decoded content of a scanned QR code.
type Payload struct {
	TicketID      string
	EventID       uint
	ParticipantID uint
}

// Encode renders p as TICKET:<id>|EVENT:<eid>|PARTICIPANT:<pid>.
func (p Payload) Encode() string {
	return fmt.Sprintf("TICKET:%s|EVENT:%d|PARTICIPANT:%d", p.TicketID, p.EventID, p.ParticipantID)
}

// ParsePayload decodes a scanned string. Input without a TICKET: segment is
// treated as a manually entered bare ticket id.
func ParsePayload(raw string) (Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{}, fmt.Errorf("empty ticket payload")
	}

	if !strings.Contains(raw, "TICKET:") {
		if strings.ContainsAny(raw, "|:") {
			return Payload{}, fmt.Errorf("malformed ticket payload")
		}
		return Payload{TicketID: raw}, nil
	}

	var p Payload
	for _, segment := range strings.Split(raw, "|") {
		key, value, ok := strings.Cut(strings.TrimSpace(segment), ":")
		if !ok {
			return Payload{}, fmt.Errorf("malformed ticket payload segment %q", segment)
		}

		switch key {
		case "TICKET":
			p.TicketID = strings.TrimSpace(value)
		case "EVENT":
			id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
			if err != nil {
				return Payload{}, fmt.Errorf("invalid event id in ticket payload: %w", err)
			}
			p.EventID = uint(id)
		case "PARTICIPANT":
			id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
			if err != nil {
				return Payload{}, fmt.Errorf("invalid participant id in ticket payload: %w", err)
			}
			p.ParticipantID = uint(id)
		}
	}

	if p.TicketID == "" {
		return Payload{}, fmt.Errorf("ticket payload has no ticket id")
	}

	return p, nil
}

// RenderPNG draws the encoded payload as a QR code image.
func RenderPNG(p Payload) ([]byte, error) {
	return qrcode.Encode(p.Encode(), qrcode.Medium, qrSize)
}
