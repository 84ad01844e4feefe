package types

import (
	"time"

	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/models"
)

type UserResponse struct {
	ID      uint             `json:"id"`
	Email   string           `json:"email"`
	Role    string           `json:"role"`
	Name    string           `json:"name"`
	Profile identity.Account `json:"profile"`
}

type VariantResponse struct {
	ID          uint   `json:"id"`
	ProductName string `json:"product_name"`
	Size        string `json:"size"`
	Stock       int    `json:"stock"`
}

type EventResponse struct {
	ID                   uint               `json:"id"`
	Name                 string             `json:"name"`
	Description          string             `json:"description"`
	Type                 string             `json:"type"`
	OrganizerID          uint               `json:"organizer_id"`
	Status               string             `json:"status"`
	Eligibility          string             `json:"eligibility"`
	RegistrationDeadline time.Time          `json:"registration_deadline"`
	StartAt              time.Time          `json:"start_at"`
	EndAt                time.Time          `json:"end_at"`
	RegistrationLimit    int                `json:"registration_limit"`
	RegistrationFee      int64              `json:"registration_fee"`
	PurchaseLimit        int                `json:"purchase_limit,omitempty"`
	Tags                 []string           `json:"tags"`
	CustomForm           []models.FormField `json:"custom_form"`
	Variants             []VariantResponse  `json:"variants,omitempty"`
	RegistrationCount    int                `json:"registration_count"`
	Revenue              int64              `json:"revenue"`
	AttendanceCount      int                `json:"attendance_count"`
	CreatedAt            time.Time          `json:"created_at"`
}

type RegistrationResponse struct {
	ID            uint                   `json:"id"`
	EventID       uint                   `json:"event_id"`
	ParticipantID uint                   `json:"participant_id"`
	TicketID      string                 `json:"ticket_id"`
	FormData      map[string]interface{} `json:"form_data,omitempty"`
	VariantID     *uint                  `json:"variant_id,omitempty"`
	Quantity      int                    `json:"quantity"`
	Amount        int64                  `json:"amount"`
	PaymentStatus string                 `json:"payment_status"`
	Status        string                 `json:"status"`
	Attended      bool                   `json:"attended"`
	AttendedAt    *time.Time             `json:"attended_at,omitempty"`
	RegisteredAt  time.Time              `json:"registered_at"`
}

// TicketResponse is a participant's registration with the event it belongs to.
type TicketResponse struct {
	Registration RegistrationResponse `json:"registration"`
	Event        EventResponse        `json:"event"`
}

type EventRegistrationResponse struct {
	RegistrationResponse
	ParticipantName  string `json:"participant_name"`
	ParticipantEmail string `json:"participant_email"`
}

type TeamMemberResponse struct {
	ParticipantID uint   `json:"participant_id"`
	Status        string `json:"status"`
}

type TeamResponse struct {
	ID          uint                 `json:"id"`
	EventID     uint                 `json:"event_id"`
	Name        string               `json:"name"`
	InviteCode  string               `json:"invite_code"`
	LeaderID    uint                 `json:"leader_id"`
	TargetSize  int                  `json:"target_size"`
	MemberCount int                  `json:"member_count"`
	Status      string               `json:"status"`
	Members     []TeamMemberResponse `json:"members"`
}

type ResetRequestResponse struct {
	ID           uint       `json:"id"`
	OrganizerID  uint       `json:"organizer_id"`
	Reason       string     `json:"reason"`
	Status       string     `json:"status"`
	AdminComment string     `json:"admin_comment,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// AttendanceParticipant and AttendanceResponse are the camelCase body the
// scanner client expects after a successful scan.
type AttendanceParticipant struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	EventID uint   `json:"eventId"`
}

type AttendanceResponse struct {
	Participant    AttendanceParticipant `json:"participant"`
	AttendanceTime time.Time             `json:"attendanceTime"`
}
