package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/models"
	"gorm.io/gorm"
)

var emailSeq struct {
	sync.Mutex
	n int
}

func nextEmail(prefix string) string {
	emailSeq.Lock()
	defer emailSeq.Unlock()
	emailSeq.n++
	return fmt.Sprintf("%s%d@example.com", prefix, emailSeq.n)
}

func mustNarrow[T identity.Account](t testing.TB, row models.Account) T {
	t.Helper()
	acct, err := identity.FromModel(row)
	if err != nil {
		t.Fatalf("narrow account: %v", err)
	}
	v, ok := acct.(T)
	if !ok {
		t.Fatalf("account %d has role %s", row.ID, row.Role)
	}
	return v
}

func CreateParticipant(t testing.TB, database *gorm.DB, firstName string) identity.Participant {
	t.Helper()
	row := models.Account{
		Email:           nextEmail("participant"),
		PasswordHash:    "x",
		Role:            models.RoleParticipant,
		FirstName:       firstName,
		LastName:        "Test",
		ParticipantType: models.ParticipantTypeIIIT,
	}
	if err := database.Create(&row).Error; err != nil {
		t.Fatalf("create participant: %v", err)
	}
	return mustNarrow[identity.Participant](t, row)
}

func CreateOrganizer(t testing.TB, database *gorm.DB, name string) identity.Organizer {
	t.Helper()
	row := models.Account{
		Email:         nextEmail("organizer"),
		PasswordHash:  "x",
		Role:          models.RoleOrganizer,
		OrganizerName: name,
	}
	if err := database.Create(&row).Error; err != nil {
		t.Fatalf("create organizer: %v", err)
	}
	return mustNarrow[identity.Organizer](t, row)
}

func CreateAdmin(t testing.TB, database *gorm.DB) identity.Admin {
	t.Helper()
	row := models.Account{Email: nextEmail("admin"), PasswordHash: "x", Role: models.RoleAdmin}
	if err := database.Create(&row).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return mustNarrow[identity.Admin](t, row)
}

// EventOption customizes a fixture event before it is stored.
type EventOption func(*models.Event)

func WithLimit(n int) EventOption {
	return func(e *models.Event) { e.RegistrationLimit = n }
}

func WithFee(fee int64) EventOption {
	return func(e *models.Event) { e.RegistrationFee = fee }
}

func WithStatus(status string) EventOption {
	return func(e *models.Event) { e.Status = status }
}

func WithDeadline(deadline time.Time) EventOption {
	return func(e *models.Event) { e.RegistrationDeadline = deadline }
}

func WithForm(fields ...models.FormField) EventOption {
	return func(e *models.Event) { e.CustomForm = fields }
}

// WithVariant turns the fixture into a merchandise event carrying the item.
func WithVariant(product, size string, stock int) EventOption {
	return func(e *models.Event) {
		e.Type = models.EventTypeMerchandise
		e.RegistrationLimit = 0
		if e.PurchaseLimit == 0 {
			e.PurchaseLimit = 5
		}
		e.Variants = append(e.Variants, models.MerchVariant{ProductName: product, Size: size, Stock: stock})
	}
}

func WithPurchaseLimit(n int) EventOption {
	return func(e *models.Event) { e.PurchaseLimit = n }
}

// CreateEvent stores a published normal event with a week-out deadline
// unless options say otherwise.
func CreateEvent(t testing.TB, database *gorm.DB, organizerID uint, opts ...EventOption) models.Event {
	t.Helper()
	now := time.Now()
	event := models.Event{
		Name:                 "Event",
		Type:                 models.EventTypeNormal,
		OrganizerID:          organizerID,
		Status:               models.EventStatusPublished,
		RegistrationDeadline: now.Add(7 * 24 * time.Hour),
		StartAt:              now.Add(8 * 24 * time.Hour),
		EndAt:                now.Add(9 * 24 * time.Hour),
		RegistrationLimit:    100,
	}
	for _, opt := range opts {
		opt(&event)
	}
	if err := database.WithContext(context.Background()).Create(&event).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

// Reload fetches the current state of an event row.
func Reload(t testing.TB, database *gorm.DB, eventID uint) models.Event {
	t.Helper()
	var event models.Event
	if err := database.Preload("Variants").First(&event, eventID).Error; err != nil {
		t.Fatalf("reload event %d: %v", eventID, err)
	}
	return event
}

// Enroll stores a registered, paid registration without touching event counters.
func Enroll(t testing.TB, database *gorm.DB, eventID, participantID uint) models.Registration {
	t.Helper()
	reg := models.Registration{
		EventID:       eventID,
		ParticipantID: participantID,
		TicketID:      fmt.Sprintf("TKT-FIXTURE-%d-%d", eventID, participantID),
		Quantity:      1,
		PaymentStatus: models.PaymentPaid,
		Status:        models.RegistrationRegistered,
		RegisteredAt:  time.Now(),
	}
	if err := database.Create(&reg).Error; err != nil {
		t.Fatalf("enroll participant %d in event %d: %v", participantID, eventID, err)
	}
	return reg
}
