// Package registrations decides whether a participant may claim a seat or
// item and records attendance at the door.
//
// Capacity, stock and attendance are enforced by conditional UPDATEs whose
// WHERE clause carries the precondition. The snapshot checks that run first
// only choose which error to report; they never authorize a write.
package registrations

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/felicity-dev/felicity/db"
	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/services"
	"github.com/felicity-dev/felicity/internal/tickets"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notifier queues confirmation mail and organizer webhooks.
type Notifier interface {
	EnqueueEmail(ctx context.Context, msg services.EmailMessage) error
	EnqueueWebhook(ctx context.Context, webhookURL string, payload services.DiscordWebhookRequest) error
}

// VariantRef selects a merchandise item by id or by product name and size.
type VariantRef struct {
	ID          uint
	ProductName string
	Size        string
}

type Submission struct {
	EventID  uint
	FormData map[string]interface{}
	Variant  *VariantRef
	Quantity int
}

type Service struct {
	db     *gorm.DB
	outbox Notifier
	now    func() time.Time
}

func NewService(database *gorm.DB, outbox Notifier) *Service {
	return &Service{db: database, outbox: outbox, now: time.Now}
}

// Register creates a registration for participant, claiming one seat on a
// normal event or Quantity units of a merchandise variant.
func (s *Service) Register(ctx context.Context, participant identity.Participant, sub Submission) (models.Registration, error) {
	event, err := s.loadEvent(ctx, sub.EventID)
	if err != nil {
		return models.Registration{}, err
	}

	now := s.now()

	if event.Status != models.EventStatusPublished {
		return models.Registration{}, apperrors.ErrRegistrationClosed
	}

	if !now.Before(event.RegistrationDeadline) {
		return models.Registration{}, apperrors.ErrDeadlinePassed
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Registration{}).
		Where("event_id = ? AND participant_id = ?", event.ID, participant.ID).
		Count(&existing).Error; err != nil {
		return models.Registration{}, err
	}
	if existing > 0 {
		return models.Registration{}, apperrors.ErrAlreadyRegistered
	}

	quantity := 1
	var variant *models.MerchVariant

	switch event.Type {
	case models.EventTypeNormal:
		if event.RegistrationCount >= event.RegistrationLimit {
			return models.Registration{}, apperrors.ErrEventFull
		}
	case models.EventTypeMerchandise:
		variant = findVariant(event.Variants, sub.Variant)
		if variant == nil {
			return models.Registration{}, apperrors.ErrVariantNotFound
		}
		if sub.Quantity != 0 {
			quantity = sub.Quantity
		}
		if quantity < 1 {
			return models.Registration{}, apperrors.Invalid("quantity", "Quantity must be at least 1")
		}
		// Asking for more than is left is OutOfStock whatever the purchase limit.
		if variant.Stock < quantity {
			return models.Registration{}, apperrors.ErrOutOfStock
		}
		if quantity > event.PurchaseLimit {
			return models.Registration{}, apperrors.Invalid("quantity", "Quantity exceeds the purchase limit")
		}
	}

	var formData map[string]interface{}
	if event.Type == models.EventTypeNormal {
		formData, err = validateFormData(event.CustomForm, sub.FormData)
		if err != nil {
			return models.Registration{}, err
		}
	}

	amount := event.RegistrationFee * int64(quantity)
	reg := models.Registration{
		EventID:       event.ID,
		ParticipantID: participant.ID,
		TicketID:      tickets.NewID(),
		FormData:      datatypes.JSONMap(formData),
		Quantity:      quantity,
		Amount:        amount,
		PaymentStatus: models.PaymentPaid,
		Status:        models.RegistrationRegistered,
		RegisteredAt:  now,
	}
	if amount > 0 {
		reg.PaymentStatus = models.PaymentPending
	}
	if variant != nil {
		reg.VariantID = &variant.ID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if variant != nil {
			res := tx.Model(&models.MerchVariant{}).
				Where("id = ? AND stock >= ?", variant.ID, quantity).
				Update("stock", gorm.Expr("stock - ?", quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return diagnose(tx, event.ID, variant.ID, quantity, now)
			}
		}

		claim := tx.Model(&models.Event{}).
			Where("id = ? AND status = ? AND registration_deadline > ?", event.ID, models.EventStatusPublished, now)
		if variant == nil {
			claim = claim.Where("registration_count < registration_limit")
		}

		res := claim.Updates(map[string]interface{}{
			"registration_count": gorm.Expr("registration_count + 1"),
			"revenue":            gorm.Expr("revenue + ?", amount),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return diagnose(tx, event.ID, 0, quantity, now)
		}

		if err := tx.Create(&reg).Error; err != nil {
			if db.IsDuplicateKey(err) {
				return apperrors.ErrAlreadyRegistered
			}
			return err
		}

		return nil
	})
	if err != nil {
		return models.Registration{}, err
	}

	event.RegistrationCount++
	s.notifyRegistered(ctx, participant, event, reg)

	return reg, nil
}

// diagnose explains why a conditional claim touched no rows. It runs inside
// the failed transaction so it sees the state that defeated the claim.
func diagnose(tx *gorm.DB, eventID, variantID uint, quantity int, now time.Time) error {
	var event models.Event
	if err := tx.First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrEventNotFound
		}
		return err
	}

	switch {
	case event.Status != models.EventStatusPublished:
		return apperrors.ErrRegistrationClosed
	case !now.Before(event.RegistrationDeadline):
		return apperrors.ErrDeadlinePassed
	}

	if variantID != 0 {
		var variant models.MerchVariant
		if err := tx.First(&variant, variantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrVariantNotFound
			}
			return err
		}
		if variant.Stock < quantity {
			return apperrors.ErrOutOfStock
		}
	}

	if event.Type == models.EventTypeNormal && event.RegistrationCount >= event.RegistrationLimit {
		return apperrors.ErrEventFull
	}

	return errors.New("registration claim matched no rows")
}

func findVariant(variants []models.MerchVariant, ref *VariantRef) *models.MerchVariant {
	if ref == nil {
		if len(variants) == 1 {
			return &variants[0]
		}
		return nil
	}

	for i := range variants {
		v := &variants[i]
		if ref.ID != 0 {
			if v.ID == ref.ID {
				return v
			}
			continue
		}
		if strings.EqualFold(v.ProductName, strings.TrimSpace(ref.ProductName)) &&
			strings.EqualFold(v.Size, strings.TrimSpace(ref.Size)) {
			return v
		}
	}

	return nil
}

// notifyRegistered queues the ticket email and organizer webhook. Failures
// are logged; the registration already committed.
func (s *Service) notifyRegistered(ctx context.Context, participant identity.Participant, event models.Event, reg models.Registration) {
	msg, err := services.RegistrationConfirmation(participant.Email, participant.DisplayName(), event, reg)
	if err != nil {
		log.Printf("Failed to build confirmation for ticket %s: %v", reg.TicketID, err)
	} else if err := s.outbox.EnqueueEmail(ctx, msg); err != nil {
		log.Printf("Failed to enqueue confirmation for ticket %s: %v", reg.TicketID, err)
	}

	var organizer models.Account
	if err := s.db.WithContext(ctx).Select("id", "discord_webhook").First(&organizer, event.OrganizerID).Error; err != nil {
		log.Printf("Failed to load organizer %d for webhook: %v", event.OrganizerID, err)
		return
	}

	if organizer.DiscordWebhook == "" {
		return
	}

	payload := services.RegistrationPayload(event, participant.DisplayName(), reg, s.now())
	if err := s.outbox.EnqueueWebhook(ctx, organizer.DiscordWebhook, payload); err != nil {
		log.Printf("Failed to enqueue registration webhook for event %d: %v", event.ID, err)
	}
}

// Cancel withdraws a participant's registration and releases its seat or
// stock. The pair stays reserved, so the participant cannot register again.
func (s *Service) Cancel(ctx context.Context, participant identity.Participant, eventID uint) (models.Registration, error) {
	var reg models.Registration

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ? AND participant_id = ?", eventID, participant.ID).First(&reg).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrRegistrationNotFound
			}
			return err
		}

		if reg.Status != models.RegistrationRegistered {
			return apperrors.ErrRegistrationNotFound
		}

		if reg.Attended {
			return apperrors.Invalid("", "Attended registrations cannot be cancelled")
		}

		paymentStatus := reg.PaymentStatus
		if reg.Amount > 0 && paymentStatus == models.PaymentPaid {
			paymentStatus = models.PaymentRefunded
		}

		res := tx.Model(&models.Registration{}).
			Where("id = ? AND status = ? AND attended = ?", reg.ID, models.RegistrationRegistered, false).
			Updates(map[string]interface{}{
				"status":         models.RegistrationCancelled,
				"payment_status": paymentStatus,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrRegistrationNotFound
		}

		res = tx.Model(&models.Event{}).
			Where("id = ? AND status = ? AND registration_count > 0", eventID, models.EventStatusPublished).
			Updates(map[string]interface{}{
				"registration_count": gorm.Expr("registration_count - 1"),
				"revenue":            gorm.Expr("revenue - ?", reg.Amount),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrRegistrationClosed
		}

		if reg.VariantID != nil {
			if err := tx.Model(&models.MerchVariant{}).
				Where("id = ?", *reg.VariantID).
				Update("stock", gorm.Expr("stock + ?", reg.Quantity)).Error; err != nil {
				return err
			}
		}

		reg.Status = models.RegistrationCancelled
		reg.PaymentStatus = paymentStatus
		return nil
	})
	if err != nil {
		return models.Registration{}, err
	}

	return reg, nil
}

// ParticipantTicket is a registration together with its event.
type ParticipantTicket struct {
	Registration models.Registration
	Event        models.Event
}

func (s *Service) ListForParticipant(ctx context.Context, participant identity.Participant) ([]ParticipantTicket, error) {
	var regs []models.Registration
	if err := s.db.WithContext(ctx).
		Where("participant_id = ?", participant.ID).
		Order("registered_at DESC").Order("id DESC").
		Find(&regs).Error; err != nil {
		return nil, err
	}

	eventIDs := make([]uint, 0, len(regs))
	for _, r := range regs {
		eventIDs = append(eventIDs, r.EventID)
	}

	var events []models.Event
	if len(eventIDs) > 0 {
		if err := s.db.WithContext(ctx).Where("id IN ?", eventIDs).Find(&events).Error; err != nil {
			return nil, err
		}
	}

	byID := make(map[uint]models.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}

	out := make([]ParticipantTicket, 0, len(regs))
	for _, r := range regs {
		out = append(out, ParticipantTicket{Registration: r, Event: byID[r.EventID]})
	}

	return out, nil
}

// Ticket returns the participant's own registration for ticketID.
func (s *Service) Ticket(ctx context.Context, participant identity.Participant, ticketID string) (models.Registration, error) {
	var reg models.Registration

	err := s.db.WithContext(ctx).
		Where("ticket_id = ? AND participant_id = ?", ticketID, participant.ID).
		First(&reg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Registration{}, apperrors.ErrTicketNotFound
		}
		return models.Registration{}, err
	}

	return reg, nil
}

// EventRegistration is one row of an organizer's registration listing.
type EventRegistration struct {
	Registration     models.Registration
	ParticipantName  string
	ParticipantEmail string
}

// ListForEvent lists every registration of an event for its organizer or an admin.
func (s *Service) ListForEvent(ctx context.Context, viewer identity.Account, eventID uint) ([]EventRegistration, error) {
	if _, err := s.authorizeViewer(ctx, viewer, eventID); err != nil {
		return nil, err
	}

	var regs []models.Registration
	if err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("registered_at ASC").Order("id ASC").
		Find(&regs).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(regs))
	for _, r := range regs {
		ids = append(ids, r.ParticipantID)
	}

	people, err := s.accounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]EventRegistration, 0, len(regs))
	for _, r := range regs {
		row := EventRegistration{Registration: r}
		if p, ok := people[r.ParticipantID]; ok {
			row.ParticipantName = p.DisplayName()
			row.ParticipantEmail = p.Email
		}
		out = append(out, row)
	}

	return out, nil
}

func (s *Service) accounts(ctx context.Context, ids []uint) (map[uint]identity.Participant, error) {
	out := make(map[uint]identity.Participant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []models.Account
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		acct, err := identity.FromModel(row)
		if err != nil {
			log.Printf("Skipping malformed account %d: %v", row.ID, err)
			continue
		}
		if p, ok := acct.(identity.Participant); ok {
			out[p.ID] = p
		}
	}

	return out, nil
}

// authorizeViewer loads the event and checks that viewer owns it or is an admin.
func (s *Service) authorizeViewer(ctx context.Context, viewer identity.Account, eventID uint) (models.Event, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return models.Event{}, err
	}

	switch v := viewer.(type) {
	case identity.Admin:
		return event, nil
	case identity.Organizer:
		if v.ID == event.OrganizerID {
			return event, nil
		}
	}

	return models.Event{}, apperrors.ErrNotAuthorized
}

func (s *Service) loadEvent(ctx context.Context, eventID uint) (models.Event, error) {
	var event models.Event

	if err := s.db.WithContext(ctx).Preload("Variants").First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Event{}, apperrors.ErrEventNotFound
		}
		return models.Event{}, err
	}

	return event, nil
}
