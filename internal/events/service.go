// Package events owns the event entity: creation, editing under the
// registration lock, and the status state machine.
package events

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/services"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notifier queues organizer webhooks.
type Notifier interface {
	EnqueueWebhook(ctx context.Context, webhookURL string, payload services.DiscordWebhookRequest) error
}

type VariantInput struct {
	ProductName string
	Size        string
	Stock       int
}

type NewEvent struct {
	Name                 string
	Description          string
	Type                 string
	Eligibility          string
	RegistrationDeadline time.Time
	StartAt              time.Time
	EndAt                time.Time
	RegistrationLimit    int
	RegistrationFee      int64
	PurchaseLimit        int
	Tags                 []string
	CustomForm           []models.FormField
	Variants             []VariantInput
}

// EventUpdate carries the fields to change; nil fields are left alone.
type EventUpdate struct {
	Name                 *string
	Description          *string
	Eligibility          *string
	RegistrationDeadline *time.Time
	StartAt              *time.Time
	EndAt                *time.Time
	RegistrationLimit    *int
	RegistrationFee      *int64
	PurchaseLimit        *int
	Tags                 []string
	CustomForm           []models.FormField
}

type ListFilter struct {
	Search      string
	Type        string
	OrganizerID uint
	// FollowedBy restricts results to organizers the participant follows.
	FollowedBy uint
}

type Service struct {
	db     *gorm.DB
	outbox Notifier
	now    func() time.Time
}

func NewService(database *gorm.DB, outbox Notifier) *Service {
	return &Service{db: database, outbox: outbox, now: time.Now}
}

func (s *Service) Create(ctx context.Context, organizer identity.Organizer, in NewEvent) (models.Event, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Event{}, apperrors.Invalid("name", "Event name is required")
	}

	if !IsEventType(in.Type) {
		return models.Event{}, apperrors.Invalid("type", "Event type must be normal or merchandise")
	}

	if err := validateSchedule(in.RegistrationDeadline, in.StartAt, in.EndAt); err != nil {
		return models.Event{}, err
	}

	if in.RegistrationFee < 0 {
		return models.Event{}, apperrors.Invalid("registrationFee", "Registration fee cannot be negative")
	}

	event := models.Event{
		Name:                 name,
		Description:          in.Description,
		Type:                 in.Type,
		OrganizerID:          organizer.ID,
		Status:               models.EventStatusDraft,
		Eligibility:          in.Eligibility,
		RegistrationDeadline: in.RegistrationDeadline,
		StartAt:              in.StartAt,
		EndAt:                in.EndAt,
		RegistrationFee:      in.RegistrationFee,
		Tags:                 datatypes.JSONSlice[string](in.Tags),
	}

	switch in.Type {
	case models.EventTypeNormal:
		if in.RegistrationLimit < 1 {
			return models.Event{}, apperrors.Invalid("registrationLimit", "Registration limit must be at least 1")
		}
		if err := validateForm(in.CustomForm); err != nil {
			return models.Event{}, err
		}
		event.RegistrationLimit = in.RegistrationLimit
		event.CustomForm = datatypes.JSONSlice[models.FormField](in.CustomForm)
	case models.EventTypeMerchandise:
		if err := validateVariants(in.Variants); err != nil {
			return models.Event{}, err
		}
		event.PurchaseLimit = in.PurchaseLimit
		if event.PurchaseLimit < 1 {
			event.PurchaseLimit = 1
		}
		for _, v := range in.Variants {
			event.Variants = append(event.Variants, models.MerchVariant{
				ProductName: strings.TrimSpace(v.ProductName),
				Size:        strings.TrimSpace(v.Size),
				Stock:       v.Stock,
			})
		}
	}

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return models.Event{}, err
	}

	return event, nil
}

// Update applies upd. Name, description, fee, limits and the custom form are
// only editable while the event is a draft or has no registrations. The
// guard is part of the UPDATE so a registration landing concurrently wins.
func (s *Service) Update(ctx context.Context, organizer identity.Organizer, eventID uint, upd EventUpdate) (models.Event, error) {
	event, err := s.owned(ctx, organizer, eventID)
	if err != nil {
		return models.Event{}, err
	}

	locked := make(map[string]interface{})
	free := make(map[string]interface{})

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return models.Event{}, apperrors.Invalid("name", "Event name is required")
		}
		locked["name"] = name
	}

	if upd.Description != nil {
		locked["description"] = *upd.Description
	}

	if upd.RegistrationFee != nil {
		if *upd.RegistrationFee < 0 {
			return models.Event{}, apperrors.Invalid("registrationFee", "Registration fee cannot be negative")
		}
		locked["registration_fee"] = *upd.RegistrationFee
	}

	if upd.RegistrationLimit != nil {
		if event.Type != models.EventTypeNormal || *upd.RegistrationLimit < 1 {
			return models.Event{}, apperrors.Invalid("registrationLimit", "Registration limit must be at least 1")
		}
		locked["registration_limit"] = *upd.RegistrationLimit
	}

	if upd.PurchaseLimit != nil {
		if event.Type != models.EventTypeMerchandise || *upd.PurchaseLimit < 1 {
			return models.Event{}, apperrors.Invalid("purchaseLimit", "Purchase limit must be at least 1")
		}
		locked["purchase_limit"] = *upd.PurchaseLimit
	}

	if upd.CustomForm != nil {
		if event.Type != models.EventTypeNormal {
			return models.Event{}, apperrors.Invalid("customForm", "Merchandise events have no registration form")
		}
		if err := validateForm(upd.CustomForm); err != nil {
			return models.Event{}, err
		}
		locked["custom_form"] = datatypes.JSONSlice[models.FormField](upd.CustomForm)
	}

	if upd.Eligibility != nil {
		free["eligibility"] = *upd.Eligibility
	}

	if upd.Tags != nil {
		free["tags"] = datatypes.JSONSlice[string](upd.Tags)
	}

	if upd.RegistrationDeadline != nil || upd.StartAt != nil || upd.EndAt != nil {
		deadline, start, end := event.RegistrationDeadline, event.StartAt, event.EndAt
		if upd.RegistrationDeadline != nil {
			deadline = *upd.RegistrationDeadline
			free["registration_deadline"] = deadline
		}
		if upd.StartAt != nil {
			start = *upd.StartAt
			free["start_at"] = start
		}
		if upd.EndAt != nil {
			end = *upd.EndAt
			free["end_at"] = end
		}
		if err := validateSchedule(deadline, start, end); err != nil {
			return models.Event{}, err
		}
	}

	if len(locked) == 0 && len(free) == 0 {
		return models.Event{}, apperrors.Invalid("", "No valid fields to update")
	}

	query := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", eventID)
	updates := make(map[string]interface{}, len(locked)+len(free)+1)

	if len(locked) > 0 {
		query = query.Where("(status = ? OR registration_count = 0)", models.EventStatusDraft)
		for k, v := range locked {
			updates[k] = v
		}
	}

	if len(free) > 0 {
		query = query.Where("status IN ?", []string{models.EventStatusDraft, models.EventStatusPublished, models.EventStatusOngoing})
		for k, v := range free {
			updates[k] = v
		}
	}
	updates["updated_at"] = s.now()

	res := query.Updates(updates)
	if res.Error != nil {
		return models.Event{}, res.Error
	}

	if res.RowsAffected == 0 {
		return models.Event{}, apperrors.ErrEditLocked
	}

	return s.load(ctx, eventID)
}

// ChangeStatus moves the event along the state machine. The UPDATE is
// conditional on the status the decision was made from, so of two racing
// transitions only one applies.
func (s *Service) ChangeStatus(ctx context.Context, organizer identity.Organizer, eventID uint, to string) (models.Event, error) {
	event, err := s.owned(ctx, organizer, eventID)
	if err != nil {
		return models.Event{}, err
	}

	if err := Transition(event.Status, to); err != nil {
		return models.Event{}, err
	}

	res := s.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND status = ?", eventID, event.Status).
		Updates(map[string]interface{}{"status": to, "updated_at": s.now()})
	if res.Error != nil {
		return models.Event{}, res.Error
	}

	if res.RowsAffected == 0 {
		current, err := s.load(ctx, eventID)
		if err != nil {
			return models.Event{}, err
		}
		return models.Event{}, apperrors.InvalidStatusTransition(current.Status, to)
	}

	event.Status = to

	if to == models.EventStatusPublished && organizer.DiscordWebhook != "" {
		payload := services.EventPublishedPayload(event, organizer.DisplayName(), s.now())
		if err := s.outbox.EnqueueWebhook(ctx, organizer.DiscordWebhook, payload); err != nil {
			log.Printf("Failed to enqueue publish webhook for event %d: %v", eventID, err)
		}
	}

	return event, nil
}

// Get returns an event with its variants. Drafts are only visible to their
// organizer and admins.
func (s *Service) Get(ctx context.Context, viewer identity.Account, eventID uint) (models.Event, error) {
	event, err := s.load(ctx, eventID)
	if err != nil {
		return models.Event{}, err
	}

	if event.Status == models.EventStatusDraft {
		switch v := viewer.(type) {
		case identity.Admin:
		case identity.Organizer:
			if v.ID != event.OrganizerID {
				return models.Event{}, apperrors.ErrEventNotFound
			}
		default:
			return models.Event{}, apperrors.ErrEventNotFound
		}
	}

	return event, nil
}

// ListPublished returns events open for browsing, soonest first.
func (s *Service) ListPublished(ctx context.Context, f ListFilter) ([]models.Event, error) {
	query := s.db.WithContext(ctx).Preload("Variants").
		Where("status IN ?", []string{models.EventStatusPublished, models.EventStatusOngoing})

	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}

	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}

	if f.OrganizerID != 0 {
		query = query.Where("organizer_id = ?", f.OrganizerID)
	}

	if f.FollowedBy != 0 {
		query = query.Where("organizer_id IN (?)",
			s.db.Model(&models.Follow{}).Select("organizer_id").Where("participant_id = ?", f.FollowedBy))
	}

	var events []models.Event
	if err := query.Order("start_at ASC").Order("id ASC").Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (s *Service) ListByOrganizer(ctx context.Context, organizerID uint) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).Preload("Variants").
		Where("organizer_id = ?", organizerID).
		Order("created_at DESC").Order("id DESC").
		Find(&events).Error
	return events, err
}

// ListAll is the admin's read-only view over every event.
func (s *Service) ListAll(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&events).Error
	return events, err
}

func (s *Service) owned(ctx context.Context, organizer identity.Organizer, eventID uint) (models.Event, error) {
	event, err := s.load(ctx, eventID)
	if err != nil {
		return models.Event{}, err
	}

	if event.OrganizerID != organizer.ID {
		return models.Event{}, apperrors.ErrNotAuthorized
	}

	return event, nil
}

func (s *Service) load(ctx context.Context, eventID uint) (models.Event, error) {
	var event models.Event

	if err := s.db.WithContext(ctx).Preload("Variants").First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Event{}, apperrors.ErrEventNotFound
		}
		return models.Event{}, err
	}

	return event, nil
}
