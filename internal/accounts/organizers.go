package accounts

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/felicity-dev/felicity/db"
	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/auth"
	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/services"
	"github.com/felicity-dev/felicity/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const generatedPasswordLength = 12

func follow(tx *gorm.DB, participantID, organizerID uint) error {
	var count int64
	if err := tx.Model(&models.Account{}).
		Where("id = ? AND role = ?", organizerID, models.RoleOrganizer).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperrors.ErrAccountNotFound
	}

	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Follow{
		ParticipantID: participantID,
		OrganizerID:   organizerID,
	}).Error
}

// Follow is idempotent.
func (s *Service) Follow(ctx context.Context, p identity.Participant, organizerID uint) error {
	return follow(s.db.WithContext(ctx), p.ID, organizerID)
}

func (s *Service) Unfollow(ctx context.Context, p identity.Participant, organizerID uint) error {
	return s.db.WithContext(ctx).
		Where("participant_id = ? AND organizer_id = ?", p.ID, organizerID).
		Delete(&models.Follow{}).Error
}

func (s *Service) FollowedOrganizerIDs(ctx context.Context, p identity.Participant) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("participant_id = ?", p.ID).
		Order("organizer_id ASC").
		Pluck("organizer_id", &ids).Error
	return ids, err
}

func (s *Service) ListOrganizers(ctx context.Context) ([]identity.Organizer, error) {
	var rows []models.Account
	if err := s.db.WithContext(ctx).
		Where("role = ?", models.RoleOrganizer).
		Order("organizer_name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]identity.Organizer, 0, len(rows))
	for _, row := range rows {
		acct, err := identity.FromModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, acct.(identity.Organizer))
	}
	return out, nil
}

type NewOrganizer struct {
	Email        string
	Name         string
	Category     string
	Description  string
	ContactEmail string
}

// CreateOrganizer provisions an organizer account with a generated
// password. The password is returned once and mailed to the organizer.
func (s *Service) CreateOrganizer(ctx context.Context, in NewOrganizer) (identity.Organizer, string, error) {
	email := utils.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	if email == "" {
		return identity.Organizer{}, "", apperrors.Invalid("email", "Email is required")
	}
	if name == "" {
		return identity.Organizer{}, "", apperrors.Invalid("name", "Organizer name is required")
	}

	if err := s.requireEmailFree(ctx, email); err != nil {
		return identity.Organizer{}, "", err
	}

	password, err := auth.GeneratePassword(generatedPasswordLength)
	if err != nil {
		return identity.Organizer{}, "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return identity.Organizer{}, "", err
	}

	contact := utils.NormalizeEmail(in.ContactEmail)
	if contact == "" {
		contact = email
	}

	row := models.Account{
		Email:         email,
		PasswordHash:  hash,
		Role:          models.RoleOrganizer,
		OrganizerName: name,
		Category:      strings.TrimSpace(in.Category),
		Description:   strings.TrimSpace(in.Description),
		ContactEmail:  contact,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return identity.Organizer{}, "", apperrors.ErrEmailTaken
		}
		return identity.Organizer{}, "", err
	}

	s.mailCredentials(ctx, contact, name, email, password)

	acct, err := identity.FromModel(row)
	if err != nil {
		return identity.Organizer{}, "", err
	}
	return acct.(identity.Organizer), password, nil
}

func (s *Service) mailCredentials(ctx context.Context, to, name, login, password string) {
	msg := services.OrganizerCredentials(login, name, password)
	msg.To = to
	if err := s.outbox.EnqueueEmail(ctx, msg); err != nil {
		log.Printf("Failed to queue credentials for %s: %v", login, err)
	}
}

// DeleteOrganizer removes the organizer and everything hanging off their
// events from the primary database.
func (s *Service) DeleteOrganizer(ctx context.Context, organizerID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Account
		if err := tx.Where("id = ? AND role = ?", organizerID, models.RoleOrganizer).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrAccountNotFound
			}
			return err
		}

		events := tx.Model(&models.Event{}).Select("id").Where("organizer_id = ?", organizerID)
		messages := tx.Model(&models.DiscussionMessage{}).Select("id").Where("event_id IN (?)", events)
		teams := tx.Model(&models.Team{}).Select("id").Where("event_id IN (?)", events)

		steps := []struct {
			model any
			query string
			arg   any
		}{
			{&models.MessageReaction{}, "message_id IN (?)", messages},
			{&models.DiscussionMessage{}, "event_id IN (?)", events},
			{&models.TeamMember{}, "team_id IN (?)", teams},
			{&models.Team{}, "event_id IN (?)", events},
			{&models.Registration{}, "event_id IN (?)", events},
			{&models.MerchVariant{}, "event_id IN (?)", events},
			{&models.Event{}, "organizer_id = ?", organizerID},
			{&models.Follow{}, "organizer_id = ?", organizerID},
			{&models.PasswordResetRequest{}, "organizer_id = ?", organizerID},
		}
		for _, step := range steps {
			if err := tx.Where(step.query, step.arg).Delete(step.model).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&row).Error
	})
}
