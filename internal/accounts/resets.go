package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/auth"
	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/models"
	"gorm.io/gorm"
)

// RequestPasswordReset files a reset request for admin review. An organizer
// holds at most one pending request.
func (s *Service) RequestPasswordReset(ctx context.Context, org identity.Organizer, reason string) (models.PasswordResetRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.PasswordResetRequest{}, apperrors.Invalid("reason", "Reason is required")
	}

	var pending int64
	if err := s.db.WithContext(ctx).Model(&models.PasswordResetRequest{}).
		Where("organizer_id = ? AND status = ?", org.ID, models.ResetPending).
		Count(&pending).Error; err != nil {
		return models.PasswordResetRequest{}, err
	}
	if pending > 0 {
		return models.PasswordResetRequest{}, apperrors.ErrResetRequestPending
	}

	req := models.PasswordResetRequest{
		OrganizerID: org.ID,
		Reason:      reason,
		Status:      models.ResetPending,
	}
	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return models.PasswordResetRequest{}, err
	}
	return req, nil
}

// ListResetRequests lists requests newest first, filtered by status when
// status is non-empty.
func (s *Service) ListResetRequests(ctx context.Context, status string) ([]models.PasswordResetRequest, error) {
	query := s.db.WithContext(ctx).Order("id DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var out []models.PasswordResetRequest
	err := query.Find(&out).Error
	return out, err
}

// ApproveReset resolves a pending request, replaces the organizer's password
// and returns the new one.
func (s *Service) ApproveReset(ctx context.Context, requestID uint, comment string) (string, error) {
	password, err := auth.GeneratePassword(generatedPasswordLength)
	if err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	var organizer models.Account
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := s.resolve(tx, requestID, models.ResetApproved, comment)
		if err != nil {
			return err
		}

		if err := tx.First(&organizer, req.OrganizerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrAccountNotFound
			}
			return err
		}

		return tx.Model(&organizer).Update("password_hash", hash).Error
	})
	if err != nil {
		return "", err
	}

	to := organizer.ContactEmail
	if to == "" {
		to = organizer.Email
	}
	s.mailCredentials(ctx, to, organizer.OrganizerName, organizer.Email, password)

	return password, nil
}

func (s *Service) RejectReset(ctx context.Context, requestID uint, comment string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.resolve(tx, requestID, models.ResetRejected, comment)
		return err
	})
}

// resolve moves a request out of pending with a conditional update, so a
// request is approved or rejected at most once.
func (s *Service) resolve(tx *gorm.DB, requestID uint, status, comment string) (models.PasswordResetRequest, error) {
	var req models.PasswordResetRequest
	if err := tx.First(&req, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return req, apperrors.ErrResetRequestNotFound
		}
		return req, err
	}

	now := s.now()
	result := tx.Model(&models.PasswordResetRequest{}).
		Where("id = ? AND status = ?", requestID, models.ResetPending).
		Updates(map[string]interface{}{
			"status":        status,
			"admin_comment": strings.TrimSpace(comment),
			"resolved_at":   now,
		})
	if result.Error != nil {
		return req, result.Error
	}
	if result.RowsAffected == 0 {
		return req, apperrors.ErrResetRequestResolved
	}

	req.Status = status
	req.ResolvedAt = &now
	return req, nil
}
