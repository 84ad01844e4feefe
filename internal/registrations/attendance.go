package registrations

import (
	"context"
	"errors"
	"time"

	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/tickets"
	"gorm.io/gorm"
)

type AttendanceResult struct {
	ParticipantName  string
	ParticipantEmail string
	EventID          uint
	EventName        string
	AttendedAt       time.Time
}

// MarkAttendance records a scanned ticket as attended. Only the organizer
// owning the ticket's event may mark it, and a ticket is marked at most once
// no matter how many scans race on it.
func (s *Service) MarkAttendance(ctx context.Context, organizer identity.Organizer, scanned string) (AttendanceResult, error) {
	payload, err := tickets.ParsePayload(scanned)
	if err != nil {
		return AttendanceResult{}, apperrors.ErrTicketNotFound
	}

	var reg models.Registration
	if err := s.db.WithContext(ctx).Where("ticket_id = ?", payload.TicketID).First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AttendanceResult{}, apperrors.ErrTicketNotFound
		}
		return AttendanceResult{}, err
	}

	if payload.EventID != 0 && payload.EventID != reg.EventID {
		return AttendanceResult{}, apperrors.ErrTicketNotFound
	}
	if payload.ParticipantID != 0 && payload.ParticipantID != reg.ParticipantID {
		return AttendanceResult{}, apperrors.ErrTicketNotFound
	}

	event, err := s.loadEvent(ctx, reg.EventID)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeEventNotFound) {
			return AttendanceResult{}, apperrors.ErrTicketNotFound
		}
		return AttendanceResult{}, err
	}

	if event.OrganizerID != organizer.ID {
		return AttendanceResult{}, apperrors.ErrNotAuthorized
	}

	if reg.Status == models.RegistrationCancelled {
		return AttendanceResult{}, apperrors.ErrTicketNotFound
	}

	if reg.Attended {
		return AttendanceResult{}, apperrors.ErrAlreadyMarked
	}

	attendedAt := s.now()
	if attendedAt.Before(reg.RegisteredAt) {
		attendedAt = reg.RegisteredAt
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Registration{}).
			Where("id = ? AND attended = ? AND status = ?", reg.ID, false, models.RegistrationRegistered).
			Updates(map[string]interface{}{
				"attended":    true,
				"attended_at": attendedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrAlreadyMarked
		}

		return tx.Model(&models.Event{}).
			Where("id = ?", event.ID).
			Update("attendance_count", gorm.Expr("attendance_count + 1")).Error
	})
	if err != nil {
		return AttendanceResult{}, err
	}

	result := AttendanceResult{
		EventID:    event.ID,
		EventName:  event.Name,
		AttendedAt: attendedAt,
	}

	people, err := s.accounts(ctx, []uint{reg.ParticipantID})
	if err != nil {
		return AttendanceResult{}, err
	}
	if p, ok := people[reg.ParticipantID]; ok {
		result.ParticipantName = p.DisplayName()
		result.ParticipantEmail = p.Email
	}

	return result, nil
}

type AttendanceSummary struct {
	Registered int64 `json:"registered"`
	Attended   int64 `json:"attended"`
	Pending    int64 `json:"pending"`
}

// Summary counts active registrations of an event by attendance.
func (s *Service) Summary(ctx context.Context, viewer identity.Account, eventID uint) (AttendanceSummary, error) {
	if _, err := s.authorizeViewer(ctx, viewer, eventID); err != nil {
		return AttendanceSummary{}, err
	}

	var summary AttendanceSummary

	base := s.db.WithContext(ctx).Model(&models.Registration{}).
		Where("event_id = ? AND status <> ?", eventID, models.RegistrationCancelled)

	if err := base.Session(&gorm.Session{}).Count(&summary.Registered).Error; err != nil {
		return AttendanceSummary{}, err
	}

	if err := base.Session(&gorm.Session{}).Where("attended = ?", true).Count(&summary.Attended).Error; err != nil {
		return AttendanceSummary{}, err
	}

	summary.Pending = summary.Registered - summary.Attended
	return summary, nil
}
