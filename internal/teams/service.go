// Package teams lets registered participants of a normal event form teams
// of a fixed target size.
package teams

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
	"github.com/felicity-dev/felicity/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinSize = 2
	MaxSize = 10

	inviteCodeLength  = 8
	inviteCodeRetries = 3
)

var errInviteCodeTaken = errors.New("invite code taken")

type Notifier interface {
	EnqueueEmail(ctx context.Context, msg services.EmailMessage) error
}

type Service struct {
	db     *gorm.DB
	outbox Notifier
	now    func() time.Time
}

func NewService(database *gorm.DB, outbox Notifier) *Service {
	return &Service{db: database, outbox: outbox, now: time.Now}
}

func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:inviteCodeLength])
}

// Create forms a team led by leader, who becomes its first joined member.
func (s *Service) Create(ctx context.Context, leader identity.Participant, eventID uint, name string, size int) (models.Team, error) {
	event, err := s.teamEvent(ctx, eventID)
	if err != nil {
		return models.Team{}, err
	}

	if err := s.requireRegistration(ctx, event.ID, leader.ID); err != nil {
		return models.Team{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Team{}, apperrors.Invalid("name", "Team name is required")
	}
	if size < MinSize || size > MaxSize {
		return models.Team{}, apperrors.Invalid("size", "Team size must be between 2 and 10")
	}

	if err := s.requireNoTeam(ctx, event.ID, leader.ID); err != nil {
		return models.Team{}, err
	}

	var team models.Team
	for attempt := 0; attempt < inviteCodeRetries; attempt++ {
		team = models.Team{
			EventID:     event.ID,
			Name:        name,
			InviteCode:  newInviteCode(),
			LeaderID:    leader.ID,
			TargetSize:  size,
			MemberCount: 1,
			Status:      models.TeamForming,
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&team).Error; err != nil {
				if db.IsDuplicateKey(err) {
					return errInviteCodeTaken
				}
				return err
			}
			return s.addJoined(tx, team, leader.ID)
		})
		if err == nil || !errors.Is(err, errInviteCodeTaken) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, errInviteCodeTaken) {
			return models.Team{}, errors.New("could not allocate a unique invite code")
		}
		return models.Team{}, err
	}

	return s.load(ctx, team.ID)
}

// addJoined records participantID as a joined member, replacing any pending
// invitation they hold for the event. It must run inside a transaction.
func (s *Service) addJoined(tx *gorm.DB, team models.Team, participantID uint) error {
	if err := tx.Where("event_id = ? AND participant_id = ? AND status = ?", team.EventID, participantID, models.MemberInvited).
		Delete(&models.TeamMember{}).Error; err != nil {
		return err
	}

	err := tx.Create(&models.TeamMember{
		TeamID:        team.ID,
		EventID:       team.EventID,
		ParticipantID: participantID,
		Status:        models.MemberJoined,
	}).Error
	if db.IsDuplicateKey(err) {
		return apperrors.ErrAlreadyInTeam
	}
	return err
}

// Join adds participant to the team holding code. The member count is
// claimed with a conditional update so a team never exceeds its target.
func (s *Service) Join(ctx context.Context, participant identity.Participant, eventID uint, code string) (models.Team, error) {
	event, err := s.teamEvent(ctx, eventID)
	if err != nil {
		return models.Team{}, err
	}

	if err := s.requireRegistration(ctx, event.ID, participant.ID); err != nil {
		return models.Team{}, err
	}

	var team models.Team
	if err := s.db.WithContext(ctx).
		Where("event_id = ? AND invite_code = ?", event.ID, strings.ToUpper(strings.TrimSpace(code))).
		First(&team).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Team{}, apperrors.ErrTeamNotFound
		}
		return models.Team{}, err
	}

	if err := s.requireNoTeam(ctx, event.ID, participant.ID); err != nil {
		return models.Team{}, err
	}
	if team.MemberCount >= team.TargetSize {
		return models.Team{}, apperrors.ErrTeamFull
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// status is assigned before member_count so that databases applying
		// SET left to right still compare against the old count.
		result := tx.Exec(`UPDATE teams
			SET status = CASE WHEN member_count + 1 >= target_size THEN ? ELSE status END,
				member_count = member_count + 1,
				updated_at = ?
			WHERE id = ? AND member_count < target_size`,
			models.TeamCompleted, s.now(), team.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrTeamFull
		}

		return s.addJoined(tx, team, participant.ID)
	})
	if err != nil {
		return models.Team{}, err
	}

	return s.load(ctx, team.ID)
}

// Invite records an invitation for the participant registered under email
// and mails them the invite code. Invitations do not count toward the size.
func (s *Service) Invite(ctx context.Context, leader identity.Participant, teamID uint, email string) (models.TeamMember, error) {
	team, err := s.load(ctx, teamID)
	if err != nil {
		return models.TeamMember{}, err
	}

	if team.LeaderID != leader.ID {
		return models.TeamMember{}, apperrors.ErrNotAuthorized
	}
	if team.Status == models.TeamCompleted {
		return models.TeamMember{}, apperrors.ErrTeamFull
	}

	var invitee models.Account
	if err := s.db.WithContext(ctx).
		Where("email = ? AND role = ?", utils.NormalizeEmail(email), models.RoleParticipant).
		First(&invitee).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TeamMember{}, apperrors.ErrAccountNotFound
		}
		return models.TeamMember{}, err
	}

	if err := s.requireRegistration(ctx, team.EventID, invitee.ID); err != nil {
		return models.TeamMember{}, err
	}

	member := models.TeamMember{
		TeamID:        team.ID,
		EventID:       team.EventID,
		ParticipantID: invitee.ID,
		Status:        models.MemberInvited,
	}
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return models.TeamMember{}, apperrors.ErrAlreadyInTeam
		}
		return models.TeamMember{}, err
	}

	var event models.Event
	if err := s.db.WithContext(ctx).First(&event, team.EventID).Error; err != nil {
		return models.TeamMember{}, err
	}

	msg := services.TeamInvitation(invitee.Email, team, event, leader.DisplayName())
	if err := s.outbox.EnqueueEmail(ctx, msg); err != nil {
		log.Printf("Failed to queue team invitation for team %d: %v", team.ID, err)
	}

	return member, nil
}

func (s *Service) List(ctx context.Context, eventID uint) ([]models.Team, error) {
	var teams []models.Team
	err := s.db.WithContext(ctx).
		Preload("Members").
		Where("event_id = ?", eventID).
		Order("id ASC").
		Find(&teams).Error
	return teams, err
}

// ForParticipant returns the team participant has joined for eventID.
func (s *Service) ForParticipant(ctx context.Context, participant identity.Participant, eventID uint) (models.Team, error) {
	var member models.TeamMember
	if err := s.db.WithContext(ctx).
		Where("event_id = ? AND participant_id = ? AND status = ?", eventID, participant.ID, models.MemberJoined).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Team{}, apperrors.ErrTeamNotFound
		}
		return models.Team{}, err
	}

	return s.load(ctx, member.TeamID)
}

func (s *Service) teamEvent(ctx context.Context, eventID uint) (models.Event, error) {
	var event models.Event
	if err := s.db.WithContext(ctx).First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Event{}, apperrors.ErrEventNotFound
		}
		return models.Event{}, err
	}

	if event.Type != models.EventTypeNormal {
		return models.Event{}, apperrors.ErrTeamsNotAllowed
	}
	return event, nil
}

func (s *Service) requireRegistration(ctx context.Context, eventID, participantID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Registration{}).
		Where("event_id = ? AND participant_id = ? AND status <> ?", eventID, participantID, models.RegistrationCancelled).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperrors.ErrNotRegistered
	}
	return nil
}

func (s *Service) requireNoTeam(ctx context.Context, eventID, participantID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.TeamMember{}).
		Where("event_id = ? AND participant_id = ? AND status = ?", eventID, participantID, models.MemberJoined).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperrors.ErrAlreadyInTeam
	}
	return nil
}

func (s *Service) load(ctx context.Context, teamID uint) (models.Team, error) {
	var team models.Team
	if err := s.db.WithContext(ctx).Preload("Members").First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Team{}, apperrors.ErrTeamNotFound
		}
		return models.Team{}, err
	}
	return team, nil
}
