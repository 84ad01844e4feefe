// Package accounts owns sign-up, login, profiles, follows and the admin
// workflows around organizer accounts.
package accounts

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/felicity-dev/felicity/db"
	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/auth"
	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/services"
	"github.com/felicity-dev/felicity/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MinPasswordLength = 8

	// iiitDomain is the mail domain IIIT participants must sign up with.
	iiitDomain = "iiit.ac.in"
)

type Notifier interface {
	EnqueueEmail(ctx context.Context, msg services.EmailMessage) error
}

type Service struct {
	db     *gorm.DB
	issuer *auth.Issuer
	outbox Notifier
	now    func() time.Time
}

func NewService(database *gorm.DB, issuer *auth.Issuer, outbox Notifier) *Service {
	return &Service{db: database, issuer: issuer, outbox: outbox, now: time.Now}
}

// Session is an authenticated account with its signed token.
type Session struct {
	Account identity.Account
	Token   string
}

type SignUp struct {
	Email           string
	Password        string
	FirstName       string
	LastName        string
	College         string
	ContactNumber   string
	ParticipantType string
}

// Register creates a participant account and signs it in.
func (s *Service) Register(ctx context.Context, in SignUp) (Session, error) {
	email := utils.NormalizeEmail(in.Email)

	switch in.ParticipantType {
	case models.ParticipantTypeIIIT:
		if !isIIITEmail(email) {
			return Session{}, apperrors.Invalid("email", "IIIT participants must use their IIIT email")
		}
	case models.ParticipantTypeNonIIIT:
	default:
		return Session{}, apperrors.Invalid("participant_type", "Participant type must be iiit or non-iiit")
	}

	if len(in.Password) < MinPasswordLength {
		return Session{}, apperrors.Invalid("password", "Password must be at least 8 characters")
	}

	if err := s.requireEmailFree(ctx, email); err != nil {
		return Session{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}

	row := models.Account{
		Email:           email,
		PasswordHash:    hash,
		Role:            models.RoleParticipant,
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		College:         strings.TrimSpace(in.College),
		ContactNumber:   strings.TrimSpace(in.ContactNumber),
		ParticipantType: in.ParticipantType,
		Interests:       datatypes.JSONSlice[string]{},
	}
	if row.ParticipantType == models.ParticipantTypeIIIT && row.College == "" {
		row.College = "IIIT Hyderabad"
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return Session{}, apperrors.ErrEmailTaken
		}
		return Session{}, err
	}

	return s.session(row)
}

func isIIITEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	return domain == iiitDomain || strings.HasSuffix(domain, "."+iiitDomain)
}

// Login authenticates any role by email and password.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	var row models.Account
	err := s.db.WithContext(ctx).Where("email = ?", utils.NormalizeEmail(email)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Session{}, apperrors.ErrInvalidCredentials
		}
		return Session{}, err
	}

	if !auth.CheckPassword(row.PasswordHash, password) {
		return Session{}, apperrors.ErrInvalidCredentials
	}

	return s.session(row)
}

func (s *Service) session(row models.Account) (Session, error) {
	account, err := identity.FromModel(row)
	if err != nil {
		return Session{}, err
	}

	token, err := s.issuer.Generate(row.ID, row.Email, row.Role)
	if err != nil {
		return Session{}, err
	}

	return Session{Account: account, Token: token}, nil
}

func (s *Service) Get(ctx context.Context, id uint) (identity.Account, error) {
	row, err := s.row(ctx, id)
	if err != nil {
		return nil, err
	}
	return identity.FromModel(row)
}

// ProfileUpdate carries optional profile changes. Participant fields only
// apply to participants and organizer fields only to organizers.
type ProfileUpdate struct {
	FirstName     *string
	LastName      *string
	College       *string
	ContactNumber *string
	Interests     []string

	OrganizerName  *string
	Category       *string
	Description    *string
	ContactEmail   *string
	DiscordWebhook *string

	CurrentPassword string
	NewPassword     string
}

func (u ProfileUpdate) hasParticipantFields() bool {
	return u.FirstName != nil || u.LastName != nil || u.College != nil || u.ContactNumber != nil || u.Interests != nil
}

func (u ProfileUpdate) hasOrganizerFields() bool {
	return u.OrganizerName != nil || u.Category != nil || u.Description != nil || u.ContactEmail != nil || u.DiscordWebhook != nil
}

func (s *Service) UpdateProfile(ctx context.Context, acct identity.Account, upd ProfileUpdate) (identity.Account, error) {
	updates := make(map[string]interface{})

	switch acct.(type) {
	case identity.Participant:
		if upd.hasOrganizerFields() {
			return nil, apperrors.Invalid("profile", "Organizer fields cannot be set on a participant")
		}
		setTrimmed(updates, "first_name", upd.FirstName)
		setTrimmed(updates, "last_name", upd.LastName)
		setTrimmed(updates, "college", upd.College)
		setTrimmed(updates, "contact_number", upd.ContactNumber)
		if upd.Interests != nil {
			updates["interests"] = datatypes.JSONSlice[string](cleanInterests(upd.Interests))
		}
	case identity.Organizer:
		if upd.hasParticipantFields() {
			return nil, apperrors.Invalid("profile", "Participant fields cannot be set on an organizer")
		}
		if upd.OrganizerName != nil && strings.TrimSpace(*upd.OrganizerName) == "" {
			return nil, apperrors.Invalid("organizer_name", "Organizer name is required")
		}
		setTrimmed(updates, "organizer_name", upd.OrganizerName)
		setTrimmed(updates, "category", upd.Category)
		setTrimmed(updates, "description", upd.Description)
		if upd.ContactEmail != nil {
			updates["contact_email"] = utils.NormalizeEmail(*upd.ContactEmail)
		}
		if upd.DiscordWebhook != nil {
			webhook, err := utils.ValidateWebhookURL(*upd.DiscordWebhook)
			if err != nil {
				return nil, apperrors.Invalid("discord_webhook", err.Error())
			}
			updates["discord_webhook"] = webhook
		}
	case identity.Admin:
		if upd.hasParticipantFields() || upd.hasOrganizerFields() {
			return nil, apperrors.Invalid("profile", "Admins have no editable profile")
		}
	}

	if upd.NewPassword != "" {
		row, err := s.row(ctx, acct.AccountID())
		if err != nil {
			return nil, err
		}
		if upd.CurrentPassword == "" {
			return nil, apperrors.Invalid("current_password", "Current password is required to change password")
		}
		if !auth.CheckPassword(row.PasswordHash, upd.CurrentPassword) {
			return nil, apperrors.Invalid("current_password", "Current password is incorrect")
		}
		if len(upd.NewPassword) < MinPasswordLength {
			return nil, apperrors.Invalid("new_password", "Password must be at least 8 characters")
		}
		hash, err := auth.HashPassword(upd.NewPassword)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}

	if len(updates) == 0 {
		return nil, apperrors.Invalid("profile", "No valid fields to update")
	}

	if err := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", acct.AccountID()).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	return s.Get(ctx, acct.AccountID())
}

func setTrimmed(updates map[string]interface{}, column string, value *string) {
	if value != nil {
		updates[column] = strings.TrimSpace(*value)
	}
}

func cleanInterests(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, interest := range in {
		interest = strings.TrimSpace(interest)
		if interest == "" || seen[strings.ToLower(interest)] {
			continue
		}
		seen[strings.ToLower(interest)] = true
		out = append(out, interest)
	}
	return out
}

// CompleteOnboarding stores the participant's interests and initial follows
// and marks onboarding done.
func (s *Service) CompleteOnboarding(ctx context.Context, p identity.Participant, interests []string, organizerIDs []uint) (identity.Participant, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Account{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
			"interests":            datatypes.JSONSlice[string](cleanInterests(interests)),
			"onboarding_completed": true,
		}).Error; err != nil {
			return err
		}

		for _, organizerID := range organizerIDs {
			if err := follow(tx, p.ID, organizerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return identity.Participant{}, err
	}

	acct, err := s.Get(ctx, p.ID)
	if err != nil {
		return identity.Participant{}, err
	}
	return acct.(identity.Participant), nil
}

// EnsureAdmin seeds the bootstrap admin when no account holds email.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(&models.Account{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}).Error; err != nil {
		return err
	}

	log.Printf("Seeded admin account %s", email)
	return nil
}

func (s *Service) requireEmailFree(ctx context.Context, email string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperrors.ErrEmailTaken
	}
	return nil
}

func (s *Service) row(ctx context.Context, id uint) (models.Account, error) {
	var row models.Account
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Account{}, apperrors.ErrAccountNotFound
		}
		return models.Account{}, err
	}
	return row, nil
}
