// Package discussion runs the per-event message feed: posts, threaded
// replies, pins, reactions and announcement read tracking.
//
// Every mutation is persisted before it is published, and both happen while
// the event's lock is held, so subscribers observe frames in persistence
// order.
package discussion

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MaxContentLength = 2000
	maxEmojiLength   = 32
)

// Publisher fans a frame out to an event's live subscribers.
type Publisher interface {
	Publish(eventID uint, frameType string, data any)
}

type PostInput struct {
	Content  string
	Type     string
	ParentID string
}

// Thread is a top-level message with its replies in persistence order.
type Thread struct {
	Message
	Replies []Message `json:"replies"`
}

type DeletedFrame struct {
	MessageIDs []string `json:"message_ids"`
}

type PinnedFrame struct {
	MessageID string `json:"message_id"`
	Pinned    bool   `json:"pinned"`
}

type ReactionFrame struct {
	MessageID string            `json:"message_id"`
	Reactions map[string][]uint `json:"reactions"`
}

type Service struct {
	store Store
	db    *gorm.DB
	hub   Publisher
	now   func() time.Time

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewService(store Store, database *gorm.DB, hub Publisher) *Service {
	return &Service{
		store: store,
		db:    database,
		hub:   hub,
		now:   time.Now,
		locks: make(map[uint]*sync.Mutex),
	}
}

func (s *Service) lockEvent(eventID uint) func() {
	s.mu.Lock()
	l, ok := s.locks[eventID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[eventID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Post appends a message, reply or announcement to eventID's feed.
func (s *Service) Post(ctx context.Context, author identity.Account, eventID uint, in PostInput) (Message, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return Message{}, err
	}

	msgType := in.Type
	if msgType == "" {
		msgType = models.MessageTypeMessage
	}
	if msgType != models.MessageTypeMessage && msgType != models.MessageTypeAnnouncement {
		return Message{}, apperrors.Invalid("type", "Message type must be message or announcement")
	}

	switch a := author.(type) {
	case identity.Participant:
		if err := s.requireRegistration(ctx, a.ID, event.ID); err != nil {
			return Message{}, err
		}
		if msgType == models.MessageTypeAnnouncement {
			return Message{}, apperrors.ErrNotAuthorized
		}
	case identity.Organizer:
		if !identity.IsOwner(a, event.OrganizerID) {
			return Message{}, apperrors.ErrNotAuthorized
		}
	default:
		return Message{}, apperrors.ErrNotAuthorized
	}

	content := strings.TrimSpace(in.Content)
	if n := utf8.RuneCountInString(content); n == 0 || n > MaxContentLength {
		return Message{}, apperrors.Invalid("content", "Message must be between 1 and 2000 characters")
	}

	// The parent is checked under the event lock so a concurrent Delete of it
	// cannot leave this reply orphaned.
	unlock := s.lockEvent(event.ID)
	defer unlock()

	if in.ParentID != "" {
		parent, err := s.store.Get(ctx, in.ParentID)
		if err != nil {
			if errors.Is(err, apperrors.ErrMessageNotFound) {
				return Message{}, apperrors.ErrParentNotFound
			}
			return Message{}, err
		}
		if parent.EventID != event.ID {
			return Message{}, apperrors.ErrParentNotFound
		}
		if parent.IsReply() {
			return Message{}, apperrors.ErrNestedReplyNotAllowed
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		ID:         id.String(),
		EventID:    event.ID,
		AuthorID:   author.AccountID(),
		AuthorName: author.DisplayName(),
		AuthorRole: author.Role(),
		Content:    content,
		Type:       msgType,
		ParentID:   in.ParentID,
		Reactions:  map[string][]uint{},
		CreatedAt:  s.now().UTC(),
	}

	if err := s.store.Create(ctx, msg); err != nil {
		return Message{}, err
	}

	s.hub.Publish(event.ID, types.FrameNewMessage, msg)
	return msg, nil
}

// Delete removes a message and, for a top-level message, all of its replies.
// The author and the owning organizer may delete.
func (s *Service) Delete(ctx context.Context, requester identity.Account, messageID string) ([]string, error) {
	msg, err := s.store.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}

	event, err := s.loadEvent(ctx, msg.EventID)
	if err != nil {
		return nil, err
	}

	if requester.AccountID() != msg.AuthorID && !identity.IsOwner(requester, event.OrganizerID) {
		return nil, apperrors.ErrNotAuthorized
	}

	unlock := s.lockEvent(event.ID)
	defer unlock()

	removed, err := s.store.Delete(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	s.hub.Publish(event.ID, types.FrameDeleteMessage, DeletedFrame{MessageIDs: removed})
	return removed, nil
}

// Pin toggles the pinned flag of a top-level message.
func (s *Service) Pin(ctx context.Context, requester identity.Account, messageID string) (Message, error) {
	msg, err := s.store.Get(ctx, messageID)
	if err != nil {
		return Message{}, err
	}

	event, err := s.loadEvent(ctx, msg.EventID)
	if err != nil {
		return Message{}, err
	}

	if !identity.IsOwner(requester, event.OrganizerID) {
		return Message{}, apperrors.ErrNotAuthorized
	}
	if msg.IsReply() {
		return Message{}, apperrors.Invalid("message_id", "Only top-level messages can be pinned")
	}

	unlock := s.lockEvent(event.ID)
	defer unlock()

	// Re-read under the lock so two toggles flip the flag twice.
	msg, err = s.store.Get(ctx, messageID)
	if err != nil {
		return Message{}, err
	}

	msg.Pinned = !msg.Pinned
	if err := s.store.SetPinned(ctx, msg.ID, msg.Pinned); err != nil {
		return Message{}, err
	}

	s.hub.Publish(event.ID, types.FramePinMessage, PinnedFrame{MessageID: msg.ID, Pinned: msg.Pinned})
	return msg, nil
}

// React toggles viewer's emoji reaction on a message and returns the
// message's reaction map after the change.
func (s *Service) React(ctx context.Context, viewer identity.Account, messageID, emoji string) (map[string][]uint, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || len(emoji) > maxEmojiLength || strings.ContainsAny(emoji, ".$") {
		return nil, apperrors.Invalid("emoji", "Invalid reaction")
	}

	msg, err := s.store.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if err := s.CanView(ctx, viewer, msg.EventID); err != nil {
		return nil, err
	}

	unlock := s.lockEvent(msg.EventID)
	defer unlock()

	reactions, err := s.store.ToggleReaction(ctx, msg.ID, emoji, viewer.AccountID())
	if err != nil {
		return nil, err
	}

	s.hub.Publish(msg.EventID, types.FrameReactionUpdate, ReactionFrame{MessageID: msg.ID, Reactions: reactions})
	return reactions, nil
}

// History returns eventID's feed as threads, pinned threads first and
// otherwise in persistence order.
func (s *Service) History(ctx context.Context, viewer identity.Account, eventID uint) ([]Thread, error) {
	if err := s.CanView(ctx, viewer, eventID); err != nil {
		return nil, err
	}

	messages, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	return buildThreads(messages), nil
}

func buildThreads(messages []Message) []Thread {
	index := make(map[string]int)
	threads := make([]Thread, 0, len(messages))

	for _, msg := range messages {
		if msg.IsReply() {
			continue
		}
		index[msg.ID] = len(threads)
		threads = append(threads, Thread{Message: msg, Replies: []Message{}})
	}

	for _, msg := range messages {
		if !msg.IsReply() {
			continue
		}
		if i, ok := index[msg.ParentID]; ok {
			threads[i].Replies = append(threads[i].Replies, msg)
		}
	}

	ordered := make([]Thread, 0, len(threads))
	for _, t := range threads {
		if t.Pinned {
			ordered = append(ordered, t)
		}
	}
	for _, t := range threads {
		if !t.Pinned {
			ordered = append(ordered, t)
		}
	}
	return ordered
}

// CanView reports whether viewer may read eventID's feed: a registered
// participant, the owning organizer or an admin.
func (s *Service) CanView(ctx context.Context, viewer identity.Account, eventID uint) error {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return err
	}

	switch v := viewer.(type) {
	case identity.Participant:
		return s.requireRegistration(ctx, v.ID, event.ID)
	case identity.Organizer:
		if !identity.IsOwner(v, event.OrganizerID) {
			return apperrors.ErrNotAuthorized
		}
		return nil
	case identity.Admin:
		return nil
	}

	return apperrors.ErrNotAuthorized
}

// UnreadAnnouncements lists announcements posted after the participant last
// marked them read, across every event they are registered for.
func (s *Service) UnreadAnnouncements(ctx context.Context, participant identity.Participant) ([]Message, error) {
	var since time.Time

	var cursor models.AnnouncementCursor
	err := s.db.WithContext(ctx).Where("participant_id = ?", participant.ID).First(&cursor).Error
	switch {
	case err == nil:
		since = cursor.LastReadAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var eventIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.Registration{}).
		Where("participant_id = ? AND status <> ?", participant.ID, models.RegistrationCancelled).
		Pluck("event_id", &eventIDs).Error; err != nil {
		return nil, err
	}

	return s.store.AnnouncementsSince(ctx, eventIDs, since)
}

// MarkAnnouncementsRead advances the participant's read cursor to now.
func (s *Service) MarkAnnouncementsRead(ctx context.Context, participant identity.Participant) error {
	now := s.now().UTC()

	cursor := models.AnnouncementCursor{
		ParticipantID: participant.ID,
		LastReadAt:    now,
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "participant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_read_at", "updated_at"}),
	}).Create(&cursor).Error
}

func (s *Service) requireRegistration(ctx context.Context, participantID, eventID uint) error {
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

func (s *Service) loadEvent(ctx context.Context, eventID uint) (models.Event, error) {
	var event models.Event
	if err := s.db.WithContext(ctx).First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Event{}, apperrors.ErrEventNotFound
		}
		return models.Event{}, err
	}
	return event, nil
}
