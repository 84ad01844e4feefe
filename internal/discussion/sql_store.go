package discussion

import (
	"context"
	"errors"
	"time"

	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/models"
	"gorm.io/gorm"
)

// SQLStore keeps the discussion log in the primary database.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(database *gorm.DB) *SQLStore {
	return &SQLStore{db: database}
}

func (s *SQLStore) Create(ctx context.Context, msg Message) error {
	row := models.DiscussionMessage{
		ID:         msg.ID,
		EventID:    msg.EventID,
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		AuthorRole: msg.AuthorRole,
		Content:    msg.Content,
		Type:       msg.Type,
		Pinned:     msg.Pinned,
		CreatedAt:  msg.CreatedAt,
	}
	if msg.ParentID != "" {
		parent := msg.ParentID
		row.ParentID = &parent
	}

	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *SQLStore) Get(ctx context.Context, id string) (Message, error) {
	var row models.DiscussionMessage
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Message{}, apperrors.ErrMessageNotFound
		}
		return Message{}, err
	}

	reactions, err := reactionsFor(s.db.WithContext(ctx), []string{row.ID})
	if err != nil {
		return Message{}, err
	}

	return toMessage(row, reactions[row.ID]), nil
}

func (s *SQLStore) ListByEvent(ctx context.Context, eventID uint) ([]Message, error) {
	var rows []models.DiscussionMessage
	if err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	return s.withReactions(ctx, rows)
}

func (s *SQLStore) Delete(ctx context.Context, id string) ([]string, error) {
	var removed []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.DiscussionMessage{}).
			Where("id = ? OR parent_id = ?", id, id).
			Order("id ASC").
			Pluck("id", &removed).Error; err != nil {
			return err
		}
		if len(removed) == 0 {
			return apperrors.ErrMessageNotFound
		}

		if err := tx.Where("message_id IN ?", removed).Delete(&models.MessageReaction{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", removed).Delete(&models.DiscussionMessage{}).Error
	})
	if err != nil {
		return nil, err
	}

	return removed, nil
}

func (s *SQLStore) SetPinned(ctx context.Context, id string, pinned bool) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.DiscussionMessage{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperrors.ErrMessageNotFound
	}

	return s.db.WithContext(ctx).Model(&models.DiscussionMessage{}).
		Where("id = ?", id).
		Update("pinned", pinned).Error
}

func (s *SQLStore) ToggleReaction(ctx context.Context, id, emoji string, accountID uint) (map[string][]uint, error) {
	var reactions map[string][]uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.DiscussionMessage{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperrors.ErrMessageNotFound
		}

		// Removing an existing entry is the "off" half of the toggle; only
		// when nothing was removed does the reaction get added.
		result := tx.Where("message_id = ? AND emoji = ? AND account_id = ?", id, emoji, accountID).
			Delete(&models.MessageReaction{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			if err := tx.Create(&models.MessageReaction{
				MessageID: id,
				Emoji:     emoji,
				AccountID: accountID,
			}).Error; err != nil {
				return err
			}
		}

		all, err := reactionsFor(tx, []string{id})
		if err != nil {
			return err
		}
		reactions = all[id]
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reactions == nil {
		reactions = map[string][]uint{}
	}
	return reactions, nil
}

func (s *SQLStore) AnnouncementsSince(ctx context.Context, eventIDs []uint, since time.Time) ([]Message, error) {
	if len(eventIDs) == 0 {
		return []Message{}, nil
	}

	var rows []models.DiscussionMessage
	if err := s.db.WithContext(ctx).
		Where("event_id IN ? AND type = ? AND created_at > ?", eventIDs, models.MessageTypeAnnouncement, since).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	return s.withReactions(ctx, rows)
}

func (s *SQLStore) withReactions(ctx context.Context, rows []models.DiscussionMessage) ([]Message, error) {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	reactions, err := reactionsFor(s.db.WithContext(ctx), ids)
	if err != nil {
		return nil, err
	}

	messages := make([]Message, len(rows))
	for i, row := range rows {
		messages[i] = toMessage(row, reactions[row.ID])
	}
	return messages, nil
}

func reactionsFor(tx *gorm.DB, ids []string) (map[string]map[string][]uint, error) {
	out := make(map[string]map[string][]uint, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []models.MessageReaction
	if err := tx.Where("message_id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, r := range rows {
		if out[r.MessageID] == nil {
			out[r.MessageID] = make(map[string][]uint)
		}
		out[r.MessageID][r.Emoji] = append(out[r.MessageID][r.Emoji], r.AccountID)
	}
	return out, nil
}

func toMessage(row models.DiscussionMessage, reactions map[string][]uint) Message {
	if reactions == nil {
		reactions = map[string][]uint{}
	}

	msg := Message{
		ID:         row.ID,
		EventID:    row.EventID,
		AuthorID:   row.AuthorID,
		AuthorName: row.AuthorName,
		AuthorRole: row.AuthorRole,
		Content:    row.Content,
		Type:       row.Type,
		Pinned:     row.Pinned,
		Reactions:  reactions,
		CreatedAt:  row.CreatedAt,
	}
	if row.ParentID != nil {
		msg.ParentID = *row.ParentID
	}
	return msg
}
