package discussion

import (
	"context"
	"time"
)

// Message is one entry of an event's discussion feed.
type Message struct {
	ID         string            `json:"id"`
	EventID    uint              `json:"event_id"`
	AuthorID   uint              `json:"author_id"`
	AuthorName string            `json:"author_name"`
	AuthorRole string            `json:"author_role"`
	Content    string            `json:"content"`
	Type       string            `json:"type"`
	ParentID   string            `json:"parent_id,omitempty"`
	Pinned     bool              `json:"pinned"`
	Reactions  map[string][]uint `json:"reactions"`
	CreatedAt  time.Time         `json:"created_at"`
}

// IsReply reports whether m is attached to a parent message.
func (m Message) IsReply() bool {
	return m.ParentID != ""
}

// Store persists the discussion log. Implementations return
// apperrors.ErrMessageNotFound for unknown ids and list messages in id order,
// which is persistence order.
type Store interface {
	Create(ctx context.Context, msg Message) error
	Get(ctx context.Context, id string) (Message, error)
	ListByEvent(ctx context.Context, eventID uint) ([]Message, error)
	// Delete removes the message and its replies and returns every removed id.
	Delete(ctx context.Context, id string) ([]string, error)
	SetPinned(ctx context.Context, id string, pinned bool) error
	// ToggleReaction adds or removes accountID under emoji and returns the
	// message's resulting reaction map.
	ToggleReaction(ctx context.Context, id, emoji string, accountID uint) (map[string][]uint, error)
	AnnouncementsSince(ctx context.Context, eventIDs []uint, since time.Time) ([]Message, error)
}
