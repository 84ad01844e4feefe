package models

import "time"

const (
	MessageTypeMessage      = "message"
	MessageTypeAnnouncement = "announcement"
)

// DiscussionMessage is the SQL representation of a feed entry. IDs are
// time-ordered UUIDs so ordering by ID is ordering by persistence.
type DiscussionMessage struct {
	ID         string `gorm:"primaryKey;size:36"`
	EventID    uint   `gorm:"not null;index"`
	AuthorID   uint   `gorm:"not null"`
	AuthorName string
	AuthorRole string    `gorm:"not null"`
	Content    string    `gorm:"type:text;not null"`
	Type       string    `gorm:"not null;index"`
	ParentID   *string   `gorm:"size:36;index"`
	Pinned     bool      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"index"`
}

type MessageReaction struct {
	ID        uint   `gorm:"primaryKey"`
	MessageID string `gorm:"size:36;not null;uniqueIndex:idx_reaction_entry"`
	Emoji     string `gorm:"not null;uniqueIndex:idx_reaction_entry"`
	AccountID uint   `gorm:"not null;uniqueIndex:idx_reaction_entry"`
	CreatedAt time.Time
}

// AnnouncementCursor marks the last time a participant dismissed announcements.
type AnnouncementCursor struct {
	BaseModel

	ParticipantID uint      `gorm:"not null;uniqueIndex"`
	LastReadAt    time.Time `gorm:"not null"`
}
