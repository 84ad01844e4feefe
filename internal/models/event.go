package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EventTypeNormal      = "normal"
	EventTypeMerchandise = "merchandise"
)

const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusOngoing   = "ongoing"
	EventStatusCompleted = "completed"
	EventStatusClosed    = "closed"
)

const (
	FieldTypeText     = "text"
	FieldTypeEmail    = "email"
	FieldTypeNumber   = "number"
	FieldTypeDropdown = "dropdown"
	FieldTypeCheckbox = "checkbox"
	FieldTypeFile     = "file"
)

// FormField is one entry of an organizer-defined registration form.
type FormField struct {
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

type Event struct {
	BaseModel

	Name                 string `gorm:"not null"`
	Description          string `gorm:"type:text"`
	Type                 string `gorm:"not null;index"`
	OrganizerID          uint   `gorm:"not null;index"`
	Status               string `gorm:"not null;index"`
	Eligibility          string
	RegistrationDeadline time.Time `gorm:"not null"`
	StartAt              time.Time `gorm:"not null"`
	EndAt                time.Time `gorm:"not null"`
	RegistrationLimit    int
	RegistrationFee      int64
	PurchaseLimit        int // max quantity of a single merchandise order
	Tags                 datatypes.JSONSlice[string]
	CustomForm           datatypes.JSONSlice[FormField]

	// Denormalized counters, only ever changed through conditional updates.
	RegistrationCount int   `gorm:"not null;default:0"`
	Revenue           int64 `gorm:"not null;default:0"`
	AttendanceCount   int   `gorm:"not null;default:0"`

	// Relationships
	Variants []MerchVariant `gorm:"foreignKey:EventID"`
}

type MerchVariant struct {
	BaseModel

	EventID     uint   `gorm:"not null;uniqueIndex:idx_variant_item"`
	ProductName string `gorm:"not null;uniqueIndex:idx_variant_item"`
	Size        string `gorm:"not null;uniqueIndex:idx_variant_item"`
	Stock       int    `gorm:"not null"`
}
