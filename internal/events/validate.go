package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/models"
)

// MaxFormFields bounds the length of a custom registration form.
const MaxFormFields = 50

func IsFieldType(t string) bool {
	switch t {
	case models.FieldTypeText, models.FieldTypeEmail, models.FieldTypeNumber,
		models.FieldTypeDropdown, models.FieldTypeCheckbox, models.FieldTypeFile:
		return true
	}
	return false
}

func IsEventType(t string) bool {
	return t == models.EventTypeNormal || t == models.EventTypeMerchandise
}

func validateSchedule(deadline, start, end time.Time) error {
	if deadline.IsZero() || start.IsZero() || end.IsZero() {
		return apperrors.Invalid("schedule", "Registration deadline, start and end times are required")
	}
	if deadline.After(start) {
		return apperrors.Invalid("registrationDeadline", "Registration deadline must not be after the event starts")
	}
	if start.After(end) {
		return apperrors.Invalid("endAt", "Event must end after it starts")
	}
	return nil
}

func validateForm(fields []models.FormField) error {
	if len(fields) > MaxFormFields {
		return apperrors.Invalid("customForm", fmt.Sprintf("Custom form may have at most %d fields", MaxFormFields))
	}

	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		label := strings.TrimSpace(f.Label)
		if label == "" {
			return apperrors.Invalid("customForm", "Every form field needs a label")
		}
		if _, dup := seen[label]; dup {
			return apperrors.Invalid("customForm", fmt.Sprintf("Duplicate form field %q", label))
		}
		seen[label] = struct{}{}

		if !IsFieldType(f.Type) {
			return apperrors.Invalid("customForm", fmt.Sprintf("Unsupported field type %q for %s", f.Type, label))
		}
		if f.Type == models.FieldTypeDropdown && len(f.Options) == 0 {
			return apperrors.Invalid("customForm", fmt.Sprintf("Dropdown %s needs at least one option", label))
		}
	}
	return nil
}

func validateVariants(variants []VariantInput) error {
	if len(variants) == 0 {
		return apperrors.Invalid("variants", "Merchandise needs at least one item")
	}

	seen := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		if strings.TrimSpace(v.ProductName) == "" {
			return apperrors.Invalid("variants", "Every item needs a product name")
		}
		if v.Stock < 0 {
			return apperrors.Invalid("variants", "Stock cannot be negative")
		}
		key := strings.TrimSpace(v.ProductName) + "\x00" + strings.TrimSpace(v.Size)
		if _, dup := seen[key]; dup {
			return apperrors.Invalid("variants", fmt.Sprintf("Duplicate item %s %s", v.ProductName, v.Size))
		}
		seen[key] = struct{}{}
	}
	return nil
}
