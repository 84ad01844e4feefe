package registrations

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/models"
)

// validateFormData checks a submission against the event's custom form and
// returns the values keyed by label. Missing required fields are reported
// before malformed ones; keys that are not form labels are dropped.
func validateFormData(fields []models.FormField, data map[string]interface{}) (map[string]interface{}, error) {
	for _, f := range fields {
		if !f.Required {
			continue
		}
		value, ok := data[f.Label]
		if f.Type == models.FieldTypeCheckbox {
			if !ok || !truthy(value) {
				return nil, apperrors.MissingRequiredField(f.Label)
			}
			continue
		}
		if !ok || isEmpty(value) {
			return nil, apperrors.MissingRequiredField(f.Label)
		}
	}

	clean := make(map[string]interface{}, len(fields))

	for _, f := range fields {
		value, ok := data[f.Label]
		if !ok || isEmpty(value) {
			continue
		}

		switch f.Type {
		case models.FieldTypeCheckbox:
			clean[f.Label] = truthy(value)
		case models.FieldTypeNumber:
			n, err := toNumber(value)
			if err != nil {
				return nil, apperrors.Invalid(f.Label, fmt.Sprintf("%s must be a number", f.Label))
			}
			clean[f.Label] = n
		case models.FieldTypeEmail:
			s, _ := value.(string)
			addr, err := mail.ParseAddress(strings.TrimSpace(s))
			if err != nil {
				return nil, apperrors.Invalid(f.Label, fmt.Sprintf("%s must be a valid email address", f.Label))
			}
			clean[f.Label] = addr.Address
		case models.FieldTypeDropdown:
			s, _ := value.(string)
			if !contains(f.Options, s) {
				return nil, apperrors.Invalid(f.Label, fmt.Sprintf("%s must be one of the listed options", f.Label))
			}
			clean[f.Label] = s
		default:
			// text and file values are opaque strings
			clean[f.Label] = strings.TrimSpace(fmt.Sprint(value))
		}
	}

	return clean, nil
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	}
	return false
}

func truthy(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	}
	return false
}

func toNumber(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	return 0, fmt.Errorf("not a number: %T", value)
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
