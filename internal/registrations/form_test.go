package registrations

import (
	"testing"

	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFormData(t *testing.T) {
	fields := []models.FormField{
		{Label: "Name", Type: models.FieldTypeText, Required: true},
		{Label: "Contact", Type: models.FieldTypeEmail},
		{Label: "Age", Type: models.FieldTypeNumber},
		{Label: "Track", Type: models.FieldTypeDropdown, Options: []string{"AI", "Systems"}},
		{Label: "Newsletter", Type: models.FieldTypeCheckbox},
		{Label: "Resume", Type: models.FieldTypeFile},
	}

	clean, err := validateFormData(fields, map[string]interface{}{
		"Name":       " Asha ",
		"Contact":    "Asha <asha@example.com>",
		"Age":        "21",
		"Track":      "AI",
		"Newsletter": "true",
		"Resume":     "uploads/resume.pdf",
		"Injected":   "dropped",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"Name":       "Asha",
		"Contact":    "asha@example.com",
		"Age":        float64(21),
		"Track":      "AI",
		"Newsletter": true,
		"Resume":     "uploads/resume.pdf",
	}, clean)

	tests := []struct {
		name string
		data map[string]interface{}
		code apperrors.Code
	}{
		{"missing required", map[string]interface{}{}, apperrors.CodeMissingRequiredField},
		{"bad number", map[string]interface{}{"Name": "A", "Age": "old"}, apperrors.CodeInvalidInput},
		{"bad email", map[string]interface{}{"Name": "A", "Contact": "nope"}, apperrors.CodeInvalidInput},
		{"unknown option", map[string]interface{}{"Name": "A", "Track": "Web"}, apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateFormData(fields, tt.data)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
}

func TestMissingFieldReportedBeforeMalformed(t *testing.T) {
	fields := []models.FormField{
		{Label: "Age", Type: models.FieldTypeNumber},
		{Label: "Name", Type: models.FieldTypeText, Required: true},
	}

	_, err := validateFormData(fields, map[string]interface{}{"Age": "x"})
	assert.Equal(t, apperrors.CodeMissingRequiredField, apperrors.CodeOf(err))
}
