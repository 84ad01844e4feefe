package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("register: %w", ErrEventFull)

	assert.Equal(t, CodeEventFull, CodeOf(wrapped))
	assert.True(t, Is(wrapped, CodeEventFull))
	assert.False(t, Is(wrapped, CodeOutOfStock))
	assert.Equal(t, Code(""), CodeOf(errors.New("boom")))
	assert.False(t, Is(nil, CodeEventFull))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeEventFull, http.StatusBadRequest},
		{CodeRegistrationClosed, http.StatusBadRequest},
		{CodeAlreadyMarked, http.StatusBadRequest},
		{CodeEventNotFound, http.StatusNotFound},
		{CodeTicketNotFound, http.StatusNotFound},
		{CodeNotAuthorized, http.StatusForbidden},
		{CodeUnauthenticated, http.StatusUnauthorized},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestMissingRequiredFieldCarriesLabel(t *testing.T) {
	err := MissingRequiredField("T-shirt size")

	assert.Equal(t, CodeMissingRequiredField, err.Code)
	assert.Equal(t, "T-shirt size", err.Field)
	assert.Equal(t, "T-shirt size is required", err.Error())
}

func TestWithFieldDoesNotMutateShared(t *testing.T) {
	_ = ErrEventFull.WithField("eventId")

	assert.Empty(t, ErrEventFull.Field)
}
