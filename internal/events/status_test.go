package events

import (
	"testing"

	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/stretchr/testify/assert"
)

var allStatuses = []string{
	models.EventStatusDraft,
	models.EventStatusPublished,
	models.EventStatusOngoing,
	models.EventStatusCompleted,
	models.EventStatusClosed,
}

func TestTransitionTable(t *testing.T) {
	legal := map[[2]string]bool{
		{models.EventStatusDraft, models.EventStatusPublished}:   true,
		{models.EventStatusPublished, models.EventStatusOngoing}: true,
		{models.EventStatusPublished, models.EventStatusClosed}:  true,
		{models.EventStatusOngoing, models.EventStatusCompleted}: true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			err := Transition(from, to)
			if legal[[2]string{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			assert.True(t, apperrors.Is(err, apperrors.CodeInvalidStatusTransition), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, IsTerminal(models.EventStatusCompleted))
	assert.True(t, IsTerminal(models.EventStatusClosed))
	assert.False(t, IsTerminal(models.EventStatusPublished))
	assert.False(t, IsKnownStatus("archived"))
}
