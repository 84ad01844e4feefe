package events

import (
	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/models"
)

// transitions lists every legal status change. completed and closed are terminal.
var transitions = map[string][]string{
	models.EventStatusDraft:     {models.EventStatusPublished},
	models.EventStatusPublished: {models.EventStatusOngoing, models.EventStatusClosed},
	models.EventStatusOngoing:   {models.EventStatusCompleted},
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns InvalidStatusTransition unless from -> to is legal.
func Transition(from, to string) error {
	if !CanTransition(from, to) {
		return apperrors.InvalidStatusTransition(from, to)
	}
	return nil
}

// IsKnownStatus reports whether status is one of the event states.
func IsKnownStatus(status string) bool {
	switch status {
	case models.EventStatusDraft, models.EventStatusPublished, models.EventStatusOngoing,
		models.EventStatusCompleted, models.EventStatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}
