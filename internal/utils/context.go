package utils

import (
	"fmt"

	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/types"
	"github.com/gin-gonic/gin"
)

func GetCurrentAccount(ctx *gin.Context) (identity.Account, error) {
	user, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return nil, fmt.Errorf("User not authenticated")
	}

	account, ok := user.(identity.Account)

	if !ok {
		return nil, fmt.Errorf("Invalid user type in context")
	}

	return account, nil
}

// GetParticipant narrows the session account to a participant.
func GetParticipant(ctx *gin.Context) (identity.Participant, bool) {
	account, err := GetCurrentAccount(ctx)
	if err != nil {
		return identity.Participant{}, false
	}
	p, ok := account.(identity.Participant)
	return p, ok
}

// GetOrganizer narrows the session account to an organizer.
func GetOrganizer(ctx *gin.Context) (identity.Organizer, bool) {
	account, err := GetCurrentAccount(ctx)
	if err != nil {
		return identity.Organizer{}, false
	}
	o, ok := account.(identity.Organizer)
	return o, ok
}
