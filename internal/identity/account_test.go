package identity

import (
	"testing"

	"github.com/felicity-dev/felicity/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromModelNarrowsByRole(t *testing.T) {
	participant, err := FromModel(models.Account{
		BaseModel: models.BaseModel{ID: 1},
		Email:     "p@example.com",
		Role:      models.RoleParticipant,
		FirstName: "Asha",
		LastName:  "Rao",
		// organizer columns on a participant row are never surfaced
		OrganizerName: "ignored",
	})
	require.NoError(t, err)

	p, ok := participant.(Participant)
	require.True(t, ok)
	assert.Equal(t, "Asha Rao", p.DisplayName())
	assert.Equal(t, models.RoleParticipant, p.Role())

	organizer, err := FromModel(models.Account{
		BaseModel:     models.BaseModel{ID: 2},
		Email:         "club@example.com",
		Role:          models.RoleOrganizer,
		OrganizerName: "Chess Club",
	})
	require.NoError(t, err)

	o, ok := organizer.(Organizer)
	require.True(t, ok)
	assert.Equal(t, "Chess Club", o.DisplayName())

	admin, err := FromModel(models.Account{BaseModel: models.BaseModel{ID: 3}, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.IsType(t, Admin{}, admin)
}

func TestFromModelRejectsUnknownRole(t *testing.T) {
	_, err := FromModel(models.Account{Role: "superuser"})
	assert.Error(t, err)
}

func TestDisplayNameFallsBackToEmail(t *testing.T) {
	assert.Equal(t, "p@example.com", Participant{Email: "p@example.com"}.DisplayName())
	assert.Equal(t, "o@example.com", Organizer{Email: "o@example.com"}.DisplayName())
}

func TestIsOwner(t *testing.T) {
	assert.True(t, IsOwner(Organizer{ID: 7}, 7))
	assert.False(t, IsOwner(Organizer{ID: 7}, 8))
	assert.False(t, IsOwner(Participant{ID: 7}, 7))
	assert.False(t, IsOwner(Admin{ID: 7}, 7))
}
