package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())

	ctx.Params = gin.Params{{Key: "id", Value: "12"}}
	id, err := GetEventID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)

	for _, raw := range []string{"", "abc", "0", "-3"} {
		ctx.Params = gin.Params{{Key: "id", Value: raw}}
		_, err := GetEventID(ctx)
		assert.Error(t, err, raw)
	}
}

func TestValidateWebhookURL(t *testing.T) {
	got, err := ValidateWebhookURL("  https://discord.com/api/webhooks/1/abc ")
	require.NoError(t, err)
	assert.Equal(t, "https://discord.com/api/webhooks/1/abc", got)

	got, err = ValidateWebhookURL("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ValidateWebhookURL("ftp://example.com")
	assert.Error(t, err)

	_, err = ValidateWebhookURL("https://")
	assert.Error(t, err)
}

func TestGetCurrentAccountNarrowing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetCurrentAccount(ctx)
	assert.Error(t, err)

	ctx.Set(types.ContextUserKey, identity.Organizer{ID: 5})

	acct, err := GetCurrentAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(5), acct.AccountID())

	_, ok := GetParticipant(ctx)
	assert.False(t, ok)

	org, ok := GetOrganizer(ctx)
	assert.True(t, ok)
	assert.Equal(t, uint(5), org.ID)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.com", NormalizeEmail("  A@B.com "))
}
