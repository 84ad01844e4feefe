package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/felicity-dev/felicity/internal/auth"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/testutil"
	"github.com/felicity-dev/felicity/internal/types"
	"github.com/felicity-dev/felicity/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) (*gin.Engine, *auth.Issuer, models.Account) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database := testutil.NewDB(t)
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	user := models.Account{Email: "org@example.com", PasswordHash: "x", Role: models.RoleOrganizer, OrganizerName: "Club"}
	require.NoError(t, database.Create(&user).Error)

	r := gin.New()
	r.GET("/me", AuthMiddleware(issuer, database), func(ctx *gin.Context) {
		account, err := utils.GetCurrentAccount(ctx)
		require.NoError(t, err)
		ctx.JSON(http.StatusOK, gin.H{"name": account.DisplayName()})
	})
	r.GET("/admin", AuthMiddleware(issuer, database), RequireRole(models.RoleAdmin), func(ctx *gin.Context) {
		ctx.Status(http.StatusNoContent)
	})

	return r, issuer, user
}

func TestAuthMiddlewareAcceptsBearerAndCookie(t *testing.T) {
	r, issuer, user := newEngine(t)

	token, err := issuer.Generate(user.ID, user.Email, user.Role)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Club")

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: types.TokenCookie, Value: token})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareRejectsMissingOrBadToken(t *testing.T) {
	r, _, _ := newEngine(t)

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestRequireRole(t *testing.T) {
	r, issuer, user := newEngine(t)

	token, err := issuer.Generate(user.ID, user.Email, user.Role)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
