package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/felicity-dev/felicity/internal/auth"
	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/types"
	"github.com/felicity-dev/felicity/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthMiddleware resolves the session token from the Authorization header or
// the token cookie and stores the caller's identity.Account on the context.
func AuthMiddleware(issuer *auth.Issuer, database *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, msg := extractToken(ctx)

		if tokenString == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		claims, err := issuer.Verify(tokenString)

		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		var user models.Account

		if err := database.WithContext(ctx.Request.Context()).First(&user, claims.UserID).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("Failed to load user %d: %v", claims.UserID, err)
			}
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		account, err := identity.FromModel(user)

		if err != nil {
			log.Printf("Rejecting session for malformed account: %v", err)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		ctx.Set(types.ContextUserKey, account)
		ctx.Next()
	}
}

func extractToken(ctx *gin.Context) (string, string) {
	authHeader := ctx.GetHeader("Authorization")

	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)

		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", "Authorization header format must be Bearer {token}"
		}

		return parts[1], ""
	}

	if cookie, err := ctx.Cookie(types.TokenCookie); err == nil && cookie != "" {
		return cookie, ""
	}

	return "", "Authorization token is required"
}

// RequireRole aborts with 403 unless the authenticated account has one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		account, err := utils.GetCurrentAccount(ctx)

		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		for _, role := range roles {
			if account.Role() == role {
				ctx.Next()
				return
			}
		}

		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
	}
}
