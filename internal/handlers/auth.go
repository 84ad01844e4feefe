package handlers

import (
	"net/http"

	"github.com/felicity-dev/felicity/internal/accounts"
	"github.com/felicity-dev/felicity/internal/types"
	"github.com/felicity-dev/felicity/internal/utils"
	"github.com/gin-gonic/gin"
)

type CreateUserRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name"`
	College         string `json:"college"`
	ContactNumber   string `json:"contact_number"`
	ParticipantType string `json:"participant_type" binding:"required,oneof=iiit non-iiit"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateUserRequest struct {
	FirstName     *string  `json:"first_name"`
	LastName      *string  `json:"last_name"`
	College       *string  `json:"college"`
	ContactNumber *string  `json:"contact_number"`
	Interests     []string `json:"interests"`

	OrganizerName  *string `json:"organizer_name"`
	Category       *string `json:"category"`
	Description    *string `json:"description"`
	ContactEmail   *string `json:"contact_email" binding:"omitempty,email"`
	DiscordWebhook *string `json:"discord_webhook"`

	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"omitempty,min=8"`
}

type OnboardingRequest struct {
	Interests    []string `json:"interests"`
	OrganizerIDs []uint   `json:"organizer_ids"`
}

type PasswordResetRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) setSessionCookie(ctx *gin.Context, token string) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     types.TokenCookie,
		Value:    token,
		Path:     "/",
		Domain:   h.cfg.CookieDomain,
		MaxAge:   int(h.issuer.TTL().Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *Handler) clearSessionCookie(ctx *gin.Context) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     types.TokenCookie,
		Value:    "",
		Path:     "/",
		Domain:   h.cfg.CookieDomain,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *Handler) CreateUser(ctx *gin.Context) {
	var body CreateUserRequest
	if !bind(ctx, &body) {
		return
	}

	session, err := h.accounts.Register(ctx.Request.Context(), accounts.SignUp{
		Email:           body.Email,
		Password:        body.Password,
		FirstName:       body.FirstName,
		LastName:        body.LastName,
		College:         body.College,
		ContactNumber:   body.ContactNumber,
		ParticipantType: body.ParticipantType,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.setSessionCookie(ctx, session.Token)

	ctx.JSON(http.StatusCreated, gin.H{
		"user":  userResponse(session.Account),
		"token": session.Token,
	})
}

func (h *Handler) LoginUser(ctx *gin.Context) {
	var body LoginUserRequest
	if !bind(ctx, &body) {
		return
	}

	session, err := h.accounts.Login(ctx.Request.Context(), body.Email, body.Password)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.setSessionCookie(ctx, session.Token)

	ctx.JSON(http.StatusOK, gin.H{
		"user":  userResponse(session.Account),
		"token": session.Token,
	})
}

func (h *Handler) Me(ctx *gin.Context) {
	current, err := utils.GetCurrentAccount(ctx)
	if err != nil {
		unauthenticated(ctx)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": userResponse(current)})
}

func (h *Handler) LogoutUser(ctx *gin.Context) {
	h.clearSessionCookie(ctx)
	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) UpdateUser(ctx *gin.Context) {
	current, err := utils.GetCurrentAccount(ctx)
	if err != nil {
		unauthenticated(ctx)
		return
	}

	var body UpdateUserRequest
	if !bind(ctx, &body) {
		return
	}

	updated, err := h.accounts.UpdateProfile(ctx.Request.Context(), current, accounts.ProfileUpdate{
		FirstName:       body.FirstName,
		LastName:        body.LastName,
		College:         body.College,
		ContactNumber:   body.ContactNumber,
		Interests:       body.Interests,
		OrganizerName:   body.OrganizerName,
		Category:        body.Category,
		Description:     body.Description,
		ContactEmail:    body.ContactEmail,
		DiscordWebhook:  body.DiscordWebhook,
		CurrentPassword: body.CurrentPassword,
		NewPassword:     body.NewPassword,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    userResponse(updated),
	})
}

func (h *Handler) CompleteOnboarding(ctx *gin.Context) {
	participant, ok := utils.GetParticipant(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	var body OnboardingRequest
	if !bind(ctx, &body) {
		return
	}

	updated, err := h.accounts.CompleteOnboarding(ctx.Request.Context(), participant, body.Interests, body.OrganizerIDs)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": userResponse(updated)})
}

func (h *Handler) RequestPasswordReset(ctx *gin.Context) {
	organizer, ok := utils.GetOrganizer(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	var body PasswordResetRequest
	if !bind(ctx, &body) {
		return
	}

	req, err := h.accounts.RequestPasswordReset(ctx.Request.Context(), organizer, body.Reason)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"request": resetRequestResponse(req)})
}
