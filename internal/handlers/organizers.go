package handlers

import (
	"net/http"

	"github.com/felicity-dev/felicity/internal/accounts"
	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/types"
	"github.com/felicity-dev/felicity/internal/utils"
	"github.com/gin-gonic/gin"
)

type CreateOrganizerRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Name         string `json:"name" binding:"required"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
}

type ResolveResetRequest struct {
	Comment string `json:"comment"`
}

// organizerListing strips the webhook, which only the organizer and admins see.
func organizerListing(list []identity.Organizer) []identity.Organizer {
	out := make([]identity.Organizer, len(list))
	for i, o := range list {
		o.DiscordWebhook = ""
		out[i] = o
	}
	return out
}

func (h *Handler) ListOrganizers(ctx *gin.Context) {
	list, err := h.accounts.ListOrganizers(ctx.Request.Context())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	body := gin.H{"organizers": organizerListing(list)}

	if participant, ok := utils.GetParticipant(ctx); ok {
		followed, err := h.accounts.FollowedOrganizerIDs(ctx.Request.Context(), participant)
		if err != nil {
			h.respondError(ctx, err)
			return
		}
		body["followed"] = followed
	}

	ctx.JSON(http.StatusOK, body)
}

func (h *Handler) FollowOrganizer(ctx *gin.Context) {
	h.setFollow(ctx, true)
}

func (h *Handler) UnfollowOrganizer(ctx *gin.Context) {
	h.setFollow(ctx, false)
}

func (h *Handler) setFollow(ctx *gin.Context, follow bool) {
	participant, ok := utils.GetParticipant(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	organizerID, err := utils.GetIDParam(ctx, "id")
	if err != nil {
		badRequest(ctx, err)
		return
	}

	if follow {
		err = h.accounts.Follow(ctx.Request.Context(), participant, organizerID)
	} else {
		err = h.accounts.Unfollow(ctx.Request.Context(), participant, organizerID)
	}
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"organizer_id": organizerID, "following": follow})
}

func (h *Handler) AdminCreateOrganizer(ctx *gin.Context) {
	var body CreateOrganizerRequest
	if !bind(ctx, &body) {
		return
	}

	organizer, password, err := h.accounts.CreateOrganizer(ctx.Request.Context(), accounts.NewOrganizer{
		Email:        body.Email,
		Name:         body.Name,
		Category:     body.Category,
		Description:  body.Description,
		ContactEmail: body.ContactEmail,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"organizer": organizer,
		"password":  password,
	})
}

func (h *Handler) AdminListOrganizers(ctx *gin.Context) {
	list, err := h.accounts.ListOrganizers(ctx.Request.Context())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"organizers": list})
}

func (h *Handler) AdminDeleteOrganizer(ctx *gin.Context) {
	organizerID, err := utils.GetIDParam(ctx, "id")
	if err != nil {
		badRequest(ctx, err)
		return
	}

	if err := h.accounts.DeleteOrganizer(ctx.Request.Context(), organizerID); err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Organizer deleted successfully"})
}

func (h *Handler) AdminListEvents(ctx *gin.Context) {
	list, err := h.events.ListAll(ctx.Request.Context())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"events": eventResponses(list)})
}

func (h *Handler) AdminListPasswordResets(ctx *gin.Context) {
	status := ctx.Query("status")
	switch status {
	case "", models.ResetPending, models.ResetApproved, models.ResetRejected:
	default:
		badRequest(ctx, errInvalidStatus)
		return
	}

	list, err := h.accounts.ListResetRequests(ctx.Request.Context(), status)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	out := make([]types.ResetRequestResponse, 0, len(list))
	for _, r := range list {
		out = append(out, resetRequestResponse(r))
	}

	ctx.JSON(http.StatusOK, gin.H{"requests": out})
}

func (h *Handler) AdminApprovePasswordReset(ctx *gin.Context) {
	requestID, err := utils.GetIDParam(ctx, "id")
	if err != nil {
		badRequest(ctx, err)
		return
	}

	var body ResolveResetRequest
	if ctx.Request.ContentLength > 0 && !bind(ctx, &body) {
		return
	}

	password, err := h.accounts.ApproveReset(ctx.Request.Context(), requestID, body.Comment)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"password": password})
}

func (h *Handler) AdminRejectPasswordReset(ctx *gin.Context) {
	requestID, err := utils.GetIDParam(ctx, "id")
	if err != nil {
		badRequest(ctx, err)
		return
	}

	var body ResolveResetRequest
	if ctx.Request.ContentLength > 0 && !bind(ctx, &body) {
		return
	}

	if err := h.accounts.RejectReset(ctx.Request.Context(), requestID, body.Comment); err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Request rejected"})
}
