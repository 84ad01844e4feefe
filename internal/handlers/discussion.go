package handlers

import (
	"net/http"

	"github.com/felicity-dev/felicity/internal/discussion"
	"github.com/felicity-dev/felicity/internal/utils"
	"github.com/gin-gonic/gin"
)

type PostMessageRequest struct {
	Content  string `json:"content" binding:"required"`
	Type     string `json:"type" binding:"omitempty,oneof=message announcement"`
	ParentID string `json:"parent_id"`
}

type ReactRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

func (h *Handler) ListMessages(ctx *gin.Context) {
	viewer, eventID, ok := h.eventViewer(ctx)
	if !ok {
		return
	}

	threads, err := h.discussion.History(ctx.Request.Context(), viewer, eventID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"messages": threads})
}

func (h *Handler) PostMessage(ctx *gin.Context) {
	author, eventID, ok := h.eventViewer(ctx)
	if !ok {
		return
	}

	var body PostMessageRequest
	if !bind(ctx, &body) {
		return
	}

	msg, err := h.discussion.Post(ctx.Request.Context(), author, eventID, discussion.PostInput{
		Content:  body.Content,
		Type:     body.Type,
		ParentID: body.ParentID,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *Handler) DeleteMessage(ctx *gin.Context) {
	requester, err := utils.GetCurrentAccount(ctx)
	if err != nil {
		unauthenticated(ctx)
		return
	}

	removed, err := h.discussion.Delete(ctx.Request.Context(), requester, ctx.Param("id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"deleted": removed})
}

func (h *Handler) PinMessage(ctx *gin.Context) {
	requester, err := utils.GetCurrentAccount(ctx)
	if err != nil {
		unauthenticated(ctx)
		return
	}

	msg, err := h.discussion.Pin(ctx.Request.Context(), requester, ctx.Param("id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *Handler) ReactToMessage(ctx *gin.Context) {
	viewer, err := utils.GetCurrentAccount(ctx)
	if err != nil {
		unauthenticated(ctx)
		return
	}

	var body ReactRequest
	if !bind(ctx, &body) {
		return
	}

	reactions, err := h.discussion.React(ctx.Request.Context(), viewer, ctx.Param("id"), body.Emoji)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message_id": ctx.Param("id"), "reactions": reactions})
}

func (h *Handler) UnreadAnnouncements(ctx *gin.Context) {
	participant, ok := utils.GetParticipant(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	unread, err := h.discussion.UnreadAnnouncements(ctx.Request.Context(), participant)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"announcements": unread, "count": len(unread)})
}

func (h *Handler) MarkAnnouncementsRead(ctx *gin.Context) {
	participant, ok := utils.GetParticipant(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	if err := h.discussion.MarkAnnouncementsRead(ctx.Request.Context(), participant); err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Announcements marked as read"})
}
