package handlers

import (
	"net/http"

	"github.com/felicity-dev/felicity/internal/registrations"
	"github.com/felicity-dev/felicity/internal/tickets"
	"github.com/felicity-dev/felicity/internal/types"
	"github.com/felicity-dev/felicity/internal/utils"
	"github.com/gin-gonic/gin"
)

type VariantSelection struct {
	ID          uint   `json:"id"`
	ProductName string `json:"productName"`
	Size        string `json:"size"`
}

type RegisterRequest struct {
	EventID  uint                   `json:"eventId" binding:"required"`
	FormData map[string]interface{} `json:"formData"`
	Variant  *VariantSelection      `json:"variant"`
	Quantity int                    `json:"quantity" binding:"min=0"`
}

type MarkAttendanceRequest struct {
	TicketID string `json:"ticketId" binding:"required"`
}

func (h *Handler) Register(ctx *gin.Context) {
	participant, ok := utils.GetParticipant(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	var body RegisterRequest
	if !bind(ctx, &body) {
		return
	}

	sub := registrations.Submission{
		EventID:  body.EventID,
		FormData: body.FormData,
		Quantity: body.Quantity,
	}
	if body.Variant != nil {
		sub.Variant = &registrations.VariantRef{
			ID:          body.Variant.ID,
			ProductName: body.Variant.ProductName,
			Size:        body.Variant.Size,
		}
	}

	reg, err := h.registrations.Register(ctx.Request.Context(), participant, sub)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"ticketId":     reg.TicketID,
		"registration": registrationResponse(reg),
	})
}

func (h *Handler) MyRegistrations(ctx *gin.Context) {
	participant, ok := utils.GetParticipant(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	list, err := h.registrations.ListForParticipant(ctx.Request.Context(), participant)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"registrations": ticketResponses(list)})
}

func (h *Handler) CancelRegistration(ctx *gin.Context) {
	participant, ok := utils.GetParticipant(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	eventID, err := utils.GetIDParam(ctx, "eventId")
	if err != nil {
		badRequest(ctx, err)
		return
	}

	reg, err := h.registrations.Cancel(ctx.Request.Context(), participant, eventID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"registration": registrationResponse(reg)})
}

// TicketQR renders the participant's ticket payload as a PNG.
func (h *Handler) TicketQR(ctx *gin.Context) {
	participant, ok := utils.GetParticipant(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	reg, err := h.registrations.Ticket(ctx.Request.Context(), participant, ctx.Param("ticketId"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	png, err := tickets.RenderPNG(tickets.Payload{
		TicketID:      reg.TicketID,
		EventID:       reg.EventID,
		ParticipantID: reg.ParticipantID,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.Header("Cache-Control", "private, max-age=3600")
	ctx.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) MarkAttendance(ctx *gin.Context) {
	organizer, ok := utils.GetOrganizer(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	var body MarkAttendanceRequest
	if !bind(ctx, &body) {
		return
	}

	result, err := h.registrations.MarkAttendance(ctx.Request.Context(), organizer, body.TicketID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.AttendanceResponse{
		Participant: types.AttendanceParticipant{
			Name:    result.ParticipantName,
			Email:   result.ParticipantEmail,
			EventID: result.EventID,
		},
		AttendanceTime: result.AttendedAt,
	})
}
