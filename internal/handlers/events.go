package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/felicity-dev/felicity/internal/events"
	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/registrations"
	"github.com/felicity-dev/felicity/internal/utils"
	"github.com/gin-gonic/gin"
)

type FormFieldRequest struct {
	Label    string   `json:"label" binding:"required"`
	Type     string   `json:"type" binding:"required,fieldtype"`
	Required bool     `json:"required"`
	Options  []string `json:"options"`
}

type VariantRequest struct {
	ProductName string `json:"product_name" binding:"required"`
	Size        string `json:"size"`
	Stock       int    `json:"stock" binding:"min=0"`
}

type CreateEventRequest struct {
	Name                 string             `json:"name" binding:"required"`
	Description          string             `json:"description"`
	Type                 string             `json:"type" binding:"required,eventtype"`
	Eligibility          string             `json:"eligibility"`
	RegistrationDeadline time.Time          `json:"registration_deadline" binding:"required"`
	StartAt              time.Time          `json:"start_at" binding:"required"`
	EndAt                time.Time          `json:"end_at" binding:"required"`
	RegistrationLimit    int                `json:"registration_limit" binding:"min=0"`
	RegistrationFee      int64              `json:"registration_fee" binding:"min=0"`
	PurchaseLimit        int                `json:"purchase_limit" binding:"min=0"`
	Tags                 []string           `json:"tags"`
	CustomForm           []FormFieldRequest `json:"custom_form" binding:"dive"`
	Variants             []VariantRequest   `json:"variants" binding:"dive"`
}

type UpdateEventRequest struct {
	Name                 *string            `json:"name"`
	Description          *string            `json:"description"`
	Eligibility          *string            `json:"eligibility"`
	RegistrationDeadline *time.Time         `json:"registration_deadline"`
	StartAt              *time.Time         `json:"start_at"`
	EndAt                *time.Time         `json:"end_at"`
	RegistrationLimit    *int               `json:"registration_limit"`
	RegistrationFee      *int64             `json:"registration_fee"`
	PurchaseLimit        *int               `json:"purchase_limit"`
	Tags                 []string           `json:"tags"`
	CustomForm           []FormFieldRequest `json:"custom_form" binding:"omitempty,dive"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,eventstatus"`
}

func formFields(in []FormFieldRequest) []models.FormField {
	if in == nil {
		return nil
	}
	out := make([]models.FormField, len(in))
	for i, f := range in {
		out[i] = models.FormField{Label: f.Label, Type: f.Type, Required: f.Required, Options: f.Options}
	}
	return out
}

func (h *Handler) ListEvents(ctx *gin.Context) {
	filter := events.ListFilter{
		Search: ctx.Query("search"),
		Type:   ctx.Query("type"),
	}

	if raw := ctx.Query("organizer"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			badRequest(ctx, fmt.Errorf("Invalid organizer"))
			return
		}
		filter.OrganizerID = uint(id)
	}

	if ctx.Query("followed") == "true" {
		participant, ok := utils.GetParticipant(ctx)
		if !ok {
			forbidden(ctx)
			return
		}
		filter.FollowedBy = participant.ID
	}

	list, err := h.events.ListPublished(ctx.Request.Context(), filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"events": eventResponses(list)})
}

func (h *Handler) GetEvent(ctx *gin.Context) {
	eventID, err := utils.GetEventID(ctx)
	if err != nil {
		badRequest(ctx, err)
		return
	}

	viewer, err := utils.GetCurrentAccount(ctx)
	if err != nil {
		unauthenticated(ctx)
		return
	}

	event, err := h.events.Get(ctx.Request.Context(), viewer, eventID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"event": eventResponse(event)})
}

func (h *Handler) CreateEvent(ctx *gin.Context) {
	organizer, ok := utils.GetOrganizer(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	var body CreateEventRequest
	if !bind(ctx, &body) {
		return
	}

	variants := make([]events.VariantInput, len(body.Variants))
	for i, v := range body.Variants {
		variants[i] = events.VariantInput{ProductName: v.ProductName, Size: v.Size, Stock: v.Stock}
	}

	event, err := h.events.Create(ctx.Request.Context(), organizer, events.NewEvent{
		Name:                 body.Name,
		Description:          body.Description,
		Type:                 body.Type,
		Eligibility:          body.Eligibility,
		RegistrationDeadline: body.RegistrationDeadline,
		StartAt:              body.StartAt,
		EndAt:                body.EndAt,
		RegistrationLimit:    body.RegistrationLimit,
		RegistrationFee:      body.RegistrationFee,
		PurchaseLimit:        body.PurchaseLimit,
		Tags:                 body.Tags,
		CustomForm:           formFields(body.CustomForm),
		Variants:             variants,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"event": eventResponse(event)})
}

func (h *Handler) UpdateEvent(ctx *gin.Context) {
	organizer, ok := utils.GetOrganizer(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	eventID, err := utils.GetEventID(ctx)
	if err != nil {
		badRequest(ctx, err)
		return
	}

	var body UpdateEventRequest
	if !bind(ctx, &body) {
		return
	}

	event, err := h.events.Update(ctx.Request.Context(), organizer, eventID, events.EventUpdate{
		Name:                 body.Name,
		Description:          body.Description,
		Eligibility:          body.Eligibility,
		RegistrationDeadline: body.RegistrationDeadline,
		StartAt:              body.StartAt,
		EndAt:                body.EndAt,
		RegistrationLimit:    body.RegistrationLimit,
		RegistrationFee:      body.RegistrationFee,
		PurchaseLimit:        body.PurchaseLimit,
		Tags:                 body.Tags,
		CustomForm:           formFields(body.CustomForm),
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"event": eventResponse(event)})
}

func (h *Handler) ChangeEventStatus(ctx *gin.Context) {
	organizer, ok := utils.GetOrganizer(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	eventID, err := utils.GetEventID(ctx)
	if err != nil {
		badRequest(ctx, err)
		return
	}

	var body ChangeStatusRequest
	if !bind(ctx, &body) {
		return
	}

	event, err := h.events.ChangeStatus(ctx.Request.Context(), organizer, eventID, body.Status)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"event": eventResponse(event)})
}

func (h *Handler) ListOrganizerEvents(ctx *gin.Context) {
	organizer, ok := utils.GetOrganizer(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	list, err := h.events.ListByOrganizer(ctx.Request.Context(), organizer.ID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"events": eventResponses(list)})
}

func (h *Handler) eventViewer(ctx *gin.Context) (identity.Account, uint, bool) {
	eventID, err := utils.GetEventID(ctx)
	if err != nil {
		badRequest(ctx, err)
		return nil, 0, false
	}

	viewer, err := utils.GetCurrentAccount(ctx)
	if err != nil {
		unauthenticated(ctx)
		return nil, 0, false
	}

	return viewer, eventID, true
}

func (h *Handler) ListEventRegistrations(ctx *gin.Context) {
	viewer, eventID, ok := h.eventViewer(ctx)
	if !ok {
		return
	}

	list, err := h.registrations.ListForEvent(ctx.Request.Context(), viewer, eventID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"registrations": eventRegistrationResponses(list)})
}

var exportHeader = []string{"Name", "Email", "Registration Date", "Payment Status", "Attendance", "Attendance Time"}

func (h *Handler) ExportRegistrations(ctx *gin.Context) {
	viewer, eventID, ok := h.eventViewer(ctx)
	if !ok {
		return
	}

	list, err := h.registrations.ListForEvent(ctx.Request.Context(), viewer, eventID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="registrations-%d.csv"`, eventID))
	ctx.Header("Content-Type", "text/csv; charset=utf-8")
	ctx.Status(http.StatusOK)

	if err := writeRegistrationsCSV(ctx.Writer, list); err != nil {
		log.Printf("Failed to write export for event %d: %v", eventID, err)
		h.report(err, map[string]interface{}{"event_id": eventID})
	}
}

func writeRegistrationsCSV(w io.Writer, list []registrations.EventRegistration) error {
	out := csv.NewWriter(w)
	if err := out.Write(exportHeader); err != nil {
		return err
	}

	for _, r := range list {
		attendance := "No"
		attendedAt := ""
		if r.Registration.Attended {
			attendance = "Yes"
			if r.Registration.AttendedAt != nil {
				attendedAt = r.Registration.AttendedAt.UTC().Format(time.RFC3339)
			}
		}

		if err := out.Write([]string{
			r.ParticipantName,
			r.ParticipantEmail,
			r.Registration.RegisteredAt.UTC().Format(time.RFC3339),
			r.Registration.PaymentStatus,
			attendance,
			attendedAt,
		}); err != nil {
			return err
		}
	}

	out.Flush()
	return out.Error()
}

func (h *Handler) AttendanceSummary(ctx *gin.Context) {
	viewer, eventID, ok := h.eventViewer(ctx)
	if !ok {
		return
	}

	summary, err := h.registrations.Summary(ctx.Request.Context(), viewer, eventID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"attendance": summary})
}
