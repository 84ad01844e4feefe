package handlers

import (
	"net/http"

	"github.com/felicity-dev/felicity/internal/types"
	"github.com/felicity-dev/felicity/internal/utils"
	"github.com/gin-gonic/gin"
)

type CreateTeamRequest struct {
	Name string `json:"name" binding:"required"`
	Size int    `json:"size" binding:"required"`
}

type JoinTeamRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *Handler) CreateTeam(ctx *gin.Context) {
	participant, ok := utils.GetParticipant(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	eventID, err := utils.GetEventID(ctx)
	if err != nil {
		badRequest(ctx, err)
		return
	}

	var body CreateTeamRequest
	if !bind(ctx, &body) {
		return
	}

	team, err := h.teams.Create(ctx.Request.Context(), participant, eventID, body.Name, body.Size)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"team": teamResponse(team)})
}

func (h *Handler) ListTeams(ctx *gin.Context) {
	eventID, err := utils.GetEventID(ctx)
	if err != nil {
		badRequest(ctx, err)
		return
	}

	list, err := h.teams.List(ctx.Request.Context(), eventID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	out := make([]types.TeamResponse, 0, len(list))
	for _, t := range list {
		resp := teamResponse(t)
		// invite codes are only shown to members
		resp.InviteCode = ""
		out = append(out, resp)
	}

	ctx.JSON(http.StatusOK, gin.H{"teams": out})
}

func (h *Handler) MyTeam(ctx *gin.Context) {
	participant, ok := utils.GetParticipant(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	eventID, err := utils.GetEventID(ctx)
	if err != nil {
		badRequest(ctx, err)
		return
	}

	team, err := h.teams.ForParticipant(ctx.Request.Context(), participant, eventID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"team": teamResponse(team)})
}

func (h *Handler) JoinTeam(ctx *gin.Context) {
	participant, ok := utils.GetParticipant(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	eventID, err := utils.GetEventID(ctx)
	if err != nil {
		badRequest(ctx, err)
		return
	}

	var body JoinTeamRequest
	if !bind(ctx, &body) {
		return
	}

	team, err := h.teams.Join(ctx.Request.Context(), participant, eventID, body.InviteCode)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"team": teamResponse(team)})
}

func (h *Handler) InviteToTeam(ctx *gin.Context) {
	participant, ok := utils.GetParticipant(ctx)
	if !ok {
		forbidden(ctx)
		return
	}

	teamID, err := utils.GetIDParam(ctx, "id")
	if err != nil {
		badRequest(ctx, err)
		return
	}

	var body InviteRequest
	if !bind(ctx, &body) {
		return
	}

	member, err := h.teams.Invite(ctx.Request.Context(), participant, teamID, body.Email)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"member": types.TeamMemberResponse{
		ParticipantID: member.ParticipantID,
		Status:        member.Status,
	}})
}
