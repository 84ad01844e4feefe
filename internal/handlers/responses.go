package handlers

import (
	"github.com/felicity-dev/felicity/internal/identity"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/registrations"
	"github.com/felicity-dev/felicity/internal/types"
)

func userResponse(acct identity.Account) types.UserResponse {
	return types.UserResponse{
		ID:      acct.AccountID(),
		Email:   acct.AccountEmail(),
		Role:    acct.Role(),
		Name:    acct.DisplayName(),
		Profile: acct,
	}
}

func eventResponse(e models.Event) types.EventResponse {
	resp := types.EventResponse{
		ID:                   e.ID,
		Name:                 e.Name,
		Description:          e.Description,
		Type:                 e.Type,
		OrganizerID:          e.OrganizerID,
		Status:               e.Status,
		Eligibility:          e.Eligibility,
		RegistrationDeadline: e.RegistrationDeadline,
		StartAt:              e.StartAt,
		EndAt:                e.EndAt,
		RegistrationLimit:    e.RegistrationLimit,
		RegistrationFee:      e.RegistrationFee,
		PurchaseLimit:        e.PurchaseLimit,
		Tags:                 []string(e.Tags),
		CustomForm:           []models.FormField(e.CustomForm),
		RegistrationCount:    e.RegistrationCount,
		Revenue:              e.Revenue,
		AttendanceCount:      e.AttendanceCount,
		CreatedAt:            e.CreatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if resp.CustomForm == nil {
		resp.CustomForm = []models.FormField{}
	}

	for _, v := range e.Variants {
		resp.Variants = append(resp.Variants, types.VariantResponse{
			ID:          v.ID,
			ProductName: v.ProductName,
			Size:        v.Size,
			Stock:       v.Stock,
		})
	}
	return resp
}

func eventResponses(list []models.Event) []types.EventResponse {
	out := make([]types.EventResponse, 0, len(list))
	for _, e := range list {
		out = append(out, eventResponse(e))
	}
	return out
}

func registrationResponse(r models.Registration) types.RegistrationResponse {
	return types.RegistrationResponse{
		ID:            r.ID,
		EventID:       r.EventID,
		ParticipantID: r.ParticipantID,
		TicketID:      r.TicketID,
		FormData:      map[string]interface{}(r.FormData),
		VariantID:     r.VariantID,
		Quantity:      r.Quantity,
		Amount:        r.Amount,
		PaymentStatus: r.PaymentStatus,
		Status:        r.Status,
		Attended:      r.Attended,
		AttendedAt:    r.AttendedAt,
		RegisteredAt:  r.RegisteredAt,
	}
}

func ticketResponses(list []registrations.ParticipantTicket) []types.TicketResponse {
	out := make([]types.TicketResponse, 0, len(list))
	for _, t := range list {
		out = append(out, types.TicketResponse{
			Registration: registrationResponse(t.Registration),
			Event:        eventResponse(t.Event),
		})
	}
	return out
}

func eventRegistrationResponses(list []registrations.EventRegistration) []types.EventRegistrationResponse {
	out := make([]types.EventRegistrationResponse, 0, len(list))
	for _, r := range list {
		out = append(out, types.EventRegistrationResponse{
			RegistrationResponse: registrationResponse(r.Registration),
			ParticipantName:      r.ParticipantName,
			ParticipantEmail:     r.ParticipantEmail,
		})
	}
	return out
}

func teamResponse(t models.Team) types.TeamResponse {
	resp := types.TeamResponse{
		ID:          t.ID,
		EventID:     t.EventID,
		Name:        t.Name,
		InviteCode:  t.InviteCode,
		LeaderID:    t.LeaderID,
		TargetSize:  t.TargetSize,
		MemberCount: t.MemberCount,
		Status:      t.Status,
		Members:     make([]types.TeamMemberResponse, 0, len(t.Members)),
	}
	for _, m := range t.Members {
		resp.Members = append(resp.Members, types.TeamMemberResponse{ParticipantID: m.ParticipantID, Status: m.Status})
	}
	return resp
}

func resetRequestResponse(r models.PasswordResetRequest) types.ResetRequestResponse {
	return types.ResetRequestResponse{
		ID:           r.ID,
		OrganizerID:  r.OrganizerID,
		Reason:       r.Reason,
		Status:       r.Status,
		AdminComment: r.AdminComment,
		CreatedAt:    r.CreatedAt,
		ResolvedAt:   r.ResolvedAt,
	}
}
