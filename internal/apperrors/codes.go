// Package apperrors holds the user-facing error taxonomy of the service.
//
// Every expected validation outcome of a workflow is an *Error carrying a Code.
// Anything else that reaches a handler is treated as an unexpected server failure.
package apperrors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// Registration errors
	CodeRegistrationClosed   Code = "REGISTRATION_CLOSED"
	CodeDeadlinePassed       Code = "DEADLINE_PASSED"
	CodeAlreadyRegistered    Code = "ALREADY_REGISTERED"
	CodeEventFull            Code = "EVENT_FULL"
	CodeOutOfStock           Code = "OUT_OF_STOCK"
	CodeMissingRequiredField Code = "MISSING_REQUIRED_FIELD"
	CodeVariantNotFound      Code = "VARIANT_NOT_FOUND"
	CodeRegistrationNotFound Code = "REGISTRATION_NOT_FOUND"

	// Event errors
	CodeEventNotFound           Code = "EVENT_NOT_FOUND"
	CodeInvalidStatusTransition Code = "INVALID_STATUS_TRANSITION"
	CodeEditLocked              Code = "EDIT_LOCKED"

	// Attendance errors
	CodeTicketNotFound Code = "TICKET_NOT_FOUND"
	CodeAlreadyMarked  Code = "ALREADY_MARKED"

	// Discussion errors
	CodeMessageNotFound       Code = "MESSAGE_NOT_FOUND"
	CodeParentNotFound        Code = "PARENT_NOT_FOUND"
	CodeNestedReplyNotAllowed Code = "NESTED_REPLY_NOT_ALLOWED"
	CodeNotRegistered         Code = "NOT_REGISTERED"

	// Team errors
	CodeTeamNotFound    Code = "TEAM_NOT_FOUND"
	CodeTeamFull        Code = "TEAM_FULL"
	CodeAlreadyInTeam   Code = "ALREADY_IN_TEAM"
	CodeTeamsNotAllowed Code = "TEAMS_NOT_ALLOWED"

	// Account errors
	CodeAccountNotFound      Code = "ACCOUNT_NOT_FOUND"
	CodeEmailTaken           Code = "EMAIL_TAKEN"
	CodeInvalidCredentials   Code = "INVALID_CREDENTIALS"
	CodeResetRequestNotFound Code = "RESET_REQUEST_NOT_FOUND"
	CodeResetRequestResolved Code = "RESET_REQUEST_RESOLVED"
	CodeResetRequestPending  Code = "RESET_REQUEST_PENDING"

	// Generic errors
	CodeNotAuthorized   Code = "NOT_AUTHORIZED"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeInvalidInput    Code = "INVALID_INPUT"
)

// HTTPStatus maps a code to the HTTP status it is surfaced with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeEventNotFound,
		CodeTicketNotFound,
		CodeMessageNotFound,
		CodeParentNotFound,
		CodeTeamNotFound,
		CodeAccountNotFound,
		CodeRegistrationNotFound,
		CodeResetRequestNotFound:
		return http.StatusNotFound

	case CodeNotAuthorized,
		CodeNotRegistered:
		return http.StatusForbidden

	case CodeUnauthenticated,
		CodeInvalidCredentials:
		return http.StatusUnauthorized

	case CodeRegistrationClosed,
		CodeDeadlinePassed,
		CodeAlreadyRegistered,
		CodeEventFull,
		CodeOutOfStock,
		CodeMissingRequiredField,
		CodeVariantNotFound,
		CodeInvalidStatusTransition,
		CodeEditLocked,
		CodeAlreadyMarked,
		CodeNestedReplyNotAllowed,
		CodeTeamFull,
		CodeAlreadyInTeam,
		CodeTeamsNotAllowed,
		CodeEmailTaken,
		CodeResetRequestResolved,
		CodeResetRequestPending,
		CodeInvalidInput:
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
