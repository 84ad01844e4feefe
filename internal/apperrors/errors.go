package apperrors

import (
	"errors"
	"fmt"
)

// Error is an expected, user-facing failure.
type Error struct {
	Code    Code
	Message string
	// Field names the offending input, when there is one.
	Field string
}

func (e *Error) Error() string {
	return e.Message
}

// New returns an *Error for code with the given message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithField returns a copy of e pointing at field.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// CodeOf returns the code carried by err, or "" when err is not an *Error.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// MissingRequiredField builds the error for an empty required custom form field.
func MissingRequiredField(label string) *Error {
	return New(CodeMissingRequiredField, fmt.Sprintf("%s is required", label)).WithField(label)
}

// InvalidStatusTransition builds the error for an illegal event status change.
func InvalidStatusTransition(from, to string) *Error {
	return Newf(CodeInvalidStatusTransition, "cannot change event status from %s to %s", from, to)
}

// Invalid builds an InvalidInput error for field.
func Invalid(field, message string) *Error {
	return New(CodeInvalidInput, message).WithField(field)
}

var (
	ErrRegistrationClosed    = New(CodeRegistrationClosed, "Registration is closed for this event")
	ErrDeadlinePassed        = New(CodeDeadlinePassed, "Registration deadline has passed")
	ErrAlreadyRegistered     = New(CodeAlreadyRegistered, "Already registered for this event")
	ErrEventFull             = New(CodeEventFull, "Event is full")
	ErrOutOfStock            = New(CodeOutOfStock, "Selected item is out of stock")
	ErrVariantNotFound       = New(CodeVariantNotFound, "Selected item does not exist")
	ErrRegistrationNotFound  = New(CodeRegistrationNotFound, "Registration not found")
	ErrEventNotFound         = New(CodeEventNotFound, "Event not found")
	ErrEditLocked            = New(CodeEditLocked, "Event can no longer be edited")
	ErrTicketNotFound        = New(CodeTicketNotFound, "Invalid ticket")
	ErrAlreadyMarked         = New(CodeAlreadyMarked, "Attendance already marked")
	ErrMessageNotFound       = New(CodeMessageNotFound, "Message not found")
	ErrParentNotFound        = New(CodeParentNotFound, "Parent message not found")
	ErrNestedReplyNotAllowed = New(CodeNestedReplyNotAllowed, "Replies to replies are not allowed")
	ErrNotRegistered         = New(CodeNotRegistered, "You must be registered for this event")
	ErrTeamNotFound          = New(CodeTeamNotFound, "Team not found")
	ErrTeamFull              = New(CodeTeamFull, "Team is already full")
	ErrAlreadyInTeam         = New(CodeAlreadyInTeam, "Already part of a team for this event")
	ErrTeamsNotAllowed       = New(CodeTeamsNotAllowed, "Teams are only available for normal events")
	ErrAccountNotFound       = New(CodeAccountNotFound, "Account not found")
	ErrEmailTaken            = New(CodeEmailTaken, "Email already exists")
	ErrInvalidCredentials    = New(CodeInvalidCredentials, "Invalid email or password")
	ErrResetRequestNotFound  = New(CodeResetRequestNotFound, "Password reset request not found")
	ErrResetRequestResolved  = New(CodeResetRequestResolved, "Password reset request already resolved")
	ErrResetRequestPending   = New(CodeResetRequestPending, "A password reset request is already pending")
	ErrNotAuthorized         = New(CodeNotAuthorized, "Not authorized")
	ErrUnauthenticated       = New(CodeUnauthenticated, "User not authenticated")
)
