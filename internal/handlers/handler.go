package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/felicity-dev/felicity/internal/accounts"
	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/auth"
	"github.com/felicity-dev/felicity/internal/config"
	"github.com/felicity-dev/felicity/internal/discussion"
	"github.com/felicity-dev/felicity/internal/events"
	"github.com/felicity-dev/felicity/internal/realtime"
	"github.com/felicity-dev/felicity/internal/registrations"
	"github.com/felicity-dev/felicity/internal/scheduler"
	"github.com/felicity-dev/felicity/internal/services"
	"github.com/felicity-dev/felicity/internal/teams"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/dig"
)

var errInvalidStatus = errors.New("Invalid status")

// Deps is everything the HTTP layer needs, resolved from the container.
type Deps struct {
	dig.In

	Config        config.Config
	Issuer        *auth.Issuer
	Accounts      *accounts.Service
	Events        *events.Service
	Registrations *registrations.Service
	Discussion    *discussion.Service
	Teams         *teams.Service
	Hub           *realtime.Hub
	Dispatcher    *scheduler.Dispatcher `optional:"true"`
	Reporter      services.Reporter
}

type Handler struct {
	cfg           config.Config
	issuer        *auth.Issuer
	accounts      *accounts.Service
	events        *events.Service
	registrations *registrations.Service
	discussion    *discussion.Service
	teams         *teams.Service
	hub           *realtime.Hub
	dispatcher    *scheduler.Dispatcher
	reporter      services.Reporter
}

func New(d Deps) *Handler {
	return &Handler{
		cfg:           d.Config,
		issuer:        d.Issuer,
		accounts:      d.Accounts,
		events:        d.Events,
		registrations: d.Registrations,
		discussion:    d.Discussion,
		teams:         d.Teams,
		hub:           d.Hub,
		dispatcher:    d.Dispatcher,
		reporter:      d.Reporter,
	}
}

// respondError writes err as a JSON error body. Expected failures carry their
// code; anything else is logged, reported and hidden behind a 500.
func (h *Handler) respondError(ctx *gin.Context, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		body := gin.H{"error": appErr.Message, "code": appErr.Code}
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
		ctx.JSON(appErr.Code.HTTPStatus(), body)
		return
	}

	log.Printf("Unhandled error on %s %s: %v", ctx.Request.Method, ctx.FullPath(), err)
	h.report(err, map[string]interface{}{
		"method": ctx.Request.Method,
		"route":  ctx.FullPath(),
	})
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func (h *Handler) report(err error, extras map[string]interface{}) {
	if h.reporter != nil {
		h.reporter.Error(err, extras)
	}
}

// bind decodes the JSON body into dst, answering 400 on failure. Validation
// failures list the offending fields.
func bind(ctx *gin.Context, dst interface{}) bool {
	err := ctx.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	log.Printf("Failed to bind JSON: %v", err)

	body := gin.H{"error": "Invalid request", "code": apperrors.CodeInvalidInput}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		body["fields"] = fields
	}

	ctx.JSON(http.StatusBadRequest, body)
	return false
}

func badRequest(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperrors.CodeInvalidInput})
}

func unauthenticated(ctx *gin.Context) {
	ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "code": apperrors.CodeUnauthenticated})
}

func forbidden(ctx *gin.Context) {
	ctx.JSON(http.StatusForbidden, gin.H{"error": "Not authorized", "code": apperrors.CodeNotAuthorized})
}

// RegisterValidators adds the domain binding tags used by request structs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}

	if err := v.RegisterValidation("eventtype", func(fl validator.FieldLevel) bool {
		return events.IsEventType(fl.Field().String())
	}); err != nil {
		return err
	}

	if err := v.RegisterValidation("fieldtype", func(fl validator.FieldLevel) bool {
		return events.IsFieldType(fl.Field().String())
	}); err != nil {
		return err
	}

	return v.RegisterValidation("eventstatus", func(fl validator.FieldLevel) bool {
		return events.IsKnownStatus(fl.Field().String())
	})
}
