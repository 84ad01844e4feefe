package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/felicity-dev/felicity/internal/apperrors"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/registrations"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	errs []error
}

func (r *recordingReporter) Error(err error, _ map[string]interface{}) { r.errs = append(r.errs, err) }
func (r *recordingReporter) Close()                                    {}

func TestRespondErrorMapsCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reporter := &recordingReporter{}
	h := &Handler{reporter: reporter}

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.respondError(ctx, apperrors.MissingRequiredField("tshirt"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "MISSING_REQUIRED_FIELD", body["code"])
	assert.Equal(t, "tshirt", body["field"])
	assert.Empty(t, reporter.errs)
}

func TestRespondErrorHidesUnexpectedFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reporter := &recordingReporter{}
	h := &Handler{reporter: reporter}

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.respondError(ctx, errors.New("connection reset"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
	assert.Len(t, reporter.errs, 1)
}

func TestWriteRegistrationsCSV(t *testing.T) {
	registered := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	attended := registered.Add(48 * time.Hour)

	var buf bytes.Buffer
	err := writeRegistrationsCSV(&buf, []registrations.EventRegistration{
		{
			Registration: models.Registration{
				RegisteredAt:  registered,
				PaymentStatus: models.PaymentPaid,
				Attended:      true,
				AttendedAt:    &attended,
			},
			ParticipantName:  "Asha Rao",
			ParticipantEmail: "asha@example.com",
		},
		{
			Registration: models.Registration{
				RegisteredAt:  registered,
				PaymentStatus: models.PaymentPending,
			},
			ParticipantName:  "Ravi, Jr",
			ParticipantEmail: "ravi@example.com",
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name,Email,Registration Date,Payment Status,Attendance,Attendance Time", lines[0])
	assert.Equal(t, "Asha Rao,asha@example.com,2026-01-10T09:30:00Z,paid,Yes,2026-01-12T09:30:00Z", lines[1])
	assert.Equal(t, `"Ravi, Jr",ravi@example.com,2026-01-10T09:30:00Z,pending,No,`, lines[2])
}

func TestBindReportsInvalidFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"not-an-email"}`))
	ctx.Request.Header.Set("Content-Type", "application/json")

	var body LoginUserRequest
	assert.False(t, bind(ctx, &body))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var out struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "INVALID_INPUT", out.Code)
	assert.Equal(t, "email", out.Fields["Email"])
	assert.Equal(t, "required", out.Fields["Password"])
}
