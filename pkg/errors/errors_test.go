package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
	}{
		{NotFound("appointment", nil), http.StatusNotFound},
		{BadRequest("bad input", nil), http.StatusBadRequest},
		{MalformedSchedule("bad schedule", nil), http.StatusBadRequest},
		{Unauthorized(nil), http.StatusUnauthorized},
		{SchedulingConflict("overlap"), http.StatusConflict},
		{OutsideWorkingHours("closed"), http.StatusUnprocessableEntity},
		{CancellationWindowExpired("too late"), http.StatusUnprocessableEntity},
		{InvalidTransition("no"), http.StatusUnprocessableEntity},
		{InvalidSubjectOrPractitioner("unknown"), http.StatusUnprocessableEntity},
		{Internal(nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.StatusCode(), "code %s", tc.err.Code)
	}
}

func TestCodeOfUnwrapsChains(t *testing.T) {
	inner := SchedulingConflict("overlap")
	wrapped := fmt.Errorf("creating appointment: %w", inner)

	assert.Equal(t, ErrSchedulingConflict, CodeOf(wrapped))
	assert.True(t, Is(wrapped, ErrSchedulingConflict))
	assert.False(t, Is(wrapped, ErrNotFound))
	assert.Equal(t, ErrInternal, CodeOf(fmt.Errorf("plain")))
}

func TestWithDetail(t *testing.T) {
	err := CancellationWindowExpired("too late").
		WithDetail("remaining_lead_time", "23h59m0s")

	assert.Equal(t, "23h59m0s", err.Details["remaining_lead_time"])
	assert.Equal(t, "too late", err.Error())
}
