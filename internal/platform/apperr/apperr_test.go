package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestHTTPMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{Validation("startDate", "is required"), http.StatusBadRequest},
		{NotFound("appointment"), http.StatusNotFound},
		{Conflict("invoice is in a terminal state"), http.StatusConflict},
		{Internal(errors.New("pq: connection refused")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("invoice")), http.StatusNotFound},
	}
	for _, tc := range cases {
		he := HTTP(tc.err)
		if he.Code != tc.status {
			t.Errorf("HTTP(%v).Code = %d, want %d", tc.err, he.Code, tc.status)
		}
	}
}

func TestInternalDoesNotLeakCause(t *testing.T) {
	he := HTTP(Internal(errors.New("pq: duplicate key value violates unique constraint")))
	msg, _ := he.Message.(string)
	if strings.Contains(msg, "duplicate key") {
		t.Errorf("internal error leaked driver detail: %q", msg)
	}
	if he.Internal == nil {
		t.Error("expected cause to be attached for logging")
	}
}

func TestValidationMessageIncludesField(t *testing.T) {
	err := Validation("endDate", "must not be before startDate")
	if got := err.Error(); got != "endDate: must not be before startDate" {
		t.Errorf("Error() = %q", got)
	}
}
