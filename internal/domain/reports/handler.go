package reports

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebooks/carebooks/internal/domain/scheduling"
	"github.com/carebooks/carebooks/internal/platform/apperr"
	"github.com/carebooks/carebooks/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(g *echo.Group) {
	g.GET("/reports/appointment-status", h.appointmentStatus)
	g.GET("/reports/outstanding-balances", h.outstandingBalances)
}

// parseDate accepts a calendar date or a full ISO-8601 timestamp.
func parseDate(v string) (time.Time, bool) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func rangeFromQuery(c echo.Context) (DateRange, error) {
	var r DateRange
	start := c.QueryParam("startDate")
	if start == "" {
		return r, apperr.Validation("startDate", "startDate is required")
	}
	t, ok := parseDate(start)
	if !ok {
		return r, apperr.Validation("startDate", "expected an ISO-8601 date")
	}
	r.Start = t

	end := c.QueryParam("endDate")
	if end == "" {
		return r, apperr.Validation("endDate", "endDate is required")
	}
	t, ok = parseDate(end)
	if !ok {
		return r, apperr.Validation("endDate", "expected an ISO-8601 date")
	}
	r.End = t
	return r, nil
}

func (h *Handler) appointmentStatus(c echo.Context) error {
	r, err := rangeFromQuery(c)
	if err != nil {
		return apperr.HTTP(err)
	}
	q := AppointmentStatusQuery{Range: r, Page: pagination.FromContext(c)}

	if v := c.QueryParam("client_group_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.HTTP(apperr.Validation("client_group_id", "invalid uuid"))
		}
		q.ClientGroupID = &id
	}
	if v := c.QueryParam("clinician_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.HTTP(apperr.Validation("clinician_id", "invalid uuid"))
		}
		q.ClinicianID = &id
	}
	if v := c.QueryParam("status"); v != "" {
		st := scheduling.AppointmentStatus(v)
		if !st.Valid() {
			return apperr.HTTP(apperr.Validation("status", "unknown appointment status"))
		}
		q.Status = &st
	}
	switch v := c.QueryParam("note_status"); v {
	case "":
	case "with_note":
		ns := scheduling.NoteCompleted
		q.NoteStatus = &ns
	case "no_note":
		ns := scheduling.NoteMissing
		q.NoteStatus = &ns
	default:
		return apperr.HTTP(apperr.Validation("note_status", "expected with_note or no_note"))
	}

	report, err := h.svc.AppointmentStatus(c.Request().Context(), q)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) outstandingBalances(c echo.Context) error {
	r, err := rangeFromQuery(c)
	if err != nil {
		return apperr.HTTP(err)
	}
	report, err := h.svc.OutstandingBalances(c.Request().Context(), OutstandingBalanceQuery{
		Range: r,
		Page:  pagination.FromContext(c),
	})
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, report)
}
