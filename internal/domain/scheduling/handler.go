package scheduling

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebooks/carebooks/internal/platform/apperr"
	"github.com/carebooks/carebooks/pkg/pagination"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/appointments", h.create)
	g.GET("/appointments", h.list)
	g.GET("/appointments/:id", h.get)
	g.PUT("/appointments/:id/fees", h.adjustFees)
	g.POST("/appointments/:id/progress-notes", h.createNote)
}

func (h *Handler) create(c echo.Context) error {
	var in CreateAppointmentInput
	if err := c.Bind(&in); err != nil {
		return apperr.HTTP(apperr.Validation("body", "invalid request body"))
	}
	if err := h.validate.Struct(in); err != nil {
		return apperr.HTTP(apperr.Validation("body", err.Error()))
	}
	a, err := h.svc.CreateAppointment(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.Validation("id", "invalid appointment id"))
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) list(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return apperr.HTTP(err)
	}
	p := pagination.FromContext(c)
	f.Limit = p.PageSize
	f.Offset = p.Offset()

	appts, total, err := h.svc.ListAppointments(c.Request().Context(), f)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, p, total))
}

func filterFromQuery(c echo.Context) (Filter, error) {
	var f Filter
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, apperr.Validation("from", "expected YYYY-MM-DD")
		}
		f.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, apperr.Validation("to", "expected YYYY-MM-DD")
		}
		// Inclusive end of day, millisecond precision.
		f.To = t.Add(24*time.Hour - time.Millisecond)
	}
	if v := c.QueryParam("client_group_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, apperr.Validation("client_group_id", "invalid uuid")
		}
		f.ClientGroupID = &id
	}
	if v := c.QueryParam("clinician_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, apperr.Validation("clinician_id", "invalid uuid")
		}
		f.ClinicianID = &id
	}
	if v := c.QueryParam("status"); v != "" {
		st := AppointmentStatus(v)
		if !st.Valid() {
			return f, apperr.Validation("status", "unknown appointment status")
		}
		f.Status = &st
	}
	if v := c.QueryParam("note_status"); v != "" {
		ns := NoteStatus(v)
		if ns != NoteCompleted && ns != NoteMissing {
			return f, apperr.Validation("note_status", "expected COMPLETED or NO_NOTE")
		}
		f.NoteStatus = &ns
	}
	return f, nil
}

func (h *Handler) adjustFees(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.Validation("id", "invalid appointment id"))
	}
	var in FeeAdjustmentInput
	if err := c.Bind(&in); err != nil {
		return apperr.HTTP(apperr.Validation("body", "invalid request body"))
	}
	a, err := h.svc.ApplyFeeAdjustment(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) createNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.Validation("id", "invalid appointment id"))
	}
	var in CreateNoteInput
	if err := c.Bind(&in); err != nil {
		return apperr.HTTP(apperr.Validation("body", "invalid request body"))
	}
	if err := h.validate.Struct(in); err != nil {
		return apperr.HTTP(apperr.Validation("body", err.Error()))
	}
	n, err := h.svc.CreateProgressNote(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, n)
}
