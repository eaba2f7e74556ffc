package billing

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebooks/carebooks/internal/platform/apperr"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

func (h *Handler) Register(g *echo.Group) {
	g.POST("/invoices", h.create)
	g.GET("/invoices/:id", h.get)
	g.POST("/invoices/:id/payments", h.recordPayment)
	g.POST("/invoices/:id/void", h.void)
}

func (h *Handler) create(c echo.Context) error {
	var in CreateInvoiceInput
	if err := c.Bind(&in); err != nil {
		return apperr.HTTP(apperr.Validation("body", "invalid request body"))
	}
	if err := h.validate.Struct(in); err != nil {
		return apperr.HTTP(apperr.Validation("body", err.Error()))
	}
	inv, err := h.svc.CreateInvoice(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.Validation("id", "invalid invoice id"))
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	settled := Settle(inv)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"invoice":    inv,
		"settlement": settled,
	})
}

func (h *Handler) recordPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.Validation("id", "invalid invoice id"))
	}
	var in RecordPaymentInput
	if err := c.Bind(&in); err != nil {
		return apperr.HTTP(apperr.Validation("body", "invalid request body"))
	}
	p, err := h.svc.RecordPayment(c.Request().Context(), id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) void(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.Validation("id", "invalid invoice id"))
	}
	if err := h.svc.VoidInvoice(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
