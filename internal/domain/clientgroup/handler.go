package clientgroup

import (
	"net/http"

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
	g.POST("/client-groups", h.createGroup)
	g.GET("/client-groups", h.listGroups)
	g.GET("/client-groups/:id", h.getGroup)
	g.POST("/client-groups/:id/members", h.addMembership)
	g.GET("/client-groups/:id/members", h.listMemberships)
	g.GET("/client-groups/:id/responsible-biller", h.responsibleBiller)
	g.POST("/clients", h.createClient)
}

func (h *Handler) createGroup(c echo.Context) error {
	var in CreateGroupInput
	if err := c.Bind(&in); err != nil {
		return apperr.HTTP(apperr.Validation("body", "invalid request body"))
	}
	if err := h.validate.Struct(in); err != nil {
		return apperr.HTTP(apperr.Validation("body", err.Error()))
	}
	g, err := h.svc.CreateGroup(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *Handler) listGroups(c echo.Context) error {
	p := pagination.FromContext(c)
	groups, total, err := h.svc.ListGroups(c.Request().Context(), p.PageSize, p.Offset())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(groups, p, total))
}

func (h *Handler) getGroup(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.Validation("id", "invalid client group id"))
	}
	g, err := h.svc.GetGroup(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) addMembership(c echo.Context) error {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.Validation("id", "invalid client group id"))
	}
	var in AddMembershipInput
	if err := c.Bind(&in); err != nil {
		return apperr.HTTP(apperr.Validation("body", "invalid request body"))
	}
	m, err := h.svc.AddMembership(c.Request().Context(), groupID, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) listMemberships(c echo.Context) error {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.Validation("id", "invalid client group id"))
	}
	members, err := h.svc.ListMemberships(c.Request().Context(), groupID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, members)
}

func (h *Handler) responsibleBiller(c echo.Context) error {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.Validation("id", "invalid client group id"))
	}
	m, err := h.svc.GroupResponsibleBiller(c.Request().Context(), groupID)
	if err != nil {
		return apperr.HTTP(err)
	}
	if m == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"responsible_biller": nil})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"responsible_biller": m})
}

func (h *Handler) createClient(c echo.Context) error {
	var in CreateClientInput
	if err := c.Bind(&in); err != nil {
		return apperr.HTTP(apperr.Validation("body", "invalid request body"))
	}
	if err := h.validate.Struct(in); err != nil {
		return apperr.HTTP(apperr.Validation("body", err.Error()))
	}
	cl, err := h.svc.CreateClient(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, cl)
}
