package patient

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/elderease/elderease/internal/platform/apierr"
	"github.com/elderease/elderease/internal/platform/clock"
)

type Handler struct {
	svc   *Service
	clock clock.Clock
}

func NewHandler(svc *Service, clk clock.Clock) *Handler {
	return &Handler{svc: svc, clock: clk}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/patients", h.ListPatients)
	g.POST("/patients", h.CreatePatient)
	g.GET("/patients/:id", h.GetPatient)
}

type createResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BindError(err, "invalid patient payload")
	}
	p, err := h.svc.Create(c.Request().Context(), req, clock.Today(h.clock))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createResponse{Message: "Patient added successfully", ID: p.ID})
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := apierr.PathID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p.Detail())
}

func (h *Handler) ListPatients(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]Summary, 0, len(items))
	for _, p := range items {
		out = append(out, p.Summary())
	}
	return c.JSON(http.StatusOK, out)
}
