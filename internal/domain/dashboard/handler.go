package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

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
	g.GET("/dashboard", h.GetDashboard)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	summary, err := h.svc.Summary(c.Request().Context(), clock.Today(h.clock))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
