package dailyrecord

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/elderease/elderease/internal/domain/patient"
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
	g.POST("/daily/record", h.SaveRecord)
	g.GET("/patients/:id/records", h.ListRecords)
}

type saveResponse struct {
	Message string `json:"message"`
	Data    View   `json:"data"`
}

func (h *Handler) SaveRecord(c echo.Context) error {
	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BindError(err, "invalid JSON body")
	}
	now := h.clock.Now()
	in, err := req.Parse(clock.Day(now))
	if err != nil {
		return err
	}
	rec, err := h.svc.Upsert(c.Request().Context(), in, now)
	if errors.Is(err, patient.ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, saveResponse{Message: "Health record saved successfully", Data: rec.View()})
}

func (h *Handler) ListRecords(c echo.Context) error {
	patientID, err := apierr.PathID(c, "id")
	if err != nil {
		return err
	}
	recs, err := h.svc.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	out := make([]View, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.View())
	}
	return c.JSON(http.StatusOK, out)
}
