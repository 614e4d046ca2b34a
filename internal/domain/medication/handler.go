package medication

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
	g.GET("/patients/:id/medicines", h.ListMedicines)
	g.POST("/patients/:id/medicines", h.CreateMedicine)
	g.PATCH("/medications/mark_given/:id", h.MarkGiven)
	g.POST("/medications/reset", h.ResetDaily)
}

type messageResponse struct {
	Message string `json:"message"`
}

type createResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

type resetResponse struct {
	Message string `json:"message"`
	Date    string `json:"date"`
	Reset   int64  `json:"reset"`
}

func (h *Handler) ListMedicines(c echo.Context) error {
	patientID, err := apierr.PathID(c, "id")
	if err != nil {
		return err
	}
	meds, err := h.svc.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	out := make([]View, 0, len(meds))
	for _, m := range meds {
		out = append(out, m.View())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) CreateMedicine(c echo.Context) error {
	patientID, err := apierr.PathID(c, "id")
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BindError(err, "invalid medication payload")
	}
	m, err := h.svc.Create(c.Request().Context(), patientID, req, h.clock.Now())
	if errors.Is(err, patient.ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createResponse{Message: "Medication added successfully", ID: m.ID})
}

func (h *Handler) MarkGiven(c echo.Context) error {
	id, err := apierr.PathID(c, "id")
	if err != nil {
		return err
	}
	result, err := h.svc.MarkGiven(c.Request().Context(), id, h.clock.Now())
	if errors.Is(err, ErrMedicationNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	if result == AlreadyGiven {
		return c.JSON(http.StatusOK, messageResponse{Message: "Already marked as given"})
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Marked as given successfully"})
}

// ResetDaily serves POST /medications/reset?date=YYYY-MM-DD. The date
// defaults to today.
func (h *Handler) ResetDaily(c echo.Context) error {
	now := h.clock.Now()
	day := clock.Day(now)
	if q := c.QueryParam("date"); q != "" {
		d, err := clock.ParseDate(q, now.Location())
		if err != nil {
			return apierr.Invalid("Invalid date format. Use YYYY-MM-DD")
		}
		day = d
	}
	n, err := h.svc.ResetDaily(c.Request().Context(), day)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resetResponse{
		Message: "Medications reset",
		Date:    day.Format(clock.DateLayout),
		Reset:   n,
	})
}
