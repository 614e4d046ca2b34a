// Package calendar exposes the care calendar endpoints. Scheduling is not
// modelled yet, so the default source has no events and completing one is
// acknowledged without effect.
package calendar

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Event is a scheduled care activity. IDs are opaque strings chosen by the
// source.
type Event struct {
	ID        string `json:"id"`
	PatientID int64  `json:"patient_id,omitempty"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	Completed bool   `json:"completed"`
}

// EventSource supplies calendar events.
type EventSource interface {
	List(ctx context.Context) ([]Event, error)
	Complete(ctx context.Context, id string) error
}

// NopSource has no events and accepts every completion.
type NopSource struct{}

func (NopSource) List(context.Context) ([]Event, error) { return nil, nil }

func (NopSource) Complete(context.Context, string) error { return nil }

type Handler struct {
	source EventSource
}

func NewHandler(source EventSource) *Handler {
	if source == nil {
		source = NopSource{}
	}
	return &Handler{source: source}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/calendar/events", h.ListEvents)
	g.POST("/calendar/events/:id/complete", h.CompleteEvent)
	g.PATCH("/calendar/events/:id/complete", h.CompleteEvent)
}

func (h *Handler) ListEvents(c echo.Context) error {
	events, err := h.source.List(c.Request().Context())
	if err != nil {
		return err
	}
	if events == nil {
		events = []Event{}
	}
	return c.JSON(http.StatusOK, events)
}

func (h *Handler) CompleteEvent(c echo.Context) error {
	if err := h.source.Complete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Event marked as completed"})
}
