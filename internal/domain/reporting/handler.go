package reporting

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

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
	g.GET("/reports", h.GetReport)
}

// parseQuery reads from_date, to_date and patient_id.
func (h *Handler) parseQuery(c echo.Context) (Query, error) {
	q := Query{RawFrom: c.QueryParam("from_date"), RawTo: c.QueryParam("to_date")}
	if q.RawFrom == "" || q.RawTo == "" {
		return q, apierr.Invalid("from_date and to_date are required")
	}

	loc := h.clock.Now().Location()
	var err error
	if q.From, err = clock.ParseDate(q.RawFrom, loc); err != nil {
		return q, apierr.Invalid("Invalid date format. Use YYYY-MM-DD")
	}
	if q.To, err = clock.ParseDate(q.RawTo, loc); err != nil {
		return q, apierr.Invalid("Invalid date format. Use YYYY-MM-DD")
	}

	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, apierr.Invalid("patient_id must be an integer")
		}
		q.PatientID = &id
	}
	return q, nil
}

func (h *Handler) GetReport(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatXLSX && format != FormatPDF {
		return apierr.Invalid("Invalid format. Use json, xlsx or pdf")
	}

	q, err := h.parseQuery(c)
	if err != nil {
		return err
	}
	report, err := h.svc.Build(c.Request().Context(), q)
	if err != nil {
		return err
	}

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case FormatXLSX:
		err = WriteXLSX(&buf, report)
		contentType = ContentTypeXLSX
	case FormatPDF:
		err = WritePDF(&buf, report)
		contentType = ContentTypePDF
	default:
		return c.JSON(http.StatusOK, report)
	}
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("report_%s_%s.%s", q.RawFrom, q.RawTo, format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}
