package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", Invalid("%s required", "patient_id"), http.StatusBadRequest, "patient_id required"},
		{"wrapped validation", fmt.Errorf("parse: %w", Invalid("Invalid date format")), http.StatusBadRequest, "Invalid date format"},
		{"not found", echo.NewHTTPError(http.StatusNotFound, "patient not found"), http.StatusNotFound, "patient not found"},
		{"method not allowed", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "Method Not Allowed"},
		{"internal http error hides message", echo.NewHTTPError(http.StatusInternalServerError, "pq: secret"), http.StatusInternalServerError, "Internal Server Error"},
		{"raw error", errors.New("dial tcp 10.0.0.1:5432: refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := Classify(tt.err)
			if status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, status)
			}
			if msg != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, msg)
			}
		})
	}
}

func TestIsValidation(t *testing.T) {
	if !IsValidation(fmt.Errorf("outer: %w", Invalid("bad"))) {
		t.Error("expected wrapped validation error to be detected")
	}
	if IsValidation(errors.New("bad")) {
		t.Error("expected plain error not to be a validation error")
	}
}

func TestHandler_WritesErrorBody(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = Handler(zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	e.HTTPErrorHandler(errors.New("connection reset by peer"), c)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Error != "internal server error" {
		t.Errorf("expected generic message, got %q", body.Error)
	}
}

func TestHandler_UnknownRoute(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = Handler(zerolog.Nop())
	e.GET("/patients", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodDelete, "/patients", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	var body Response
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error == "" {
		t.Error("expected error field in body")
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		raw    string
		want   int64
		wantOK bool
	}{
		{"7", 7, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}
	e := echo.New()
	for _, tt := range tests {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(tt.raw)

		got, err := PathID(c, "id")
		if tt.wantOK {
			if err != nil || got != tt.want {
				t.Errorf("PathID(%q) = %d, %v; want %d", tt.raw, got, err, tt.want)
			}
			continue
		}
		if err != echo.ErrNotFound {
			t.Errorf("PathID(%q) error = %v, want echo.ErrNotFound", tt.raw, err)
		}
	}
}

func TestBindError(t *testing.T) {
	tooLarge := &http.MaxBytesError{Limit: 16}
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"body cut off while decoding", echo.NewHTTPError(http.StatusBadRequest, tooLarge.Error()).SetInternal(tooLarge), http.StatusRequestEntityTooLarge, "request body exceeds maximum allowed size of 16 bytes"},
		{"413 from middleware", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too big"), http.StatusRequestEntityTooLarge, "too big"},
		{"validation during decode", echo.NewHTTPError(http.StatusBadRequest, "x").SetInternal(Invalid("age must be an integer")), http.StatusBadRequest, "age must be an integer"},
		{"syntax error", echo.NewHTTPError(http.StatusBadRequest, "Syntax error: offset=1"), http.StatusBadRequest, "invalid body"},
		{"plain error", errors.New("EOF"), http.StatusBadRequest, "invalid body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := Classify(BindError(tt.err, "invalid body"))
			if status != tt.wantStatus || msg != tt.wantMsg {
				t.Errorf("got %d %q, want %d %q", status, msg, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}
