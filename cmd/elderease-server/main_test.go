package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/elderease/elderease/internal/config"
	"github.com/elderease/elderease/internal/platform/clock"
)

// testServer builds the full server over a pool that never connects;
// only routes that stay off the database are exercised.
func testServer(t *testing.T) *echo.Echo {
	t.Helper()
	pool, err := pgxpool.New(context.Background(), "postgres://elderease@127.0.0.1:1/elderease")
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)

	cfg := &config.Config{
		CORSOrigins:    []string{"http://localhost:3000"},
		BodyLimit:      "1M",
		RequestTimeout: 5 * time.Second,
	}
	clk := clock.Fixed(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	return newServer(cfg, zerolog.Nop(), pool, clk)
}

func TestNewServer_RegistersRoutesAtRootAndAPI(t *testing.T) {
	e := testServer(t)

	registered := make(map[string]bool)
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	routes := []string{
		"GET /patients",
		"POST /patients",
		"GET /patients/:id",
		"GET /patients/:id/records",
		"GET /patients/:id/medicines",
		"POST /patients/:id/medicines",
		"PATCH /medications/mark_given/:id",
		"POST /medications/reset",
		"POST /daily/record",
		"GET /dashboard",
		"GET /reports",
		"GET /calendar/events",
		"POST /calendar/events/:id/complete",
		"PATCH /calendar/events/:id/complete",
	}
	for _, r := range routes {
		if !registered[r] {
			t.Errorf("missing route %s", r)
		}
		method, path, _ := strings.Cut(r, " ")
		if !registered[method+" /api"+path] {
			t.Errorf("missing route %s /api%s", method, path)
		}
	}
	for _, r := range []string{"GET /ws", "GET /health/db"} {
		if !registered[r] {
			t.Errorf("missing route %s", r)
		}
	}
}

func TestNewServer_MiddlewareChain(t *testing.T) {
	e := testServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calendar/events", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected [], got %s", rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected X-Request-ID header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestNewServer_ErrorResponses(t *testing.T) {
	e := testServer(t)

	tests := []struct {
		method, path string
		want         int
		body         string
	}{
		{http.MethodGet, "/nowhere", http.StatusNotFound, `{"error":"Not Found"}`},
		{http.MethodPut, "/patients", http.StatusMethodNotAllowed, `{"error":"Method Not Allowed"}`},
		{http.MethodGet, "/patients/abc", http.StatusNotFound, `{"error":"Not Found"}`},
		{http.MethodGet, "/reports", http.StatusBadRequest, `{"error":"from_date and to_date are required"}`},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.path, tt.want, rec.Code)
		}
		if got := strings.TrimSpace(rec.Body.String()); got != tt.body {
			t.Errorf("%s %s: body = %s, want %s", tt.method, tt.path, got, tt.body)
		}
	}
}

func TestResetDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	clk := clock.Fixed(time.Date(2024, 3, 9, 0, 30, 0, 0, loc))

	day, err := resetDay("", clk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !day.Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, loc)) {
		t.Errorf("expected midnight 9 March IST, got %v", day)
	}

	day, err = resetDay("2024-02-29", clk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.Format(clock.DateLayout) != "2024-02-29" || day.Location() != loc {
		t.Errorf("expected 2024-02-29 in IST, got %v", day)
	}

	if _, err := resetDay("29/02/2024", clk); err == nil {
		t.Error("expected an error for a non-ISO date")
	}
}

func TestRootCmd_Commands(t *testing.T) {
	root := rootCmd()

	for _, args := range [][]string{{"serve"}, {"migrate", "up"}, {"migrate", "status"}, {"medications", "reset"}} {
		cmd, _, err := root.Find(args)
		if err != nil || cmd.Name() != args[len(args)-1] {
			t.Errorf("command %v not found: %v", args, err)
		}
	}

	reset, _, _ := root.Find([]string{"medications", "reset"})
	if reset.Flags().Lookup("date") == nil {
		t.Error("medications reset should accept --date")
	}

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out.String(), "medications") {
		t.Errorf("help output should list medications, got %s", out.String())
	}
}

func TestPoolConfig_FromConfig(t *testing.T) {
	cfg := &config.Config{
		DatabaseURL:    "postgres://elderease@db/elderease",
		DBMaxConns:     10,
		DBMinConns:     2,
		DBConnLifetime: time.Hour,
		DBConnIdleTime: 30 * time.Minute,
		DBHealthCheck:  time.Minute,
	}
	pc := poolConfig(cfg)
	if pc.URL != cfg.DatabaseURL || pc.MaxConns != 10 || pc.MinConns != 2 {
		t.Errorf("unexpected pool config %+v", pc)
	}
	if pc.MaxConnLifetime != time.Hour || pc.MaxConnIdleTime != 30*time.Minute || pc.HealthCheckPeriod != time.Minute {
		t.Errorf("durations not carried over: %+v", pc)
	}
}
