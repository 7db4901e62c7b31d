package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequestID()(func(c echo.Context) error {
		if rid, _ := c.Get("request_id").(string); rid == "" {
			t.Error("request_id should be populated for handlers")
		}
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("response should echo the generated request id")
	}
}

func TestRequestIDPreservesCallerID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set(RequestIDHeader, "booking-portal-7f3a")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequestID()(func(c echo.Context) error {
		if rid, _ := c.Get("request_id").(string); rid != "booking-portal-7f3a" {
			t.Errorf("request_id = %q, want the caller's id", rid)
		}
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "booking-portal-7f3a" {
		t.Errorf("response header = %q, want booking-portal-7f3a", got)
	}
}

// logLine runs the handler behind Logger and decodes the emitted line.
func logLine(t *testing.T, handler echo.HandlerFunc, target string) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-123")

	_ = Logger(logger)(handler)(c)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not one JSON line: %q", buf.String())
	}
	return line
}

func TestLoggerRecordsRequestFields(t *testing.T) {
	line := logLine(t, func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, "/api/v1/clinicians/abc/slots")

	if line["level"] != "info" {
		t.Errorf("level = %v, want info", line["level"])
	}
	if line["method"] != "GET" || line["path"] != "/api/v1/clinicians/abc/slots" {
		t.Errorf("method/path = %v %v", line["method"], line["path"])
	}
	if line["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", line["request_id"])
	}
	if line["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v, want 200", line["status"])
	}
}

func TestLoggerLevelsHandlerError(t *testing.T) {
	line := logLine(t, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "slot already booked")
	}, "/api/v1/appointments")

	if line["level"] != "error" {
		t.Errorf("level = %v, want error for a failed request", line["level"])
	}
	if msg, _ := line["error"].(string); !strings.Contains(msg, "slot already booked") {
		t.Errorf("error field = %v, want the handler error", line["error"])
	}
}

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Recovery(logger)(func(c echo.Context) error {
		panic("nil clinician window")
	})
	err := h(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", httpErr.Code)
	}
	if !strings.Contains(buf.String(), "nil clinician window") {
		t.Error("panic value should be logged")
	}
	if strings.Contains(httpErr.Message.(string), "nil clinician window") {
		t.Error("panic detail must not leak into the response")
	}
}

func TestRecoveryLeavesNormalFlowAlone(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Recovery(zerolog.New(&buf))(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be logged without a panic, got %q", buf.String())
	}
}
