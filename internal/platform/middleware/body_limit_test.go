package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestParseLimit(t *testing.T) {
	cases := []struct {
		input string
		want  int64
	}{
		{"1M", 1 << 20},
		{"10M", 10 << 20},
		{"512K", 512 << 10},
		{"1G", 1 << 30},
		{"2048", 2048},
		{"", 1 << 20},
		{"a lot", 1 << 20},
	}
	for _, tc := range cases {
		if got := parseLimit(tc.input); got != tc.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func postBody(t *testing.T, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestBodyLimitBookingPayloadPasses(t *testing.T) {
	c, _ := postBody(t, strings.NewReader(`{"patient_id":"p1","clinician_id":"c1","date":"2026-03-02"}`))

	h := BodyLimit("1M")(func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(b), "clinician_id") {
			t.Error("body should reach the handler intact")
		}
		return c.String(http.StatusCreated, "created")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBodyLimitRejectsByContentLength(t *testing.T) {
	c, _ := postBody(t, bytes.NewReader(bytes.Repeat([]byte("x"), 2048)))

	h := BodyLimit("1K")(func(c echo.Context) error {
		t.Error("oversized request must not reach the handler")
		return nil
	})

	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", httpErr.Code)
	}
}

func TestBodyLimitRejectsMidReadWithoutContentLength(t *testing.T) {
	c, _ := postBody(t, bytes.NewReader(bytes.Repeat([]byte("a"), 1024)))
	c.Request().ContentLength = -1

	h := BodyLimit("512")(func(c echo.Context) error {
		_, err := io.ReadAll(c.Request().Body)
		return err
	})

	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", httpErr.Code)
	}
}

func TestBodyLimitIgnoresBodylessRequests(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := BodyLimit("1M")(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("GET without a body should pass straight through")
	}
}
