package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// testLogger writes JSON lines to buf, or discards them when buf is nil.
func testLogger(buf *bytes.Buffer) zerolog.Logger {
	if buf == nil {
		return zerolog.New(io.Discard)
	}
	return zerolog.New(buf)
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body["detail"]
}

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return line
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"generated", ""},
		{"propagated", "req-abebe-42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/doctors", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)

			var seen string
			err := RequestID()(func(c echo.Context) error {
				seen = GetRequestID(c)
				return nil
			})(c)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if seen == "" {
				t.Fatal("expected a request id in the context")
			}
			if tt.incoming != "" && seen != tt.incoming {
				t.Errorf("request id = %q, want %q", seen, tt.incoming)
			}
			if rec.Header().Get(RequestIDHeader) != seen {
				t.Errorf("response header = %q, want %q", rec.Header().Get(RequestIDHeader), seen)
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if got := GetRequestID(c); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name       string
		handler    echo.HandlerFunc
		wantLevel  string
		wantStatus float64
	}{
		{"ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, "info", 200},
		{"client error", func(echo.Context) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
		}, "warn", 401},
		{"store failure", func(echo.Context) error { return errors.New("dial tcp: refused") }, "error", 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			c := echo.New().NewContext(req, httptest.NewRecorder())
			c.Set("request_id", "rid-1")

			Logger(testLogger(&buf))(tt.handler)(c)

			line := logLine(t, &buf)
			if line["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", line["level"], tt.wantLevel)
			}
			if line["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %v", line["status"], tt.wantStatus)
			}
			if line["request_id"] != "rid-1" || line["path"] != "/auth/login" || line["method"] != "POST" {
				t.Errorf("unexpected fields %v", line)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/vitals", nil), httptest.NewRecorder())

	err := Recovery(testLogger(&buf))(func(echo.Context) error {
		panic("nil vitals map")
	})(c)

	if statusOf(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
	line := logLine(t, &buf)
	if line["panic"] != "nil vitals map" || line["message"] != "panic recovered" {
		t.Errorf("unexpected log line %v", line)
	}
	if _, ok := line["stack"]; !ok {
		t.Error("expected the stack to be logged")
	}
}

func TestRecovery_NoPanic(t *testing.T) {
	var buf bytes.Buffer
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/vitals", nil), httptest.NewRecorder())

	if err := Recovery(testLogger(&buf))(func(echo.Context) error { return nil })(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no log output, got %s", buf.String())
	}
}

func TestRecovery_AbortHandler(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	defer func() {
		if r := recover(); r != http.ErrAbortHandler {
			t.Errorf("expected ErrAbortHandler to propagate, got %v", r)
		}
	}()
	Recovery(testLogger(nil))(func(echo.Context) error { panic(http.ErrAbortHandler) })(c)
}

func TestErrorHandler(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(testLogger(nil))
	e.POST("/auth/login", func(echo.Context) error {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	})
	e.GET("/appointments", func(echo.Context) error {
		return errors.New("connection refused on 10.0.0.5")
	})
	e.GET("/beds", func(echo.Context) error {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "")
	})

	tests := []struct {
		method, path string
		wantCode     int
		wantDetail   string
	}{
		{http.MethodPost, "/auth/login", http.StatusUnauthorized, "Invalid credentials"},
		{http.MethodGet, "/appointments", http.StatusInternalServerError, "Internal Server Error"},
		{http.MethodGet, "/beds", http.StatusServiceUnavailable, "Service Unavailable"},
		{http.MethodGet, "/nowhere", http.StatusNotFound, "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := decodeDetail(t, rec); got != tt.wantDetail {
				t.Errorf("detail = %v, want %q", got, tt.wantDetail)
			}
		})
	}
}

func TestErrorHandler_HeadHasNoBody(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(testLogger(nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/nowhere", nil))
	if rec.Code != http.StatusNotFound || rec.Body.Len() != 0 {
		t.Errorf("got %d with body %q", rec.Code, rec.Body.String())
	}
}

func TestErrorHandler_ListDetail(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(testLogger(nil))
	e.POST("/patients", func(echo.Context) error {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, []ErrorDetail{
			{Loc: []any{"body", "first_name"}, Msg: "field required", Type: "missing"},
		})
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader("{}")))

	detail, ok := decodeDetail(t, rec).([]any)
	if !ok || len(detail) != 1 {
		t.Fatalf("unexpected detail %s", rec.Body.String())
	}
	item := detail[0].(map[string]any)
	if item["type"] != "missing" || item["loc"].([]any)[1] != "first_name" {
		t.Errorf("unexpected item %v", item)
	}
}
