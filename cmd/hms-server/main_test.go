package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hulubedeje/hms/internal/config"
	"github.com/hulubedeje/hms/internal/platform/docstore"
	"github.com/hulubedeje/hms/internal/platform/events"
	"github.com/hulubedeje/hms/internal/platform/middleware"
)

type capturePublisher struct {
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, evt events.Event) error {
	p.events = append(p.events, evt)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		Env:            "test",
		DatabaseURL:    "memory://local",
		DatabaseName:   "hulubedeje",
		CORSOrigins:    []string{"*"},
		BodyLimit:      "1M",
		RequestTimeout: 5 * time.Second,
	}
}

func newTestServer(t *testing.T, cfg *config.Config, pub events.Publisher) *server {
	t.Helper()
	srv := newServer(cfg, zerolog.New(io.Discard), nil, pub)
	t.Cleanup(func() { srv.shutdown(context.Background()) })
	return srv
}

func call(srv *server, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

// stalledPublisher never reaches its broker and gives up only when its
// context ends.
type stalledPublisher struct{}

func (stalledPublisher) Publish(ctx context.Context, _ events.Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stalledPublisher) Close() error { return nil }

func TestServer_CreateWithStalledBroker(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = 200 * time.Millisecond
	cfg.PublishTimeout = 300 * time.Millisecond
	srv := newTestServer(t, cfg, stalledPublisher{})

	rec := call(srv, http.MethodPost, "/patients",
		`{"first_name":"Abebe","last_name":"Kebede","gender":"male","phone":"+251911000000"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created["id"] == "" || len(created) != 1 {
		t.Fatalf("expected a body holding only the id, got %q", rec.Body.String())
	}

	rec = call(srv, http.MethodGet, "/patients", "")
	var patients []map[string]any
	json.Unmarshal(rec.Body.Bytes(), &patients)
	if len(patients) != 1 || patients[0]["id"] != created["id"] {
		t.Errorf("expected exactly the created patient, got %v", patients)
	}
}

func TestServer_Root(t *testing.T) {
	srv := newTestServer(t, testConfig(), nil)

	rec := call(srv, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["name"] != "Hulubedeje" || body["status"] != "ok" {
		t.Errorf("unexpected body %v", body)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected X-Request-ID header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestServer_CreateListAndEvents(t *testing.T) {
	pub := &capturePublisher{}
	srv := newTestServer(t, testConfig(), pub)

	rec := call(srv, http.MethodPost, "/pharmacy/medicines", `{"name":"Paracetamol"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var created map[string]string
	json.Unmarshal(rec.Body.Bytes(), &created)

	rec = call(srv, http.MethodGet, "/pharmacy/medicines", "")
	var meds []map[string]any
	json.Unmarshal(rec.Body.Bytes(), &meds)
	srv.records.Drain()
	if len(meds) != 1 || meds[0]["quantity"] != float64(0) || meds[0]["price"] != float64(0) {
		t.Errorf("unexpected medicines %v", meds)
	}

	if len(pub.events) != 1 || pub.events[0].ID != created["id"] || pub.events[0].Collection != "medicine" {
		t.Errorf("unexpected events %+v", pub.events)
	}
	if pub.events[0].RequestID == "" {
		t.Error("expected event to carry the request id")
	}
}

func TestServer_AuthFlow(t *testing.T) {
	srv := newTestServer(t, testConfig(), nil)

	rec := call(srv, http.MethodPost, "/auth/signup", `{"email":"hana@example.et","password":"pw","full_name":"Hana Girma","role":"pharmacist"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("signup: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = call(srv, http.MethodPost, "/auth/login", `{"email":"hana@example.et","password":"pw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rec.Code)
	}
	rec = call(srv, http.MethodPost, "/auth/login", `{"email":"nobody@example.et","password":"pw"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestServer_WithoutStore(t *testing.T) {
	cfg := testConfig()
	cfg.DatabaseURL = ""
	cfg.DatabaseName = ""
	srv := newTestServer(t, cfg, nil)

	rec := call(srv, http.MethodGet, "/test", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/test must not fail, got %d", rec.Code)
	}
	var diag map[string]any
	json.Unmarshal(rec.Body.Bytes(), &diag)
	if diag["connection_status"] != "Not Connected" {
		t.Errorf("connection_status = %v", diag["connection_status"])
	}

	rec = call(srv, http.MethodPost, "/patients", `{"first_name":"Abebe","last_name":"Kebede","gender":"male"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 without store, got %d", rec.Code)
	}

	rec = call(srv, http.MethodGet, "/health/store", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 from store health, got %d", rec.Code)
	}
	rec = call(srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected liveness 200, got %d", rec.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, testConfig(), nil)
	call(srv, http.MethodPost, "/patients", `{"first_name":"Abebe","last_name":"Kebede","gender":"male"}`)
	call(srv, http.MethodGet, "/patients", "")
	srv.records.Drain()

	rec := call(srv, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`hms_http_requests_total{method="GET",route="/patients",status_code="200"} 1`,
		`hms_store_operations_total{collection="patient",op="insert",result="ok"} 1`,
		`hms_record_events_total{collection="patient",result="ok"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestServer_NotFoundDetail(t *testing.T) {
	srv := newTestServer(t, testConfig(), nil)

	rec := call(srv, http.MethodGet, "/wards", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["detail"] != "Not Found" {
		t.Errorf("detail = %v", body["detail"])
	}
}

func TestServer_DialFailureIsRetried(t *testing.T) {
	calls := 0
	dial := func(ctx context.Context, cfg docstore.Config) (docstore.Store, error) {
		calls++
		if calls == 1 {
			return nil, context.DeadlineExceeded
		}
		return docstore.NewMemoryStore(), nil
	}
	srv := newServer(testConfig(), zerolog.New(io.Discard), dial, nil)
	defer srv.shutdown(context.Background())

	body := `{"patient_id":"p-1","ward":"B","bed_number":"12"}`
	if rec := call(srv, http.MethodPost, "/nursing/bed-assignments", body); rec.Code != http.StatusInternalServerError {
		t.Fatalf("first call: expected 500, got %d", rec.Code)
	}
	if rec := call(srv, http.MethodPost, "/nursing/bed-assignments", body); rec.Code != http.StatusOK {
		t.Fatalf("second call: expected 200, got %d", rec.Code)
	}
}

func TestServer_OpenAPI(t *testing.T) {
	srv := newTestServer(t, testConfig(), nil)

	rec := call(srv, http.MethodGet, "/openapi.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Paths) != 11 {
		t.Errorf("expected 11 documented collections, got %d", len(doc.Paths))
	}
	if _, ok := doc.Paths["/ehr/records"]; !ok {
		t.Error("expected /ehr/records to be documented")
	}
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPingCmd(t *testing.T) {
	t.Setenv("DATABASE_URL", "memory://local")
	t.Setenv("DATABASE_NAME", "hulubedeje")

	out, err := runCommand(t, pingCmd())
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if !strings.Contains(out, `memory store "hulubedeje" is reachable`) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestPingCmd_NotConfigured(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_NAME", "")

	if _, err := runCommand(t, pingCmd()); err == nil {
		t.Fatal("expected ping to fail without a store")
	}
}

func TestCollectionsCmd(t *testing.T) {
	t.Setenv("DATABASE_URL", "memory://local")
	t.Setenv("DATABASE_NAME", "hulubedeje")

	out, err := runCommand(t, collectionsCmd(), "--max", "5")
	if err != nil {
		t.Fatalf("collections: %v", err)
	}
	if out != "" {
		t.Errorf("expected no collections in a fresh store, got %q", out)
	}
}

func TestLoadConfig_RejectsBadScheme(t *testing.T) {
	t.Setenv("DATABASE_URL", "mysql://localhost/hms")
	t.Setenv("DATABASE_NAME", "hulubedeje")

	if _, err := loadConfig(); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected invalid config error, got %v", err)
	}
}
