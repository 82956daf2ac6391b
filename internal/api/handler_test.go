package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopchat/shopchat/internal/auth"
	"github.com/shopchat/shopchat/internal/config"
	"github.com/shopchat/shopchat/internal/pipeline"
	"github.com/shopchat/shopchat/internal/schema"
	"github.com/shopchat/shopchat/internal/session"
	"github.com/shopchat/shopchat/internal/sqlcheck"
)

type fakePipeline struct {
	lastQuestion string
	lastManager  *session.Manager
	response     pipeline.Response
}

func (f *fakePipeline) ProcessQuery(_ context.Context, manager *session.Manager, userQuery string) pipeline.Response {
	f.lastQuestion = userQuery
	f.lastManager = manager
	response := f.response
	response.UserQuery = userQuery
	return response
}

type fakeArchiver struct {
	lastSessionID string
	lastEntries   int
	key           string
	err           error
}

func (f *fakeArchiver) ArchiveSession(_ context.Context, sessionID string, entries []session.Entry) (string, int64, error) {
	f.lastSessionID = sessionID
	f.lastEntries = len(entries)
	if f.err != nil {
		return "", 0, f.err
	}
	return f.key, int64(len(entries)), nil
}

func testConfig(t *testing.T, overrides map[string]string) config.Config {
	t.Helper()
	cfg, err := config.Load("shopchat-api", func(key string) (string, bool) {
		value, ok := overrides[key]
		return value, ok
	})
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return cfg
}

func testDeps(pl ChatPipeline) Dependencies {
	catalog := schema.NewRetailCatalog()
	return Dependencies{
		Pipeline:  pl,
		Sessions:  session.NewStore(10, 4000),
		Validator: sqlcheck.New(catalog.TableNames()),
		Schema:    catalog,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (body=%s)", err, rec.Body.String())
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(t, nil), testDeps(&fakePipeline{}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" || body["service"] != "shopchat-api" {
		t.Fatalf("body = %v", body)
	}
}

func TestReadyReportsFailure(t *testing.T) {
	deps := testDeps(&fakePipeline{})
	deps.Readiness = func(context.Context) error { return errors.New("db unreachable") }
	handler := NewHandler(testConfig(t, nil), deps)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error_code"] != "NOT_READY" {
		t.Fatalf("body = %v", body)
	}
}

func TestChatRunsPipelineForSession(t *testing.T) {
	fake := &fakePipeline{response: pipeline.Response{Success: true, SQLQuery: "SELECT 1;"}}
	deps := testDeps(fake)
	handler := NewHandler(testConfig(t, nil), deps)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"question":"show stores"}`))
	req.Header.Set("X-Session-ID", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if fake.lastQuestion != "show stores" {
		t.Fatalf("question = %q", fake.lastQuestion)
	}
	if fake.lastManager != deps.Sessions.Get("alice") {
		t.Fatal("chat must use the session named by X-Session-ID")
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["sql_query"] != "SELECT 1;" {
		t.Fatalf("body = %v", body)
	}
}

func TestChatRejectsBadRequests(t *testing.T) {
	handler := NewHandler(testConfig(t, nil), testDeps(&fakePipeline{}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"question":""}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty question status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{not json`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"question":"x","extra":1}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d", rec.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(t, nil), testDeps(&fakePipeline{}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sql/validate", strings.NewReader(`{"sql":"SELECT * FROM stores;"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["valid"] != true {
		t.Fatalf("body = %v", body)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sql/validate", strings.NewReader(`{"sql":"DROP TABLE stores;"}`)))
	body = decodeBody(t, rec)
	if body["valid"] != false || body["check"] != "forbidden_keyword" {
		t.Fatalf("body = %v", body)
	}
	if !strings.Contains(body["reason"].(string), "DROP") {
		t.Fatalf("reason = %v", body["reason"])
	}
}

func TestSchemaEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(t, nil), testDeps(&fakePipeline{}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	tables := body["tables"].([]any)
	if len(tables) != 5 {
		t.Fatalf("tables = %d", len(tables))
	}
	first := tables[0].(map[string]any)
	if first["name"] != "stores" {
		t.Fatalf("first table = %v", first["name"])
	}
}

func TestContextEndpoints(t *testing.T) {
	deps := testDeps(&fakePipeline{})
	handler := NewHandler(testConfig(t, nil), deps)

	manager := deps.Sessions.Get("alice")
	manager.Record("show stores", "SELECT * FROM stores;", true, "Returned 2 rows", 6)

	req := httptest.NewRequest(http.MethodGet, "/v1/context", nil)
	req.Header.Set("X-Session-ID", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	body := decodeBody(t, rec)
	if body["session_id"] != "alice" {
		t.Fatalf("body = %v", body)
	}
	summary := body["summary"].(map[string]any)
	if summary["total_turns"] != float64(1) {
		t.Fatalf("summary = %v", summary)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/context/history", nil)
	req.Header.Set("X-Session-ID", "alice")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var history []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 || history[0]["user_query"] != "show stores" {
		t.Fatalf("history = %v", history)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/context", nil)
	req.Header.Set("X-Session-ID", "alice")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if manager.Summary().TotalTurns != 0 {
		t.Fatal("clear should empty the session ledger")
	}
}

func TestContextArchive(t *testing.T) {
	archiver := &fakeArchiver{key: "transcripts/session=alice/date=2026-02-19/transcript-1.parquet"}
	deps := testDeps(&fakePipeline{})
	deps.Archiver = archiver
	handler := NewHandler(testConfig(t, nil), deps)

	// Empty session cannot be archived.
	req := httptest.NewRequest(http.MethodPost, "/v1/context/archive", nil)
	req.Header.Set("X-Session-ID", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty archive status = %d", rec.Code)
	}

	deps.Sessions.Get("alice").Record("q", "SELECT 1;", true, "Returned 1 rows", 2)
	req = httptest.NewRequest(http.MethodPost, "/v1/context/archive", nil)
	req.Header.Set("X-Session-ID", "alice")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("archive status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["object_key"] != archiver.key || body["record_count"] != float64(1) {
		t.Fatalf("body = %v", body)
	}
	if archiver.lastSessionID != "alice" || archiver.lastEntries != 1 {
		t.Fatalf("archiver = %+v", archiver)
	}
}

func TestArchiveNotConfigured(t *testing.T) {
	handler := NewHandler(testConfig(t, nil), testDeps(&fakePipeline{}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/context/archive", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuthProtectsChatEndpoints(t *testing.T) {
	cfg := testConfig(t, map[string]string{"SHOPCHAT_AUTH_REQUIRED": "true"})
	validator, err := auth.NewStaticAPIKeyValidator("key-1:alice:chat_user,key-2:bob:viewer")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}
	deps := testDeps(&fakePipeline{response: pipeline.Response{Success: true}})
	deps.AuthMiddleware = auth.Middleware(nil, validator)
	handler := NewHandler(cfg, deps)

	// No key.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"question":"q"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key status = %d", rec.Code)
	}

	// Key without the chat role.
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"question":"q"}`))
	req.Header.Set("X-API-Key", "key-2")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wrong role status = %d", rec.Code)
	}

	// Proper key.
	req = httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"question":"q"}`))
	req.Header.Set("X-API-Key", "key-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authorized status = %d body = %s", rec.Code, rec.Body.String())
	}

	// Health stays open.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}
