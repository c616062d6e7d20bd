package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"cornerstone/api/internal/blob"
	"cornerstone/api/internal/config"
	"cornerstone/api/internal/docstore"
	"cornerstone/api/internal/identity"
	"cornerstone/api/internal/search"
	"cornerstone/api/internal/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Config{
		DataDir:           t.TempDir(),
		JWTSecret:         "test-secret",
		AccessTTLSeconds:  900,
		RefreshTTLSeconds: 3600,
		ProbeTimeoutMS:    50,
	}

	local, err := docstore.NewLocalBackend(cfg.DataDir)
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}
	store := docstore.New(nil, local, zerolog.Nop())
	registry := services.NewRegistry(store)

	gate := identity.NewGate(nil, cfg.DataDir, cfg.ProbeTimeout(), zerolog.Nop())
	gate.Initialize(context.Background())

	searchSvc := search.NewService(nil, search.NewScan(store), zerolog.Nop())

	blobLocal, err := blob.NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("blob.NewLocalBackend failed: %v", err)
	}
	blobs := blob.New(nil, blobLocal, zerolog.Nop())

	service := NewService(cfg, gate, store, registry, searchSvc, blobs, zerolog.Nop())
	srv := httptest.NewServer(NewHTTPServer(service, "*", zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var payload map[string]any
	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		_ = json.NewDecoder(resp.Body).Decode(&payload)
	}
	resp.Body.Close()
	return resp, payload
}

func signIn(t *testing.T, srv *httptest.Server, email, password string) (token, refresh string) {
	t.Helper()
	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signin", "", map[string]any{
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sign-in failed with status %d: %v", resp.StatusCode, payload)
	}
	token, _ = payload["token"].(string)
	refresh, _ = payload["refreshToken"].(string)
	if token == "" || refresh == "" {
		t.Fatalf("missing tokens in response: %v", payload)
	}
	return token, refresh
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, payload := doJSON(t, http.MethodGet, srv.URL+"/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload["ok"] != true {
		t.Fatalf("expected ok, got %v", payload)
	}
	if payload["demoMode"] != true {
		t.Fatal("expected demo mode with no remote identity provider")
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestReadyLocalOnly(t *testing.T) {
	srv := newTestServer(t)

	resp, payload := doJSON(t, http.MethodGet, srv.URL+"/api/ready", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("local-only deployment must be ready, got %d: %v", resp.StatusCode, payload)
	}
}

func TestSignInAndSession(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signIn(t, srv, "admin@college.edu", "admin123")

	resp, payload := doJSON(t, http.MethodGet, srv.URL+"/api/session", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload["authenticated"] != true || payload["role"] != "admin" {
		t.Fatalf("unexpected session payload: %v", payload)
	}
}

func TestSignInBadCredentials(t *testing.T) {
	srv := newTestServer(t)

	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signin", "", map[string]any{
		"email":    "admin@college.edu",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %v", resp.StatusCode, payload)
	}
	if payload["code"] != "INVALID_CREDENTIALS" {
		t.Fatalf("unexpected error code: %v", payload)
	}
}

func TestDemoCredentialsListed(t *testing.T) {
	srv := newTestServer(t)

	resp, payload := doJSON(t, http.MethodGet, srv.URL+"/api/auth/demo", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	accounts, _ := payload["accounts"].([]any)
	if len(accounts) != 4 {
		t.Fatalf("expected 4 demo accounts, got %d", len(accounts))
	}
}

func TestRefreshRotation(t *testing.T) {
	srv := newTestServer(t)
	_, refresh := signIn(t, srv, "manager@college.edu", "manager123")

	resp, payload := doJSON(t, http.MethodPost, srv.URL+"/api/auth/refresh", "", map[string]any{
		"refreshToken": refresh,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh failed: %d %v", resp.StatusCode, payload)
	}
	newRefresh, _ := payload["refreshToken"].(string)
	if newRefresh == "" || newRefresh == refresh {
		t.Fatal("expected a rotated refresh token")
	}

	// the old token is spent
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/auth/refresh", "", map[string]any{
		"refreshToken": refresh,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for reused refresh token, got %d", resp.StatusCode)
	}
}

func TestSignOutSpendsRefreshToken(t *testing.T) {
	srv := newTestServer(t)
	_, refresh := signIn(t, srv, "team@college.edu", "team123")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signout", "", map[string]any{
		"refreshToken": refresh,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sign-out failed: %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/auth/refresh", "", map[string]any{
		"refreshToken": refresh,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after sign-out, got %d", resp.StatusCode)
	}
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/tasks", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestTaskLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signIn(t, srv, "admin@college.edu", "admin123")

	resp, created := doJSON(t, http.MethodPost, srv.URL+"/api/tasks", token, map[string]any{
		"title":    "Pour foundation",
		"status":   "todo",
		"priority": "high",
		"assignee": "u1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create failed: %d %v", resp.StatusCode, created)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("missing id: %v", created)
	}

	resp, payload := doJSON(t, http.MethodGet, srv.URL+"/api/tasks?status=todo", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list failed: %d", resp.StatusCode)
	}
	tasks, _ := payload["tasks"].([]any)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 todo task, got %d", len(tasks))
	}

	resp, updated := doJSON(t, http.MethodPatch, srv.URL+"/api/tasks/"+id, token, map[string]any{
		"status": "done",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch failed: %d %v", resp.StatusCode, updated)
	}
	if updated["status"] != "done" || updated["title"] != "Pour foundation" {
		t.Fatalf("patch must merge: %v", updated)
	}

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/tasks/"+id, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete failed: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/tasks/"+id, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestPatchUnknownTask(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signIn(t, srv, "admin@college.edu", "admin123")

	resp, payload := doJSON(t, http.MethodPatch, srv.URL+"/api/tasks/nope", token, map[string]any{
		"status": "done",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %v", resp.StatusCode, payload)
	}
}

func TestInvestorCannotWrite(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signIn(t, srv, "investor@college.edu", "investor123")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/tasks", token, map[string]any{
		"title": "Should fail",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestFinanceVisibility(t *testing.T) {
	srv := newTestServer(t)

	adminToken, _ := signIn(t, srv, "admin@college.edu", "admin123")
	resp, created := doJSON(t, http.MethodPost, srv.URL+"/api/finances", adminToken, map[string]any{
		"type":        "expense",
		"category":    "Land",
		"amount":      2500000,
		"description": "Land purchase",
		"date":        "2024-02-20T00:00:00Z",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create failed: %d %v", resp.StatusCode, created)
	}

	// investors hold view_financials
	investorToken, _ := signIn(t, srv, "investor@college.edu", "investor123")
	resp, payload := doJSON(t, http.MethodGet, srv.URL+"/api/finances", investorToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("investor read failed: %d", resp.StatusCode)
	}
	finances, _ := payload["finances"].([]any)
	if len(finances) != 1 {
		t.Fatalf("expected 1 record, got %d", len(finances))
	}
	rec, _ := finances[0].(map[string]any)
	if rec["amount"] != float64(2500000) || rec["type"] != "expense" {
		t.Fatalf("record did not survive the round trip: %v", rec)
	}

	// team members do not
	teamToken, _ := signIn(t, srv, "team@college.edu", "team123")
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/finances", teamToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for team member, got %d", resp.StatusCode)
	}

	// investors cannot write either
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/finances", investorToken, map[string]any{
		"type": "expense", "category": "X", "amount": 1, "date": "2024-01-01T00:00:00Z",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for investor write, got %d", resp.StatusCode)
	}
}

func TestExpenseApprovalPrivilege(t *testing.T) {
	srv := newTestServer(t)
	adminToken, _ := signIn(t, srv, "admin@college.edu", "admin123")

	_, created := doJSON(t, http.MethodPost, srv.URL+"/api/finances", adminToken, map[string]any{
		"type": "expense", "category": "Materials", "amount": 1000, "date": "2024-03-01T00:00:00Z",
	})
	id, _ := created["id"].(string)

	managerToken, _ := signIn(t, srv, "manager@college.edu", "manager123")
	resp, payload := doJSON(t, http.MethodPatch, srv.URL+"/api/finances/"+id, managerToken, map[string]any{
		"status": "approved",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("manager approval failed: %d %v", resp.StatusCode, payload)
	}
}

func TestUsersAdminOnly(t *testing.T) {
	srv := newTestServer(t)

	managerToken, _ := signIn(t, srv, "manager@college.edu", "manager123")
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/users", managerToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for manager, got %d", resp.StatusCode)
	}

	adminToken, _ := signIn(t, srv, "admin@college.edu", "admin123")
	resp, created := doJSON(t, http.MethodPost, srv.URL+"/api/users", adminToken, map[string]any{
		"email":       "hire@college.edu",
		"displayName": "New Hire",
		"role":        "team_member",
		"password":    "welcome1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin create user failed: %d %v", resp.StatusCode, created)
	}

	// duplicate email is rejected
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/users", adminToken, map[string]any{
		"email": "hire@college.edu", "displayName": "Dup", "password": "x",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}

	resp, payload := doJSON(t, http.MethodGet, srv.URL+"/api/users", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin list users failed: %d", resp.StatusCode)
	}
	users, _ := payload["users"].([]any)
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signIn(t, srv, "admin@college.edu", "admin123")

	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/tasks", token, map[string]any{
			"title": fmt.Sprintf("Foundation check %d", i),
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create failed: %d", resp.StatusCode)
		}
	}

	resp, payload := doJSON(t, http.MethodGet, srv.URL+"/api/search?q=foundation", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search failed: %d", resp.StatusCode)
	}
	if payload["total"] != float64(2) {
		t.Fatalf("expected 2 hits, got %v", payload["total"])
	}
}

func TestSummaryAndReports(t *testing.T) {
	srv := newTestServer(t)
	adminToken, _ := signIn(t, srv, "admin@college.edu", "admin123")

	for _, rec := range []map[string]any{
		{"type": "income", "category": "Investment", "amount": 5000000, "date": "2024-01-15T00:00:00Z"},
		{"type": "expense", "category": "Land", "amount": 2500000, "date": "2024-02-20T00:00:00Z"},
	} {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/finances", adminToken, rec)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create failed: %d", resp.StatusCode)
		}
	}

	resp, summary := doJSON(t, http.MethodGet, srv.URL+"/api/summary", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary failed: %d", resp.StatusCode)
	}
	if summary["balance"] != float64(2500000) {
		t.Fatalf("unexpected balance: %v", summary["balance"])
	}

	resp, cashflow := doJSON(t, http.MethodGet, srv.URL+"/api/reports/cashflow", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cashflow failed: %d", resp.StatusCode)
	}
	months, _ := cashflow["months"].([]any)
	if len(months) != 2 {
		t.Fatalf("expected 2 months, got %d", len(months))
	}

	// team members cannot export
	teamToken, _ := signIn(t, srv, "team@college.edu", "team123")
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/reports/finances.csv", teamToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for team export, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/reports/finances.csv", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rawResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("csv request failed: %v", err)
	}
	defer rawResp.Body.Close()
	if rawResp.StatusCode != http.StatusOK {
		t.Fatalf("csv export failed: %d", rawResp.StatusCode)
	}
	if ct := rawResp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv, got %q", ct)
	}
}

func TestDocumentContentRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signIn(t, srv, "admin@college.edu", "admin123")

	resp, created := doJSON(t, http.MethodPost, srv.URL+"/api/documents", token, map[string]any{
		"name": "blueprint.pdf",
		"type": "file",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create failed: %d %v", resp.StatusCode, created)
	}
	id, _ := created["id"].(string)

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/documents/"+id+"/content", strings.NewReader("pdf bytes"))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/pdf")
	upResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	upResp.Body.Close()
	if upResp.StatusCode != http.StatusOK {
		t.Fatalf("upload failed: %d", upResp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/documents/"+id+"/content", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	downResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	defer downResp.Body.Close()
	if downResp.StatusCode != http.StatusOK {
		t.Fatalf("download failed: %d", downResp.StatusCode)
	}
	if ct := downResp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(downResp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if buf.String() != "pdf bytes" {
		t.Fatalf("content mismatch: %q", buf.String())
	}

	// document metadata picked up the size
	resp, doc := doJSON(t, http.MethodGet, srv.URL+"/api/documents/"+id, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get document failed: %d", resp.StatusCode)
	}
	if doc["size"] != float64(len("pdf bytes")) {
		t.Fatalf("expected size updated, got %v", doc["size"])
	}
}

func TestDocumentContentUploadTooLarge(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signIn(t, srv, "admin@college.edu", "admin123")

	resp, created := doJSON(t, http.MethodPost, srv.URL+"/api/documents", token, map[string]any{
		"name": "huge.bin",
		"type": "file",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create failed: %d %v", resp.StatusCode, created)
	}
	id, _ := created["id"].(string)

	oversized := bytes.NewReader(make([]byte, maxUploadBytes+1))
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/documents/"+id+"/content", oversized)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/octet-stream")
	upResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	upResp.Body.Close()
	if upResp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", upResp.StatusCode)
	}

	// nothing was stored
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/documents/"+id+"/content", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	downResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	downResp.Body.Close()
	if downResp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unstored content, got %d", downResp.StatusCode)
	}
}

func TestContentForFolderIs404(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signIn(t, srv, "admin@college.edu", "admin123")

	_, created := doJSON(t, http.MethodPost, srv.URL+"/api/documents", token, map[string]any{
		"name": "Contracts",
		"type": "folder",
	})
	id, _ := created["id"].(string)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/documents/"+id+"/content", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for folder content, got %d", resp.StatusCode)
	}
}
