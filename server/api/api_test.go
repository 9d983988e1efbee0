package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/filevault/auth"
	"github.com/kbukum/filevault/auth/jwt"
	"github.com/kbukum/filevault/catalog"
	"github.com/kbukum/filevault/database/testutil"
	"github.com/kbukum/filevault/logger"
	"github.com/kbukum/filevault/server"
	"github.com/kbukum/filevault/server/api"
	"github.com/kbukum/filevault/share"
	"github.com/kbukum/filevault/share/memory"
	"github.com/kbukum/filevault/storage"
	"github.com/kbukum/filevault/storage/local"
)

type testAPI struct {
	handler  http.Handler
	provider *auth.JWTProvider
}

func newTestAPI(t *testing.T, mutate func(*server.Config)) *testAPI {
	t.Helper()
	base := t.TempDir()
	backends := make(map[storage.Class]storage.Backend)
	for _, class := range storage.Classes() {
		b, err := local.NewStorage(filepath.Join(base, string(class)))
		if err != nil {
			t.Fatal(err)
		}
		backends[class] = b
	}
	set := storage.NewSet(backends[storage.ClassPublic], backends[storage.ClassPrivate], backends[storage.ClassTemp])
	files := catalog.NewService(
		catalog.NewGormStore(testutil.NewDB(t, catalog.Models()...)),
		set,
		share.NewService(memory.New()),
	)

	provider, err := auth.NewJWTProvider(jwt.Config{Secret: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatal(err)
	}

	cfg := server.Config{}
	cfg.ApplyDefaults()
	if mutate != nil {
		mutate(&cfg)
	}
	srv := server.New(cfg, false, logger.Nop())
	srv.ApplyMiddleware()
	srv.RegisterDefaultEndpoints("filevault", nil)
	api.NewHandler(files).Register(srv.Engine(), provider)

	return &testAPI{handler: srv.Handler(), provider: provider}
}

func (a *testAPI) token(t *testing.T, subject string) string {
	t.Helper()
	tok, err := a.provider.Issue(subject, "")
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (a *testAPI) do(t *testing.T, method, target, subject string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+a.token(t, subject))
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) doJSON(t *testing.T, method, target, subject, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	return a.do(t, method, target, subject, r, "application/json")
}

func (a *testAPI) upload(t *testing.T, subject, class, filename, content string) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if class != "" {
		_ = w.WriteField("class", class)
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte(content))
	_ = w.Close()

	rec := a.do(t, http.MethodPost, "/api/v1/files", subject, &buf, w.FormDataContentType())
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: status %d body %s", rec.Code, rec.Body.String())
	}
	return decodeData(t, rec)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env.Data
}

type errorBody struct {
	Error struct {
		Code      string         `json:"code"`
		Message   string         `json:"message"`
		Retryable bool           `json:"retryable"`
		Details   map[string]any `json:"details"`
	} `json:"error"`
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	if body.Error.Code != code {
		t.Errorf("code = %q, want %q", body.Error.Code, code)
	}
	if body.Error.Message == "" {
		t.Error("error message should be set")
	}
}

func TestUploadAndDownload(t *testing.T) {
	a := newTestAPI(t, nil)
	f := a.upload(t, "alice", "", "notes.txt", "hello world")
	if f["class"] != "private" || f["name"] != "notes.txt" || f["size"] != float64(11) {
		t.Fatalf("unexpected upload response: %v", f)
	}
	id := f["id"].(string)

	rec := a.do(t, http.MethodGet, "/api/v1/files/"+id, "alice", http.NoBody, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "hello world" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "notes.txt") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing request id header")
	}

	expectError(t, a.do(t, http.MethodGet, "/api/v1/files/"+id, "bob", http.NoBody, ""), http.StatusForbidden, "FORBIDDEN")
	expectError(t, a.do(t, http.MethodGet, "/api/v1/files/"+id, "", http.NoBody, ""), http.StatusForbidden, "FORBIDDEN")
}

func TestPublicDownloadIsAnonymous(t *testing.T) {
	a := newTestAPI(t, nil)
	f := a.upload(t, "alice", "public", "logo.svg", "<svg/>")

	rec := a.do(t, http.MethodGet, "/api/v1/files/"+f["id"].(string), "", http.NoBody, "")
	if rec.Code != http.StatusOK || rec.Body.String() != "<svg/>" {
		t.Fatalf("anonymous public download: %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuthentication(t *testing.T) {
	a := newTestAPI(t, nil)

	expectError(t, a.doJSON(t, http.MethodGet, "/api/v1/files", "", ""), http.StatusUnauthorized, "UNAUTHORIZED")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", http.NoBody)
	req.Header.Set("Authorization", "Basic YWxpY2U6cHc=")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	expectError(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/files", http.NoBody)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	expectError(t, rec, http.StatusUnauthorized, "INVALID_TOKEN")

	// An invalid token is rejected even where auth is optional.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/files/3f2a9c1e-0000-4000-8000-000000000000", http.NoBody)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	expectError(t, rec, http.StatusUnauthorized, "INVALID_TOKEN")
}

func TestShareLifecycle(t *testing.T) {
	a := newTestAPI(t, nil)
	f := a.upload(t, "owner", "public", "q1.pdf", "0123456789")
	id := f["id"].(string)

	rec := a.doJSON(t, http.MethodPost, "/api/v1/files/"+id+"/shares", "owner", `{"expires_in": 3600}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("share: %d %s", rec.Code, rec.Body.String())
	}
	link := decodeData(t, rec)
	token := link["token"].(string)
	if len(token) != share.TokenLength || link["max_redemptions"] != float64(1) || link["state"] != "active" {
		t.Fatalf("unexpected link: %v", link)
	}
	if link["url"] != "/s/"+token {
		t.Errorf("url = %v", link["url"])
	}
	if _, leaked := link["materialized_path"]; leaked {
		t.Error("backend paths must not be exposed")
	}

	rec = a.do(t, http.MethodGet, "/s/"+token, "", http.NoBody, "")
	if rec.Code != http.StatusOK || rec.Body.String() != "0123456789" {
		t.Fatalf("redeem: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Cache-Control") != "no-store" || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Errorf("unexpected headers: %v", rec.Header())
	}

	expectError(t, a.do(t, http.MethodGet, "/s/"+token, "", http.NoBody, ""), http.StatusGone, "LINK_EXHAUSTED")
	expectError(t, a.do(t, http.MethodGet, "/s/unknown", "", http.NoBody, ""), http.StatusNotFound, "NOT_FOUND")
}

func TestShareRevokeAndList(t *testing.T) {
	a := newTestAPI(t, nil)
	id := a.upload(t, "alice", "", "a.txt", "data")["id"].(string)

	rec := a.doJSON(t, http.MethodPost, "/api/v1/files/"+id+"/shares", "alice", `{"expires_in": 60, "max_redemptions": 5, "materialize": true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("share: %d %s", rec.Code, rec.Body.String())
	}
	link := decodeData(t, rec)
	if link["materialized"] != true || link["remaining"] != float64(5) {
		t.Fatalf("unexpected link: %v", link)
	}
	token := link["token"].(string)

	rec = a.doJSON(t, http.MethodGet, "/api/v1/files/"+id+"/shares", "alice", "")
	var list struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list.Data) != 1 {
		t.Fatalf("list shares: %s", rec.Body.String())
	}

	expectError(t, a.doJSON(t, http.MethodDelete, "/api/v1/shares/"+token, "bob", ""), http.StatusForbidden, "FORBIDDEN")

	rec = a.doJSON(t, http.MethodDelete, "/api/v1/shares/"+token, "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("revoke: %d %s", rec.Code, rec.Body.String())
	}
	if got := decodeData(t, rec); got["state"] != "revoked" || got["revoked_at"] == nil {
		t.Errorf("unexpected revoke response: %v", got)
	}
	expectError(t, a.do(t, http.MethodGet, "/s/"+token, "", http.NoBody, ""), http.StatusGone, "LINK_EXPIRED")
}

func TestShareValidation(t *testing.T) {
	a := newTestAPI(t, nil)
	id := a.upload(t, "alice", "", "a.txt", "data")["id"].(string)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"zero expiry", `{"expires_in": 0}`, http.StatusBadRequest, "INVALID_POLICY"},
		{"zero redemptions", `{"expires_in": 60, "max_redemptions": 0}`, http.StatusBadRequest, "INVALID_POLICY"},
		{"expiry overflows", `{"expires_in": 9300000000000}`, http.StatusBadRequest, "INVALID_POLICY"},
		{"expiry beyond ten years", `{"expires_in": 315400000}`, http.StatusBadRequest, "INVALID_POLICY"},
		{"malformed body", `{"expires_in": "soon"}`, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, a.doJSON(t, http.MethodPost, "/api/v1/files/"+id+"/shares", "alice", tt.body), tt.status, tt.code)
		})
	}
	expectError(t, a.doJSON(t, http.MethodPost, "/api/v1/files/"+id+"/shares", "bob", `{"expires_in": 60}`), http.StatusForbidden, "FORBIDDEN")
}

func TestListAndUpdate(t *testing.T) {
	a := newTestAPI(t, nil)
	var id string
	for i := 0; i < 3; i++ {
		id = a.upload(t, "alice", "", "f.txt", "x")["id"].(string)
	}

	rec := a.doJSON(t, http.MethodGet, "/api/v1/files?page_size=2", "alice", "")
	var page struct {
		Data []map[string]any `json:"data"`
		Meta server.Meta      `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Data) != 2 || page.Meta.Total != 3 || page.Meta.TotalPages != 2 {
		t.Errorf("unexpected page: %+v", page)
	}

	rec = a.doJSON(t, http.MethodPatch, "/api/v1/files/"+id, "alice", `{"name": "renamed.txt"}`)
	if rec.Code != http.StatusOK || decodeData(t, rec)["name"] != "renamed.txt" {
		t.Fatalf("rename: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, a.doJSON(t, http.MethodPatch, "/api/v1/files/"+id, "alice", `{}`), http.StatusBadRequest, "INVALID_INPUT")
	expectError(t, a.doJSON(t, http.MethodPatch, "/api/v1/files/"+id, "alice", `{"name": "../x"}`), http.StatusBadRequest, "INVALID_INPUT")

	rec = a.doJSON(t, http.MethodDelete, "/api/v1/files/"+id, "alice", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, a.doJSON(t, http.MethodDelete, "/api/v1/files/"+id, "alice", ""), http.StatusNotFound, "NOT_FOUND")
}

func TestFolders(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.doJSON(t, http.MethodPost, "/api/v1/folders", "alice", `{"name": "docs"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create folder: %d %s", rec.Code, rec.Body.String())
	}
	folder := decodeData(t, rec)
	if folder["virtual_path"] != "/docs" || folder["class"] != "private" {
		t.Errorf("unexpected folder: %v", folder)
	}
	id := folder["id"].(string)

	rec = a.doJSON(t, http.MethodPatch, "/api/v1/files/"+a.upload(t, "alice", "", "a.txt", "x")["id"].(string), "alice", `{"folder_id": "`+id+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("move: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, a.doJSON(t, http.MethodDelete, "/api/v1/folders/"+id, "alice", ""), http.StatusConflict, "CONFLICT")
	expectError(t, a.doJSON(t, http.MethodPost, "/api/v1/folders", "alice", `{"name": "docs"}`), http.StatusConflict, "ALREADY_EXISTS")
}

func TestUploadRejections(t *testing.T) {
	a := newTestAPI(t, func(c *server.Config) { c.MaxBodySize = "1KB" })

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("file", "big.bin")
	_, _ = part.Write(bytes.Repeat([]byte("x"), 4096))
	_ = w.Close()
	rec := a.do(t, http.MethodPost, "/api/v1/files", "alice", &buf, w.FormDataContentType())
	if rec.Code != http.StatusRequestEntityTooLarge && rec.Code != http.StatusBadRequest {
		t.Errorf("oversized body: status %d", rec.Code)
	}

	buf.Reset()
	w = multipart.NewWriter(&buf)
	_ = w.WriteField("class", "archive")
	_ = w.Close()
	expectError(t, a.do(t, http.MethodPost, "/api/v1/files", "alice", &buf, w.FormDataContentType()), http.StatusBadRequest, "INVALID_INPUT")

	expectError(t, a.doJSON(t, http.MethodPost, "/api/v1/files", "alice", `{}`), http.StatusBadRequest, "INVALID_INPUT")
}

func TestSystemRoutes(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodGet, "/health", "", http.NoBody, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Errorf("health: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, a.do(t, http.MethodGet, "/nope", "", http.NoBody, ""), http.StatusNotFound, "NOT_FOUND")
	expectError(t, a.do(t, http.MethodPut, "/api/v1/files", "", http.NoBody, ""), http.StatusMethodNotAllowed, "INVALID_INPUT")
}

func TestListQuery(t *testing.T) {
	a := newTestAPI(t, nil)
	a.upload(t, "alice", "", "a.txt", "xx")
	a.upload(t, "alice", "", "budget.txt", "xxxx")
	a.upload(t, "alice", "", "c.md", "x")

	names := func(target string) string {
		t.Helper()
		rec := a.doJSON(t, http.MethodGet, target, "alice", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d body %s", target, rec.Code, rec.Body.String())
		}
		var page struct {
			Data []map[string]any `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
			t.Fatal(err)
		}
		out := make([]string, 0, len(page.Data))
		for _, f := range page.Data {
			out = append(out, f["name"].(string))
		}
		return strings.Join(out, ",")
	}

	tests := []struct {
		target string
		want   string
	}{
		{"/api/v1/files?sort_by=size&order=desc", "budget.txt,a.txt,c.md"},
		{"/api/v1/files?sort_by=name", "a.txt,budget.txt,c.md"},
		{"/api/v1/files?size=gt.1&sort_by=size", "a.txt,budget.txt"},
		{"/api/v1/files?search=BUDG", "budget.txt"},
		{"/api/v1/files?name=eq.c.md", "c.md"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := names(tt.target); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	expectError(t, a.doJSON(t, http.MethodGet, "/api/v1/files?sort_by=owner_id", "alice", ""), http.StatusBadRequest, "INVALID_INPUT")
}

func TestUpdateRejectedLeavesFileInPlace(t *testing.T) {
	a := newTestAPI(t, nil)
	id := a.upload(t, "alice", "", "a.txt", "x")["id"].(string)
	rec := a.doJSON(t, http.MethodPost, "/api/v1/folders", "alice", `{"name": "docs"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create folder: %d %s", rec.Code, rec.Body.String())
	}
	folderID := decodeData(t, rec)["id"].(string)

	body := `{"folder_id": "` + folderID + `", "name": "../bad"}`
	expectError(t, a.doJSON(t, http.MethodPatch, "/api/v1/files/"+id, "alice", body), http.StatusBadRequest, "INVALID_INPUT")

	var page struct {
		Meta server.Meta `json:"meta"`
	}
	rec = a.doJSON(t, http.MethodGet, "/api/v1/files?folder_id="+folderID, "alice", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Meta.Total != 0 {
		t.Errorf("file moved by a rejected update: %s", rec.Body.String())
	}
}

func TestPublicListing(t *testing.T) {
	a := newTestAPI(t, nil)
	a.upload(t, "alice", "public", "b.txt", "x")
	a.upload(t, "alice", "public", "a.txt", "x")
	a.upload(t, "alice", "private", "secret.txt", "x")
	a.upload(t, "bob", "public", "bob.txt", "x")

	rec := a.doJSON(t, http.MethodGet, "/api/v1/public/files?owner_id=alice&sort_by=name", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Data []map[string]any `json:"data"`
		Meta server.Meta      `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Meta.Total != 2 || len(page.Data) != 2 {
		t.Fatalf("total %d, files %d, want 2", page.Meta.Total, len(page.Data))
	}
	if page.Data[0]["name"] != "a.txt" || page.Data[1]["name"] != "b.txt" {
		t.Errorf("unexpected listing %v", page.Data)
	}

	expectError(t, a.doJSON(t, http.MethodGet, "/api/v1/public/files", "", ""), http.StatusBadRequest, "INVALID_INPUT")
}
