package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"avatarstudio/internal/auth"
	"avatarstudio/internal/avatar"
	"avatarstudio/internal/blob"
	"avatarstudio/internal/dbopen"
	"avatarstudio/internal/export"
	"avatarstudio/internal/pipeline"
	"avatarstudio/internal/session"
	"avatarstudio/internal/store"

	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct horse"

func testServer(t *testing.T, delay time.Duration) *Server {
	t.Helper()
	ctx := context.Background()
	blobs, err := blob.NewStore(t.TempDir(), "/files")
	if err != nil {
		t.Fatal(err)
	}
	avatars, err := store.New(ctx, dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	authn, err := auth.NewService([]byte(strings.Repeat("s", auth.MinSecretLen)),
		map[string]string{"ada": string(hash), "bob": string(hash)}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	runner := pipeline.NewRunner(delay, nil)
	t.Cleanup(runner.Close)
	return &Server{
		Catalog:  avatar.DefaultCatalog(),
		Sessions: session.NewMemoryStore[session.Editor](),
		Runner:   runner,
		// A coarse software render keeps thumbnails and image exports quick.
		Exporter: &export.Exporter{Blobs: blobs, RenderScale: 16},
		Blobs:    blobs,
		Avatars:  avatars,
		Auth:     authn,
	}
}

// client replays cookies between requests like a browser.
type client struct {
	t       *testing.T
	srv     *Server
	h       http.Handler
	cookies map[string]*http.Cookie
	header  http.Header
}

func newClient(t *testing.T, srv *Server) *client {
	return &client{t: t, srv: srv, h: srv.Routes(), cookies: map[string]*http.Cookie{}, header: http.Header{}}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) request(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var r io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			c.t.Fatal(err)
		}
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

func (c *client) sessionID() string {
	ck, ok := c.cookies[cookieName]
	if !ok {
		c.t.Fatal("Expected a session cookie")
	}
	return ck.Value
}

func (c *client) login(user string) {
	c.t.Helper()
	rec := c.request(http.MethodPost, "/auth/login", loginRequest{Username: user, Password: testPassword})
	if rec.Code != http.StatusOK {
		c.t.Fatalf("login %s: expected 200, got %d: %s", user, rec.Code, rec.Body)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("Expected %d, got %d: %s", code, rec.Code, rec.Body)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, code int, kind string) {
	t.Helper()
	expectStatus(t, rec, code)
	body := decode[map[string]any](t, rec)
	if body["kind"] != kind {
		t.Errorf("Expected kind %q, got %v", kind, body)
	}
}

func waitJob(t *testing.T, c *client, kind pipeline.Kind) pipeline.Status {
	t.Helper()
	j, ok := c.srv.Runner.Current(c.sessionID(), kind)
	if !ok {
		t.Fatalf("Expected a %s job", kind)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	st, err := j.Wait(ctx)
	if err != nil {
		t.Fatalf("wait %s: %v", kind, err)
	}
	return st
}

func TestHealthz(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	rec := c.request(http.MethodGet, "/healthz", nil)
	expectStatus(t, rec, http.StatusOK)
	if decode[map[string]string](t, rec)["status"] != "ok" {
		t.Errorf("Unexpected body %s", rec.Body)
	}
}

func TestIndex_ChoosesPreviewMode(t *testing.T) {
	c := newClient(t, testServer(t, 0))
	rec := c.request(http.MethodGet, "/", nil)
	expectStatus(t, rec, http.StatusOK)
	body := rec.Body.String()
	if !strings.Contains(body, `data-mode="3d"`) || !strings.Contains(body, `id="viewer"`) {
		t.Error("Expected 3D viewer by default")
	}
	if !strings.Contains(body, `data-preset="athletic"`) {
		t.Error("Expected body presets in the shell")
	}
	if _, ok := c.cookies[cookieName]; !ok {
		t.Error("Expected session cookie on first visit")
	}

	rec = c.request(http.MethodGet, "/?renderer=none", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "/api/schematic.png") {
		t.Error("Expected schematic preview without 3D support")
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		err  error
		code int
		kind string
	}{
		{errBadRequest, http.StatusBadRequest, KindValidation},
		{avatar.ErrInvalid, http.StatusBadRequest, KindValidation},
		{export.ErrUnknownFormat, http.StatusBadRequest, KindValidation},
		{pipeline.ErrUnknownKind, http.StatusBadRequest, KindValidation},
		{store.ErrInvalidName, http.StatusBadRequest, KindValidation},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge, KindValidation},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized, KindAuthentication},
		{store.ErrNotFound, http.StatusNotFound, KindPersistence},
		{blob.ErrNotFound, http.StatusNotFound, KindPersistence},
		{fmt.Errorf("store: create: %w: %w", store.ErrStorage, io.ErrClosedPipe), http.StatusInternalServerError, KindPersistence},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError, KindInternal},
	}
	for _, tt := range tests {
		code, kind := classify(tt.err)
		if code != tt.code || kind != tt.kind {
			t.Errorf("%v: expected %d/%s, got %d/%s", tt.err, tt.code, tt.kind, code, kind)
		}
	}
}

func TestDownloadName(t *testing.T) {
	id := "0190c1a2-0000-7000-8000-000000000000.glb"
	tests := map[string]string{
		"":               "",
		"hero.glb":       "hero.glb",
		"../../etc/hero": "hero.glb",
		"hero.GLB":       "hero.GLB",
		"bad\"name.glb":  "",
	}
	for in, want := range tests {
		if got := downloadName(in, id); got != want {
			t.Errorf("downloadName(%q): expected %q, got %q", in, want, got)
		}
	}
}
