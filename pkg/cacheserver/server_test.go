package cacheserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mnohosten/blockcache/pkg/blockcache"
	"github.com/mnohosten/blockcache/pkg/filemgr"
)

// reqWithURLParam injects a chi route parameter directly into the request
// context, for exercising a handler function directly (bypassing mux path
// matching) when the parameter value itself may contain "/", as a
// filesystem path does.
func reqWithURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func newTestServer(t *testing.T) (*Server, *blockcache.Cache, *filemgr.Manager) {
	t.Helper()
	cache, err := blockcache.Init(blockcache.DefaultConfig(4, 64))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	files := filemgr.New()

	cfg := DefaultConfig()
	cfg.EnableCompression = false
	srv := New(cfg, cache, files)
	return srv, cache, files
}

func TestHandleStatsReturnsSnapshot(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats blockcache.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.NBlock != 4 {
		t.Errorf("expected NBlock=4, got %d", stats.NBlock)
	}
}

func TestHandleFlushRequiresAdminTokenWhenConfigured(t *testing.T) {
	cache, err := blockcache.Init(blockcache.DefaultConfig(4, 64))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	files := filemgr.New()

	cfg := DefaultConfig()
	cfg.EnableCompression = false
	salt, hash, err := NewAdminToken("opsonly")
	if err != nil {
		t.Fatalf("NewAdminToken: %v", err)
	}
	cfg.AdminTokenSalt = salt
	cfg.AdminTokenHash = hash

	srv := New(cfg, cache, files)

	req := httptest.NewRequest(http.MethodPost, "/flush/a.db", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", w.Code)
	}
}

func TestHandleFlushUnknownFileReturns404(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/flush/missing.db", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for untracked file, got %d", w.Code)
	}
}

func TestHandleFlushWritesDirtyBlocks(t *testing.T) {
	srv, cache, files := newTestServer(t)

	path := filepath.Join(t.TempDir(), "a.db")
	h, err := files.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	buf := make([]byte, 64)
	if _, err := cache.Write(h, 0, buf, blockcache.Dirty); err != nil {
		t.Fatalf("Write: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/flush/", nil)
	req = reqWithURLParam(req, "file", path)
	w := httptest.NewRecorder()
	srv.handleFlush(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleListFilesReportsDirtyCounts(t *testing.T) {
	srv, cache, files := newTestServer(t)

	path := filepath.Join(t.TempDir(), "a.db")
	h, err := files.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf := make([]byte, 64)
	if _, err := cache.Write(h, 0, buf, blockcache.Dirty); err != nil {
		t.Fatalf("Write: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var out []struct {
		Name  string `json:"name"`
		Dirty int    `json:"dirtyBlocks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].Name != path || out[0].Dirty != 1 {
		t.Errorf("unexpected files listing: %+v", out)
	}
}
