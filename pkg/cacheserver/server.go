// Package cacheserver exposes a block cache's state and lifecycle
// operations over HTTP: the admin surface spec.md itself is silent on
// (the cache is a library, not a service) but that the teacher's pkg/server
// provides for its own engine. Grounded on pkg/server/server.go's
// chi.Mux + middleware-stack + http.Server shape.
package cacheserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnohosten/blockcache/pkg/blockcache"
	"github.com/mnohosten/blockcache/pkg/cacheql"
	"github.com/mnohosten/blockcache/pkg/filemgr"
)

var logger = log.New(os.Stderr, "[cacheserver] ", log.LstdFlags)

// Server is the admin HTTP server wrapping a single *blockcache.Cache and
// the *filemgr.Manager that hands out its FileHandles.
type Server struct {
	cfg   *Config
	cache *blockcache.Cache
	files *filemgr.Manager

	router    *chi.Mux
	httpSrv   *http.Server
	startTime time.Time

	stream *statsStream
}

// New builds a Server. cache and files must already be initialized and
// are not owned by the Server (callers remain responsible for Shutdown).
func New(cfg *Config, cache *blockcache.Cache, files *filemgr.Manager) *Server {
	s := &Server{
		cfg:       cfg,
		cache:     cache,
		files:     files,
		router:    chi.NewRouter(),
		startTime: time.Now(),
		stream:    newStatsStream(cache),
	}

	s.setupMiddleware()
	s.setupRoutes()
	if cfg.EnableGraphQL {
		if err := s.setupGraphQLRoutes(); err != nil {
			logger.Printf("graphql disabled: %v", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Logger)

	if s.cfg.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}
	s.router.Use(s.requestSizeLimitMiddleware)
	if s.cfg.EnableCompression {
		s.router.Use(compressMiddleware)
	}
	s.router.Use(middleware.Timeout(30 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/stats", s.jsonHandler(s.handleStats))
	s.router.Get("/files", s.jsonHandler(s.handleListFiles))
	s.router.Get("/stats/stream", s.handleStatsStream)

	s.router.Group(func(r chi.Router) {
		r.Use(s.adminAuthMiddleware)
		r.Post("/flush/{file}", s.jsonHandler(s.handleFlush))
		r.Post("/discard/{file}", s.jsonHandler(s.handleDiscard))
		r.Delete("/files/{file}", s.jsonHandler(s.handleDropFile))
	})
}

// setupGraphQLRoutes mounts the read-only cacheql schema, mirroring
// pkg/server/server.go's setupGraphQLRoutes.
func (s *Server) setupGraphQLRoutes() error {
	h, err := cacheql.NewHandler(s.cache, s.files)
	if err != nil {
		return fmt.Errorf("cacheserver: build graphql handler: %w", err)
	}
	s.router.Post("/graphql", h.ServeHTTP)
	return nil
}

// jsonHandler sets the JSON content type before delegating, mirroring
// pkg/server/server.go's jsonContentType wrapper.
func (s *Server) jsonHandler(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.cache.Stats()
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	names := s.files.Names()
	stats := s.cache.Stats()

	type fileInfo struct {
		Name   string `json:"name"`
		Status string `json:"status"`
		Dirty  int    `json:"dirtyBlocks"`
	}
	out := make([]fileInfo, 0, len(names))
	for _, name := range names {
		status := "normal"
		if h, ok := s.files.Lookup(name); ok && h.Status() == blockcache.StatusCompactOld {
			status = "compactOld"
		}
		out = append(out, fileInfo{Name: name, Status: status, Dirty: stats.DirtyPerFile[name]})
	}
	json.NewEncoder(w).Encode(out)
}

func (s *Server) lookupFile(w http.ResponseWriter, r *http.Request) (*filemgr.Handle, bool) {
	name := chi.URLParam(r, "file")
	h, ok := s.files.Lookup(name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "file not tracked: " + name})
		return nil, false
	}
	return h, true
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupFile(w, r)
	if !ok {
		return
	}
	if err := s.cache.Flush(h); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "flushed"})
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupFile(w, r)
	if !ok {
		return
	}

	mode := r.URL.Query().Get("mode")
	var err error
	switch mode {
	case "", "dirty":
		err = s.cache.DiscardDirty(h)
	case "clean":
		err = s.cache.DiscardClean(h)
	default:
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "mode must be dirty or clean"})
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "discarded"})
}

func (s *Server) handleDropFile(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupFile(w, r)
	if !ok {
		return
	}
	if err := s.cache.DropFile(h); err != nil {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	if err := s.files.Close(h.Name()); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "dropped"})
}

// corsMiddleware mirrors pkg/server/server.go's corsMiddleware.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.cfg.AllowedOrigins) > 0 {
			origin = s.cfg.AllowedOrigins[0]
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestSize)
		next.ServeHTTP(w, r)
	})
}

// Start runs the server until Shutdown stops it (returning nil) or the
// server errors, mirroring pkg/server/server.go's Start.
func (s *Server) Start() error {
	logger.Printf("listening on %s", s.httpSrv.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("cacheserver: %w", err)
			return
		}
		errCh <- nil
	}()
	return <-errCh
}

// Shutdown gracefully stops the HTTP server and the stats stream.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stream.close()
	return s.httpSrv.Shutdown(ctx)
}
