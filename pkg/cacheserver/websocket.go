package cacheserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mnohosten/blockcache/pkg/blockcache"
)

// upgrader mirrors pkg/server/handlers/websocket.go's upgrader: fixed
// buffer sizes, origin check left permissive for an admin tool run behind
// an operator's own reverse proxy.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const statsPushInterval = 2 * time.Second

// statsStream pushes a Stats snapshot to every connected client on a
// fixed interval. The teacher's change-stream websocket pushes one event
// per committed write; a cache has no comparable discrete event log, so
// this polls Cache.Stats() instead of hooking every list mutation,
// trading immediacy for not having to thread a notification channel
// through every internal list operation.
type statsStream struct {
	cache *blockcache.Cache

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	cancel context.CancelFunc
}

func newStatsStream(cache *blockcache.Cache) *statsStream {
	ctx, cancel := context.WithCancel(context.Background())
	s := &statsStream{
		cache:  cache,
		conns:  make(map[*websocket.Conn]struct{}),
		cancel: cancel,
	}
	go s.broadcastLoop(ctx)
	return s
}

func (s *statsStream) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(statsPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := s.cache.Stats()

			s.mu.Lock()
			for conn := range s.conns {
				if err := conn.WriteJSON(stats); err != nil {
					conn.Close()
					delete(s.conns, conn)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *statsStream) add(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *statsStream) remove(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *statsStream) close() {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = make(map[*websocket.Conn]struct{})
}

// handleStatsStream upgrades the connection and registers it for periodic
// stats pushes until the client disconnects.
func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Printf("stats stream upgrade failed: %v", err)
		return
	}
	s.stream.add(conn)
	defer func() {
		s.stream.remove(conn)
		conn.Close()
	}()

	// Send an immediate snapshot so the client doesn't wait a full
	// interval for its first frame.
	if err := conn.WriteJSON(s.cache.Stats()); err != nil {
		return
	}

	// Drain and discard client messages; a closed connection is the only
	// control signal this read-only stream needs to detect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
