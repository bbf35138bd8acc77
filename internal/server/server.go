// Package server streams live thermodynamic samples to websocket
// clients while a run is in progress.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/softmatterlab/mdrun/internal/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server implements sim.Observer and fans every sample out to all
// connected websocket clients as a JSON message.
type Server struct {
	addr string
	log  *slog.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
	last    *engine.Sample

	httpSrv *http.Server
}

func New(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:    addr,
		log:     logger,
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Start serves websocket connections on /ws until the context ends.
// It returns once the listener is shut down.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.httpSrv = &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		<-ctx.Done()
		s.httpSrv.Close()
	}()

	s.log.Info("live server listening", "addr", s.addr)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	connMu := &sync.Mutex{}
	s.mu.Lock()
	s.clients[conn] = connMu
	last := s.last
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	if last != nil {
		connMu.Lock()
		conn.WriteJSON(last)
		connMu.Unlock()
	}

	// Drain the connection so pings and close frames are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// OnSample broadcasts one sample to every client. Write failures drop
// the client.
func (s *Server) OnSample(sample engine.Sample) {
	s.mu.Lock()
	s.last = &sample
	s.mu.Unlock()

	s.mu.RLock()
	var failed []*websocket.Conn
	for conn, connMu := range s.clients {
		connMu.Lock()
		err := conn.WriteJSON(sample)
		connMu.Unlock()
		if err != nil {
			conn.Close()
			failed = append(failed, conn)
		}
	}
	s.mu.RUnlock()

	if len(failed) > 0 {
		s.mu.Lock()
		for _, conn := range failed {
			delete(s.clients, conn)
		}
		s.mu.Unlock()
	}
}

// ClientCount reports the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
