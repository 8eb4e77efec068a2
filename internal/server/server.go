package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/cardroom/blackjackd/internal/engine"
)

// Server exposes the blackjack engine over HTTP (the polling read/write API
// the frontend uses) and WebSocket (a push event stream for clients that
// would rather not poll).
type Server struct {
	addr        string
	engine      *engine.Engine
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	httpServer  *http.Server
}

// NewServer creates a server around an engine. It subscribes to the engine's
// event bus so resolutions are pushed to WebSocket subscribers.
func NewServer(addr string, eng *engine.Engine, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:   addr,
		engine: eng,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
	}

	eng.Bus().Subscribe(s)
	return s
}

// Start runs the HTTP server until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
	}

	s.logger.Info("Starting server", "addr", s.addr)

	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Stop shuts the server down and closes all WebSocket connections.
func (s *Server) Stop() {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close() // Ignore close errors during shutdown
	}
	s.connections = make(map[*Connection]bool)
	s.mu.Unlock()
}

// Router builds the HTTP routes. Exposed separately so tests can drive the
// API through httptest without a listener.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/fee", s.handleFee)
		r.Route("/game/{player}", func(r chi.Router) {
			r.Get("/", s.handleGameState)
			r.Post("/start", s.handleStartGame)
			r.Post("/draw", s.handleDrawCard)
			r.Post("/reset", s.handleResetGame)
		})
	})

	return r
}

// OnEvent implements engine.EventSubscriber: engine events are fanned out to
// the WebSocket connections subscribed to the affected player.
func (s *Server) OnEvent(event engine.GameEvent) {
	msg, player, err := messageFromEvent(event)
	if err != nil {
		s.logger.Error("Failed to encode event", "type", event.EventType(), "error", err)
		return
	}
	if msg == nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.Player() == player {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error("Failed to send event to client", "error", err, "player", player)
			}
		}
	}
}

// handleWebSocket upgrades the connection and subscribes it to a player's
// event stream.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("player")
	if player == "" {
		http.Error(w, "missing player query parameter", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, player, s.logger)

	s.mu.Lock()
	s.connections[client] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "player", player, "total", total)

	client.Start()

	go func() {
		<-client.ctx.Done()
		s.mu.Lock()
		delete(s.connections, client)
		total := len(s.connections)
		s.mu.Unlock()
		s.logger.Info("Client disconnected", "player", player, "total", total)
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}
