package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/extstore/internal/config"
	"github.com/vango-dev/extstore/pkg/middleware"
	"github.com/vango-dev/extstore/pkg/reactive"
)

// RootFactory builds the component tree of one page or session.
type RootFactory func(opts ...reactive.RootOption) *reactive.Root

// Server serves the application page and its WebSocket sessions.
type Server struct {
	config   *config.Config
	newRoot  RootFactory
	sessions *SessionManager
	upgrader websocket.Upgrader

	metrics  *middleware.Metrics
	gatherer prometheus.Gatherer
	tracing  *middleware.Tracing
	logger   *slog.Logger

	router     chi.Router
	routerOnce sync.Once

	mu         sync.Mutex
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records session and store metrics to m. When gatherer is
// not nil it is served on the configured metrics path.
func WithMetrics(m *middleware.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithTracing traces events and store writes.
func WithTracing(t *middleware.Tracing) Option {
	return func(s *Server) {
		s.tracing = t
	}
}

// WithCheckOrigin sets the WebSocket origin check.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// New creates a server for the trees built by newRoot.
func New(cfg *config.Config, newRoot RootFactory, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Server{
		config:  cfg,
		newRoot: newRoot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")

	s.sessions = newSessionManager(cfg.Session.MaxSessions, sessionConfig{
		maxQueue: cfg.Session.MaxEventQueue,
		newRoot:  newRoot,
		metrics:  s.metrics,
		tracing:  s.tracing,
	}, s.logger)

	return s
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	s.routerOnce.Do(func() {
		s.router = s.routes()
	})
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handlePage)
	r.Get("/ws", s.HandleWebSocket)
	r.Get("/client.js", s.serveClient)
	r.Head("/client.js", s.serveClient)
	r.Get("/healthz", s.handleHealth)

	if s.config.Metrics.Enabled && s.gatherer != nil {
		r.Method(http.MethodGet, s.config.Metrics.Path,
			promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// logRequests logs plain HTTP requests. Upgraded connections are logged by
// their session.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

// HandleWebSocket upgrades the request and starts a session on it.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		if s.metrics != nil {
			s.metrics.RecordWebSocketError("upgrade")
		}
		return
	}
	conn.SetReadLimit(s.config.Session.MaxMessageSize)
	defer reactive.ReleaseGoroutine()

	session, err := s.sessions.Create(conn)
	if err != nil {
		s.logger.Warn("session rejected", "error", err)
		s.reject(conn, err)
		return
	}
	if err := session.Start(); err != nil {
		s.logger.Error("session start failed", "session_id", session.ID, "error", err)
		session.sendError(err)
		session.Close()
	}
}

// reject sends an error frame on a connection that has no session and
// closes it.
func (s *Server) reject(conn *websocket.Conn, err error) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	conn.WriteJSON(errorFrame(err))
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "session limit reached"),
		time.Now().Add(time.Second))
	conn.Close()
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down within the configured timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", srv.Addr, "url", s.config.URL())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout())
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests and closes every session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	var httpErr error
	if srv != nil {
		httpErr = srv.Shutdown(ctx)
	}
	if err := s.sessions.Shutdown(ctx); err != nil {
		return err
	}
	return httpErr
}
