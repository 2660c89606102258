package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	exterrors "github.com/vango-dev/extstore/internal/errors"
)

// SessionManager tracks live sessions and enforces the session limit.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	maxSessions int
	config      sessionConfig
	logger      *slog.Logger
}

// newSessionManager creates a manager. maxSessions of zero means no limit.
func newSessionManager(maxSessions int, config sessionConfig, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	config.logger = logger
	return &SessionManager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		config:      config,
		logger:      logger.With("component", "session_manager"),
	}
}

// Create registers a new session for conn. The session is not started.
func (sm *SessionManager) Create(conn *websocket.Conn) (*Session, error) {
	sm.mu.Lock()
	if sm.closed {
		sm.mu.Unlock()
		return nil, ErrServerClosed
	}
	if sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions {
		sm.mu.Unlock()
		return nil, exterrors.New("E062").WithDetailf("limit is %d", sm.maxSessions)
	}

	session := newSession(uuid.NewString(), conn, sm.config)
	session.onClose = sm.remove
	sm.sessions[session.ID] = session
	count := len(sm.sessions)
	sm.mu.Unlock()

	if sm.config.metrics != nil {
		sm.config.metrics.RecordSessionOpen()
	}
	sm.logger.Info("session created",
		"session_id", session.ID,
		"active_sessions", count)

	return session, nil
}

func (sm *SessionManager) remove(s *Session) {
	sm.mu.Lock()
	_, ok := sm.sessions[s.ID]
	delete(sm.sessions, s.ID)
	sm.mu.Unlock()

	if ok && sm.config.metrics != nil {
		sm.config.metrics.RecordSessionClose()
	}
}

// Get returns a session by id, or nil.
func (sm *SessionManager) Get(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// ForEach calls fn for each session until fn returns false.
func (sm *SessionManager) ForEach(fn func(*Session) bool) {
	sm.mu.RLock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.RUnlock()

	for _, s := range sessions {
		if !fn(s) {
			return
		}
	}
}

// Shutdown closes every session, refuses new ones and waits for the
// session loops to exit or ctx to be done.
func (sm *SessionManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	sm.closed = true
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.Unlock()

	var wg sync.WaitGroup
	for _, session := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(session)
	}
	wg.Wait()

	for _, s := range sessions {
		if err := s.Wait(ctx); err != nil {
			sm.logger.Warn("session did not stop in time", "session_id", s.ID, "error", err)
			return err
		}
	}

	sm.logger.Info("session manager shutdown", "closed_sessions", len(sessions))
	return nil
}
