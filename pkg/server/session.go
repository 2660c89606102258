package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/gorilla/websocket"

	exterrors "github.com/vango-dev/extstore/internal/errors"
	"github.com/vango-dev/extstore/pkg/middleware"
	"github.com/vango-dev/extstore/pkg/reactive"
	"github.com/vango-dev/extstore/pkg/store"
)

// writeTimeout bounds every frame written to the client.
const writeTimeout = 10 * time.Second

// Event is a queued client event.
type Event struct {
	Target string
	Value  string
}

// Session is one WebSocket connection and the component tree it drives.
//
// Events are queued by the read loop and run one at a time by the event
// loop, which is the only goroutine touching the tree after Start.
type Session struct {
	ID        string
	CreatedAt time.Time

	conn    *websocket.Conn
	root    *reactive.Root
	logger  *slog.Logger
	metrics *middleware.Metrics
	tracing *middleware.Tracing

	mu       sync.Mutex
	events   *queue.Queue
	maxQueue int
	wake     chan struct{}

	writeMu sync.Mutex
	closed  atomic.Bool
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	onClose func(*Session)

	// eventCtx is the context of the event being handled. Store observers
	// read it to parent their spans.
	eventCtx context.Context
}

type sessionConfig struct {
	maxQueue int
	newRoot  RootFactory
	logger   *slog.Logger
	metrics  *middleware.Metrics
	tracing  *middleware.Tracing
}

func newSession(id string, conn *websocket.Conn, cfg sessionConfig) *Session {
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		conn:      conn,
		logger:    logger.With("session_id", id),
		metrics:   cfg.metrics,
		tracing:   cfg.tracing,
		events:    queue.New(),
		maxQueue:  cfg.maxQueue,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		eventCtx:  context.Background(),
	}
	if cfg.newRoot != nil {
		s.root = cfg.newRoot(
			reactive.WithLogger(s.logger),
			reactive.WithSetup(func(o *reactive.Owner) {
				store.ProvideDefaults(o, s.storeOptions()...)
			}),
		)
	}
	return s
}

// storeOptions are applied to every store provided in the session's tree.
func (s *Session) storeOptions() []store.Option {
	opts := []store.Option{store.WithLogger(s.logger)}
	if s.metrics != nil {
		opts = append(opts, store.WithObserver(s.metrics))
	}
	if s.tracing != nil {
		opts = append(opts, store.WithObserver(s.tracing.StoreObserver(func() context.Context {
			return s.eventCtx
		})))
	}
	return opts
}

// Root returns the session's component tree.
func (s *Session) Root() *reactive.Root {
	return s.root
}

// IsClosed reports whether Close has been called.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Start mounts the tree, sends the hello frame and starts the session
// loops. It returns once the loops are running.
func (s *Session) Start() error {
	if err := s.root.Mount(); err != nil {
		s.root.Dispose()
		close(s.stopped)
		return err
	}
	if err := s.send(helloFrame(s.ID, s.root.HTML())); err != nil {
		s.root.Dispose()
		close(s.stopped)
		return err
	}

	go s.readLoop()
	go s.eventLoop()
	return nil
}

// QueueEvent appends e to the session's event queue.
func (s *Session) QueueEvent(e Event) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.maxQueue > 0 && s.events.Length() >= s.maxQueue {
		s.mu.Unlock()
		return exterrors.New("E061").WithDetailf("%d events already queued", s.maxQueue)
	}
	s.events.Add(e)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued events.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.Length()
}

func (s *Session) next() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events.Length() == 0 {
		return Event{}, false
	}
	return s.events.Remove().(Event), true
}

// readLoop decodes client frames and queues their events until the
// connection fails or the session closes.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				s.logger.Warn("message too large, closing session")
				s.recordWebSocketError("message_size")
				return
			}
			if !s.closed.Load() && websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
				s.recordWebSocketError("read")
			}
			return
		}

		frame, err := decodeClientFrame(msg)
		if err != nil {
			s.logger.Warn("invalid frame", "error", err)
			s.recordWebSocketError("decode")
			s.sendError(err)
			continue
		}

		if err := s.QueueEvent(Event{Target: frame.Target, Value: frame.Value}); err != nil {
			s.logger.Warn("event dropped", "target", frame.Target, "error", err)
			s.sendError(err)
		}
	}
}

// eventLoop runs queued events in order. It owns the tree and disposes it
// when the session closes.
func (s *Session) eventLoop() {
	defer close(s.stopped)
	defer reactive.ReleaseGoroutine()
	defer s.root.Dispose()

	for {
		select {
		case <-s.wake:
			for {
				e, ok := s.next()
				if !ok {
					break
				}
				s.handleEvent(e)
				if s.closed.Load() {
					return
				}
			}

		case <-s.done:
			return
		}
	}
}

func (s *Session) handleEvent(e Event) {
	start := time.Now()

	ctx, end := context.Background(), func(int, error) {}
	if s.tracing != nil {
		ctx, end = s.tracing.StartEvent(ctx, s.ID, e.Target, e.Value)
	}
	s.eventCtx = ctx
	patches, err := s.dispatch(e)
	s.eventCtx = context.Background()
	end(len(patches), err)

	if s.metrics != nil {
		s.metrics.RecordEvent(time.Since(start), err)
		s.metrics.RecordPatches(len(patches))
	}

	if len(patches) > 0 {
		s.send(patchFrame(patches))
	}
	if err != nil {
		s.logger.Warn("event failed", "target", e.Target, "error", err)
		s.sendError(err)
	}
}

// dispatch runs the handler and flushes the re-renders it caused. A failed
// handler may still have written to a store, so the flush always runs.
func (s *Session) dispatch(e Event) ([]reactive.Patch, error) {
	err := s.root.Dispatch(e.Target, e.Value)
	patches, flushErr := s.root.Flush()
	if err == nil {
		err = flushErr
	}
	return patches, err
}

func (s *Session) send(f ServerFrame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(f); err != nil {
		s.logger.Error("write error", "frame", f.Type, "error", err)
		s.recordWebSocketError("write")
		return err
	}
	return nil
}

// sendError reports err to the client. Write failures are logged and
// counted by send; on a closed session the frame is dropped.
func (s *Session) sendError(err error) {
	if s.closed.Load() {
		s.logger.Debug("error frame dropped, session closed", "error", err)
		return
	}
	s.send(errorFrame(err))
}

// Close stops the session loops and closes the connection. It is safe to
// call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		s.writeMu.Lock()
		s.mu.Lock()
		s.closed.Store(true)
		s.mu.Unlock()
		close(s.done)

		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.conn.Close()
		s.writeMu.Unlock()

		s.logger.Info("session closed")
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

// Wait blocks until the event loop has exited and the tree is disposed, or
// ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) recordWebSocketError(kind string) {
	if s.metrics != nil {
		s.metrics.RecordWebSocketError(kind)
	}
}
