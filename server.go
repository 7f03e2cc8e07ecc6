package recordwire

import (
	"context"
	"log/slog"
	"math/rand"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Handler receives every record the server decodes.
type Handler interface {
	// HandleRecord is called once per connection after a whole frame has
	// been read. The connection is closed when it returns.
	HandleRecord(ctx context.Context, rec Record, remote net.Addr) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, rec Record, remote net.Addr) error

// HandleRecord calls f.
func (f HandlerFunc) HandleRecord(ctx context.Context, rec Record, remote net.Addr) error {
	return f(ctx, rec, remote)
}

// State is the acceptor state.
type State int32

const (
	StateListening State = iota
	StateHandling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateHandling:
		return "handling"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats counts acceptor outcomes.
type Stats struct {
	Accepted      uint64
	Received      uint64
	AcceptErrors  uint64
	HandlerErrors uint64
	Failures      map[ErrorKind]uint64
}

const (
	defaultBackoffBase = 5 * time.Millisecond
	defaultBackoffMax  = time.Second
)

// Server accepts connections and reads one record from each.
type Server struct {
	listener net.Listener
	logger   Logger
	workers  int

	backoffBase time.Duration
	backoffMax  time.Duration

	readTimeout  atomic.Int64
	writeTimeout atomic.Int64

	state    atomic.Int32
	stopOnce sync.Once
	stopped  chan struct{} // closed once shutdown begins

	mu    sync.Mutex
	stats Stats
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// ServerLoggerOption sets the logger for the server and its connections.
func ServerLoggerOption(logger Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WorkersOption sets how many connections are handled at once.
// One (the default) services connections strictly in sequence.
func WorkersOption(n int) ServerOption {
	return func(s *Server) {
		s.workers = n
	}
}

// ServerTimeoutsOption sets the per-connection read and write deadlines.
func ServerTimeoutsOption(read, write time.Duration) ServerOption {
	return func(s *Server) {
		s.SetTimeouts(read, write)
	}
}

// AcceptBackoffOption sets the delay bounds used after a failed accept.
func AcceptBackoffOption(base, max time.Duration) ServerOption {
	return func(s *Server) {
		s.backoffBase = base
		s.backoffMax = max
	}
}

// Listen binds a TCP listener on addr with the given accept backlog.
func Listen(addr string, backlog int, opts ...ServerOption) (*Server, error) {
	if backlog <= 0 {
		return nil, &ConfigError{Field: "backlog", Reason: "must be positive"}
	}

	l, err := listenTCP(addr, backlog)
	if err != nil {
		return nil, err
	}

	return NewServer(l, opts...), nil
}

// NewServer wraps an already bound listener.
func NewServer(l net.Listener, opts ...ServerOption) *Server {
	s := &Server{
		listener:    l,
		logger:      slog.Default(),
		workers:     1,
		backoffBase: defaultBackoffBase,
		backoffMax:  defaultBackoffMax,
		stopped:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.workers < 1 {
		s.workers = 1
	}
	if s.backoffBase <= 0 {
		s.backoffBase = defaultBackoffBase
	}
	if s.backoffMax < s.backoffBase {
		s.backoffMax = s.backoffBase
	}

	s.state.Store(int32(StateListening))
	return s
}

// SetTimeouts changes the deadlines applied to connections accepted from
// now on. Zero disables a deadline.
func (s *Server) SetTimeouts(read, write time.Duration) {
	s.readTimeout.Store(int64(read))
	s.writeTimeout.Store(int64(write))
}

// AcceptOnce waits for the next connection.
// Failures are returned as *AcceptError.
func (s *Server) AcceptOnce() (*Conn, error) {
	raw, err := s.listener.Accept()
	if err != nil {
		return nil, &AcceptError{Err: err}
	}

	if tcp, ok := raw.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	s.mu.Lock()
	s.stats.Accepted++
	s.mu.Unlock()

	return NewConn(raw,
		LoggerOption(s.logger),
		ReadTimeoutOption(time.Duration(s.readTimeout.Load())),
		WriteTimeoutOption(time.Duration(s.writeTimeout.Load())),
	), nil
}

// Serve accepts connections until ctx is canceled or Close is called.
// Each connection delivers one record to h and is then closed. Accept and
// per-connection failures are logged and never stop the loop. On shutdown
// the listener is closed and Serve waits for in-flight handlers, which run
// under a context that is not canceled by the shutdown.
func (s *Server) Serve(ctx context.Context, h Handler) error {
	s.logger.Info("server started", "addr", s.Addr().String(), "workers", s.workers)

	stop := context.AfterFunc(ctx, func() {
		_ = s.shutdown()
	})
	defer stop()

	handleCtx := context.WithoutCancel(ctx)

	group := new(errgroup.Group)
	if s.workers > 1 {
		group.SetLimit(s.workers)
	}

	b := newBackoff(s.backoffBase, s.backoffMax)
	for {
		if s.isShutdown() {
			return s.finish(ctx, group)
		}

		conn, err := s.AcceptOnce()
		if err != nil {
			if s.isShutdown() {
				return s.finish(ctx, group)
			}
			if errors.Is(err, net.ErrClosed) {
				s.logger.Error("listener closed unexpectedly", "addr", s.Addr().String(), "error", err)
				_ = s.finish(ctx, group)
				return err
			}

			s.mu.Lock()
			s.stats.AcceptErrors++
			s.mu.Unlock()

			s.logger.Error("accept error", "kind", KindAccept.String(), "error", err)
			b.wait(s.stopped)
			continue
		}
		b.reset()

		s.logger.Debug("accepted connection", "remote_addr", conn.addrString())

		if s.workers == 1 {
			s.state.CompareAndSwap(int32(StateListening), int32(StateHandling))
			s.handle(handleCtx, conn, h)
			s.state.CompareAndSwap(int32(StateHandling), int32(StateListening))
			continue
		}

		group.Go(func() error {
			s.handle(handleCtx, conn, h)
			return nil
		})
	}
}

// handle services one connection: receive, dispatch, close.
func (s *Server) handle(ctx context.Context, conn *Conn, h Handler) {
	remote := conn.addrString()
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.stats.HandlerErrors++
			s.mu.Unlock()
			s.logger.Error("handler panic", "remote_addr", remote, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	rec, err := conn.ReceiveRecord(ctx)
	if err != nil {
		kind := KindOf(err)
		s.mu.Lock()
		if s.stats.Failures == nil {
			s.stats.Failures = make(map[ErrorKind]uint64)
		}
		s.stats.Failures[kind]++
		s.mu.Unlock()

		s.logger.Warn("receive failed", "remote_addr", remote, "kind", kind.String(), "error", err)
		return
	}

	s.mu.Lock()
	s.stats.Received++
	s.mu.Unlock()

	if err := h.HandleRecord(ctx, rec, conn.Addr()); err != nil {
		s.mu.Lock()
		s.stats.HandlerErrors++
		s.mu.Unlock()
		s.logger.Warn("handler error", "remote_addr", remote, "id", rec.ID, "error", err)
	}
}

func (s *Server) finish(ctx context.Context, group *errgroup.Group) error {
	_ = group.Wait()
	s.state.Store(int32(StateStopped))
	s.logger.Info("server stopped", "addr", s.Addr().String())
	return ctx.Err()
}

func (s *Server) isShutdown() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// shutdown stops accepting and closes the listener exactly once.
func (s *Server) shutdown() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopped)
		err = s.listener.Close()
	})
	return err
}

// Close stops the server by closing the listener. A running Serve returns
// after in-flight handlers finish.
func (s *Server) Close() error {
	err := s.shutdown()
	s.state.Store(int32(StateStopped))
	return err
}

// State returns the current acceptor state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// Stats returns a snapshot of the counters.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.stats
	out.Failures = make(map[ErrorKind]uint64, len(s.stats.Failures))
	for k, v := range s.stats.Failures {
		out.Failures[k] = v
	}
	return out
}

// Addr returns the listener's network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// backoff spaces out retries after accept failures.
type backoff struct {
	base time.Duration
	max  time.Duration
	cur  time.Duration
}

func newBackoff(base, max time.Duration) *backoff { return &backoff{base: base, max: max} }

// wait sleeps for the next delay or until done is closed.
func (b *backoff) wait(done <-chan struct{}) {
	if b.cur <= 0 {
		b.cur = b.base
	} else {
		b.cur *= 2
		if b.cur > b.max {
			b.cur = b.max
		}
	}
	// jitter ~ +/-20%
	j := 0.8 + 0.4*rand.Float64()

	t := time.NewTimer(time.Duration(float64(b.cur) * j))
	defer t.Stop()
	select {
	case <-t.C:
	case <-done:
	}
}

func (b *backoff) reset() { b.cur = 0 }
