package celrix

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/celrix/celrix-go/wire"
)

// interruptDeadline is a deadline in the past, used to unblock I/O.
var interruptDeadline = time.Unix(1, 0)

// Session is one connection to a server speaking one protocol.
//
// Do sends a command and reads exactly one response. Calls are serialized by
// a mutex: there is never more than one request in flight. After an error
// that leaves the stream in an unknown state the session closes itself and
// every later call returns wire.ErrSessionClosed.
type Session struct {
	conn     net.Conn
	addr     string
	protocol Protocol
	codec    codec
	reader   *bufio.Reader
	writer   *bufio.Writer
	logger   *slog.Logger
	metrics  *sessionMetrics

	mu        sync.Mutex // serializes exchanges
	requestID atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to cfg.Addr() and returns a session speaking cfg.Protocol.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	addr := cfg.Addr()
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &wire.ConnectionError{Op: "dial", Addr: addr, Err: err}
	}

	s := NewSession(conn, cfg)
	s.logger.Debug("celrix: session opened", "addr", addr, "protocol", cfg.Protocol.String())
	return s, nil
}

// NewSession wraps an established connection. Only cfg.Protocol,
// cfg.MaxDepth, cfg.Logger and cfg.Metrics are used.
func NewSession(conn net.Conn, cfg Config) *Session {
	addr := ""
	if ra := conn.RemoteAddr(); ra != nil {
		addr = ra.String()
	}

	return &Session{
		conn:     conn,
		addr:     addr,
		protocol: cfg.Protocol,
		codec:    newCodec(cfg.Protocol, cfg.maxDepth()),
		reader:   bufio.NewReader(conn),
		writer:   bufio.NewWriter(conn),
		logger:   cfg.logger(),
		metrics:  newSessionMetrics(cfg.Metrics, cfg.Protocol),
	}
}

// Addr returns the remote address.
func (s *Session) Addr() string {
	return s.addr
}

// Protocol returns the wire format of the session.
func (s *Session) Protocol() Protocol {
	return s.protocol
}

// LastRequestID returns the ID of the last binary request sent, 0 before the
// first one. Text sessions never advance it.
func (s *Session) LastRequestID() uint64 {
	return s.requestID.Load()
}

// IsClosed reports whether the session was closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Do sends cmd and returns the decoded response.
//
// A server-reported error is returned as a wire.Error value, not as an error.
// Invalid commands are rejected before anything is written. The context
// deadline applies to the whole exchange; if ctx is done before the response
// has been read in full the session is closed and ctx.Err() is returned.
func (s *Session) Do(ctx context.Context, cmd wire.Command) (wire.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := wire.Validate(cmd); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, wire.ErrSessionClosed
	}

	start := time.Now()
	v, err := s.exchange(ctx, cmd)
	s.metrics.observe(cmd.Name(), start, err)
	return v, err
}

// exchange must be called with mu held.
func (s *Session) exchange(ctx context.Context, cmd wire.Command) (wire.Value, error) {
	deadline, _ := ctx.Deadline() // zero value clears a previous deadline
	if err := s.conn.SetDeadline(deadline); err != nil {
		err = &wire.ConnectionError{Op: "deadline", Addr: s.addr, Err: err}
		s.fail(cmd, err)
		return nil, err
	}

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetDeadline(interruptDeadline)
		close(interrupted)
	})

	var requestID uint64
	if s.protocol == ProtocolBinary {
		requestID = s.requestID.Add(1)
	}

	err := s.codec.send(s.writer, requestID, cmd)

	var (
		gotID uint64
		v     wire.Value
	)
	if err == nil {
		gotID, v, err = s.codec.receive(s.reader)
	}

	if !stop() {
		<-interrupted
		if err != nil {
			// ctx fired mid-exchange, the stream position is unknown.
			s.fail(cmd, ctx.Err())
			return nil, ctx.Err()
		}
		// The response arrived in full; the next exchange resets the deadline.
	}

	if err != nil {
		if wire.ShouldCloseConnection(err) {
			s.fail(cmd, err)
		}
		return nil, err
	}

	if s.protocol == ProtocolBinary && gotID != requestID {
		s.logger.Debug("celrix: response request id mismatch",
			"addr", s.addr, "command", cmd.Name(), "sent", requestID, "received", gotID)
	}

	return v, nil
}

// fail closes the session after a fatal error.
func (s *Session) fail(cmd wire.Command, err error) {
	if s.closed.Load() {
		return
	}
	name := ""
	if cmd != nil {
		name = cmd.Name()
	}
	s.logger.Warn("celrix: closing session after fatal error",
		"addr", s.addr, "command", name, "error", err)
	s.shutdown()
}

// Close half-closes the write side, then releases the connection.
// It is safe to call more than once; later calls return the first result.
func (s *Session) Close() error {
	s.shutdown()
	return s.closeErr
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if cw, ok := s.conn.(interface{ CloseWrite() error }); ok {
			_ = cw.CloseWrite()
		}
		s.closeErr = s.conn.Close()
		s.metrics.sessionClosed()
		s.logger.Debug("celrix: session closed", "addr", s.addr)
	})
}
