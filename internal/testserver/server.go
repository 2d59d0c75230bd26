// Package testserver runs an in-process CELRIX server for tests.
//
// One listener speaks both protocols: a connection whose first byte is the
// binary magic is served as VCP, anything else as the text protocol.
package testserver

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/celrix/celrix-go/resp"
	"github.com/celrix/celrix-go/vcp"
	"github.com/celrix/celrix-go/wire"
)

// HandlerFunc answers one command. Returning nil falls back to the store.
type HandlerFunc func(cmd wire.Command) wire.Value

// Server is a fake server bound to 127.0.0.1 on a random port.
type Server struct {
	ln      net.Listener
	store   *Store
	logger  *slog.Logger
	handler atomic.Pointer[HandlerFunc]

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool

	commands atomic.Uint64
	wg       sync.WaitGroup
}

// Start starts a server and registers its shutdown with t.Cleanup.
func Start(t testing.TB) *Server {
	t.Helper()

	s, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("testserver: listen: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Listen starts a server on addr.
func Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		ln:     ln,
		store:  NewStore(),
		logger: slog.Default(),
		conns:  make(map[net.Conn]struct{}),
	}

	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Host returns the listening host.
func (s *Server) Host() string {
	return s.ln.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listening port.
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Store returns the server state.
func (s *Server) Store() *Store {
	return s.store
}

// Commands returns how many commands were served.
func (s *Server) Commands() uint64 {
	return s.commands.Load()
}

// Handle installs fn in front of the store; nil removes it.
func (s *Server) Handle(fn HandlerFunc) {
	if fn == nil {
		s.handler.Store(nil)
		return
	}
	s.handler.Store(&fn)
}

// DropConnections closes every open connection, keeping the listener.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

// Close stops accepting, closes every connection and waits for handlers.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	err := s.ln.Close()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	first, err := r.Peek(1)
	if err != nil {
		return
	}

	if first[0] == vcp.Magic[0] {
		err = s.serveBinary(r, w)
	} else {
		err = s.serveText(r, w)
	}

	if err != nil && !errors.Is(err, wire.ErrConnectionClosed) {
		s.logger.Debug("testserver: connection ended", "remote", conn.RemoteAddr().String(), "error", err)
	}
}

func (s *Server) serveBinary(r *bufio.Reader, w *bufio.Writer) error {
	for {
		hdr, err := vcp.ReadHeader(r)
		if err != nil {
			return err
		}
		payload, err := vcp.ReadPayload(r, hdr.PayloadLen)
		if err != nil {
			return err
		}

		// The whole frame was read, a bad command only costs an error reply.
		var v wire.Value
		if cmd, err := vcp.DecodeCommand(hdr.Opcode, payload); err != nil {
			v = wire.Error("ERR " + err.Error())
		} else {
			v = s.exec(cmd)
		}

		if err := vcp.WriteResponse(w, hdr.RequestID, v); err != nil {
			return err
		}
	}
}

func (s *Server) serveText(r *bufio.Reader, w *bufio.Writer) error {
	for {
		cmd, err := resp.ReadCommand(r)
		if err != nil {
			var perr *wire.ParseError
			if errors.As(err, &perr) {
				_ = resp.WriteValue(w, wire.Error("ERR "+perr.Message))
			}
			return err
		}

		if err := resp.WriteValue(w, s.exec(cmd)); err != nil {
			return err
		}
	}
}

func (s *Server) exec(cmd wire.Command) wire.Value {
	s.commands.Add(1)
	if fn := s.handler.Load(); fn != nil {
		if v := (*fn)(cmd); v != nil {
			return v
		}
	}
	return s.store.Exec(cmd)
}
