package testutils

import (
	"bytes"
	"net"
	"sync"
	"time"

	"github.com/celrix/celrix-go/resp"
	"github.com/celrix/celrix-go/vcp"
	"github.com/celrix/celrix-go/wire"
)

// ConnectionMock is a mock implementation of net.Conn for testing.
// Reads are served from canned response bytes; writes are recorded.
type ConnectionMock struct {
	mu          sync.Mutex
	readBuf     *bytes.Buffer
	writeBuf    *bytes.Buffer
	closed      bool
	writeClosed bool
	deadline    time.Time
	readErr     error
	writeErr    error
}

// NewConnectionMock creates a new mock connection with pre-configured response data.
func NewConnectionMock(responseData ...[]byte) *ConnectionMock {
	return &ConnectionMock{
		readBuf:  bytes.NewBuffer(bytes.Join(responseData, nil)),
		writeBuf: &bytes.Buffer{},
	}
}

// FailReads makes every read return err once the canned data is consumed.
func (m *ConnectionMock) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// FailWrites makes every write return err.
func (m *ConnectionMock) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *ConnectionMock) Read(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	if m.readBuf.Len() == 0 && m.readErr != nil {
		return 0, m.readErr
	}
	return m.readBuf.Read(b)
}

func (m *ConnectionMock) Write(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.writeClosed {
		return 0, net.ErrClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	return m.writeBuf.Write(b)
}

func (m *ConnectionMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// CloseWrite mirrors (*net.TCPConn).CloseWrite.
func (m *ConnectionMock) CloseWrite() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeClosed = true
	return nil
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6380}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadline = t
	return nil
}

func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }

// Deadline returns the last deadline set with SetDeadline.
func (m *ConnectionMock) Deadline() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadline
}

// IsClosed reports whether Close was called.
func (m *ConnectionMock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// IsWriteClosed reports whether CloseWrite was called.
func (m *ConnectionMock) IsWriteClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeClosed
}

// GetWrittenRequest returns the raw request bytes written to the mock connection.
func (m *ConnectionMock) GetWrittenRequest() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.writeBuf.Bytes())
}

// BinaryResponse encodes v as a response frame carrying requestID.
// It panics on values with no binary encoding.
func BinaryResponse(requestID uint64, v wire.Value) []byte {
	op, payload, err := vcp.EncodeResponse(v)
	if err != nil {
		panic(err)
	}
	return vcp.EncodeFrame(op, payload, requestID)
}

// TextResponse encodes v in the text protocol.
func TextResponse(v wire.Value) []byte {
	return resp.AppendValue(nil, v)
}
