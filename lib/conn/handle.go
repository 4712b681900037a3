package conn

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	plog = logger.GetLogger("conn")

	// ErrClosed is returned when acquiring a session from a closed handle
	ErrClosed = errors.New("conn: client is not connected")
)

// Dialer establishes a new cluster session
type Dialer func(ctx context.Context) (protocol.Client, error)

// --------------------------------------------------------------------------
// Session
// --------------------------------------------------------------------------

// Session is a reference counted cluster session. The protocol client is closed once the
// session was retired from its handle and the last reference was released.
type Session struct {
	client  protocol.Client
	refs    atomic.Int64
	retired atomic.Bool
	once    sync.Once
	closeFn func() error
}

func newSession(client protocol.Client) *Session {
	s := &Session{client: client}
	s.closeFn = client.Close
	return s
}

// Client returns the protocol client of the session
func (s *Session) Client() protocol.Client {
	return s.client
}

// Info returns the connection details of the session
func (s *Session) Info() protocol.ConnectionInfo {
	return s.client.Info()
}

// Release drops a reference obtained from Handle.Acquire
func (s *Session) Release() {
	if s.refs.Add(-1) == 0 && s.retired.Load() {
		s.shutdown()
	}
}

// retire marks the session as no longer reachable from its handle
func (s *Session) retire() {
	s.retired.Store(true)
	if s.refs.Load() == 0 {
		s.shutdown()
	}
}

func (s *Session) shutdown() {
	s.once.Do(func() {
		if err := s.closeFn(); err != nil {
			plog.Warningf("closing session failed: %v", err)
			return
		}
		plog.Debugf("session closed")
	})
}

// --------------------------------------------------------------------------
// Handle
// --------------------------------------------------------------------------

// Handle is the swappable slot holding the active session. The mutex is held only to
// read or replace the slot, never during a network call.
type Handle struct {
	mu      sync.Mutex
	session *Session
}

// NewHandle wraps an established client
func NewHandle(client protocol.Client) *Handle {
	h := &Handle{}
	if client != nil {
		h.session = newSession(client)
	}
	return h
}

// Dial establishes a session with dial and returns a handle holding it
func Dial(ctx context.Context, dial Dialer) (*Handle, error) {
	client, err := dial(ctx)
	if err != nil {
		return nil, err
	}
	return NewHandle(client), nil
}

// Acquire returns the current session with an extra reference. Callers must call
// Session.Release once their operation finished.
func (h *Handle) Acquire() (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return nil, ErrClosed
	}
	h.session.refs.Add(1)
	return h.session, nil
}

// IsConnected reports whether the handle holds a session
func (h *Handle) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session != nil
}

// Swap installs client as the new session. The previous session is closed after its
// in-flight operations finished.
func (h *Handle) Swap(client protocol.Client) {
	next := newSession(client)

	h.mu.Lock()
	prev := h.session
	h.session = next
	h.mu.Unlock()

	if prev != nil {
		prev.retire()
	}
	plog.Infof("session swapped")
}

// Reconnect dials a new session and swaps it in. On failure the old session stays.
func (h *Handle) Reconnect(ctx context.Context, dial Dialer) error {
	client, err := dial(ctx)
	if err != nil {
		return err
	}
	h.Swap(client)
	return nil
}

// Close empties the slot. New operations fail with ErrClosed, running ones complete.
func (h *Handle) Close() {
	h.mu.Lock()
	prev := h.session
	h.session = nil
	h.mu.Unlock()

	if prev != nil {
		prev.retire()
		plog.Infof("handle closed")
	}
}
