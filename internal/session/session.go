// Package session holds the NetBeans External Editor session state
// machine: authentication and startup gating, the monotonic command
// sequence counter, the single in-flight reply slot, and the queue of
// commands deferred until startup completes. It is owned and mutated
// exclusively by the goroutine that pumps the protocol engine.
package session

import (
	"log/slog"
	"sync"
)

// State names the session's position in the connection lifecycle.
type State int

const (
	StateListening State = iota
	StateConnectedUnauth
	StateAuthedWaitingStartup
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "LISTENING"
	case StateConnectedUnauth:
		return "CONNECTED_UNAUTH"
	case StateAuthedWaitingStartup:
		return "AUTHED_WAITING_STARTUP"
	case StateReady:
		return "READY"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// pendingReply is the single outstanding synchronous call's wait slot.
type pendingReply struct {
	sequence int
	tail     string
	filled   bool
}

// Session is the gating and bookkeeping state for one connected editor.
type Session struct {
	mu sync.Mutex

	state State

	sharedSecret    string
	authDone        bool
	startupDone     bool
	protocolVersion float64

	nextSeq int
	pending *pendingReply

	deferred []string

	logger *slog.Logger
}

// New creates a Session in the LISTENING state, gated on sharedSecret.
func New(sharedSecret string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		state:        StateListening,
		sharedSecret: sharedSecret,
		logger:       logger,
	}
}

// MarkConnected transitions LISTENING -> CONNECTED_UNAUTH once the
// listener has accepted the editor's TCP connection.
func (s *Session) MarkConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateConnectedUnauth
}

// Authenticate compares received against the shared secret. Authentication
// is one-shot. A mismatch is logged as an error but authDone is still set
// true and the connection is not dropped. Callers that want to reject
// mismatched auth must do so above this layer; this method never returns
// an error.
func (s *Session) Authenticate(received string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authDone {
		return
	}
	if received != s.sharedSecret {
		s.logger.Error("AUTH token mismatch, accepting connection anyway")
	}
	s.authDone = true
	s.state = StateAuthedWaitingStartup
}

// AuthDone reports whether authentication has completed.
func (s *Session) AuthDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authDone
}

// SetProtocolVersion records the editor's reported protocol version, or
// fails if it is below 2.0.
func (s *Session) SetProtocolVersion(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v < 2.0 {
		s.state = StateClosed
		return ErrVersionTooOld
	}
	s.protocolVersion = v
	return nil
}

// ProtocolVersion returns the last recorded version, or 0 if none yet.
func (s *Session) ProtocolVersion() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.protocolVersion
}

// MarkStartupDone transitions to READY and returns the deferred command
// lines in submission order, clearing the queue.
func (s *Session) MarkStartupDone() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startupDone = true
	s.state = StateReady
	out := s.deferred
	s.deferred = nil
	return out
}

// StartupDone reports whether the editor has signaled startupDone.
func (s *Session) StartupDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startupDone
}

// Ready reports authDone && startupDone.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authDone && s.startupDone
}

// NextSequence returns the next strictly-increasing sequence number,
// starting at 1.
func (s *Session) NextSequence() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	return s.nextSeq
}

// Defer appends a fully-encoded command line to the deferred queue. Only
// meaningful while !startupDone.
func (s *Session) Defer(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deferred = append(s.deferred, line)
}

// BeginReply arms the single reply-wait slot for sequence. Fails if a
// reply is already pending; at most one call may be outstanding.
func (s *Session) BeginReply(sequence int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return ErrReentrantCall
	}
	s.pending = &pendingReply{sequence: sequence}
	return nil
}

// FillReply stores an inbound reply's tail if its sequence matches the
// pending call; any other sequence is a fatal protocol error, including
// a reply arriving with no call in flight at all.
func (s *Session) FillReply(sequence int, tail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || s.pending.sequence != sequence {
		return ErrReplyMismatch
	}
	s.pending.tail = tail
	s.pending.filled = true
	return nil
}

// TakeReply returns the filled reply tail and clears the slot, or ok=false
// if the slot isn't filled yet.
func (s *Session) TakeReply() (tail string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || !s.pending.filled {
		return "", false
	}
	tail = s.pending.tail
	s.pending = nil
	return tail, true
}

// AbandonReply clears the pending reply slot without a result, used when
// the connection closes with a call still in flight.
func (s *Session) AbandonReply() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MarkClosed transitions to CLOSED from any state.
func (s *Session) MarkClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}
