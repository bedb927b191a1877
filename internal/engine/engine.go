// Package engine implements the NetBeans External Editor protocol's
// cooperative message pump: one line in, one dispatch, at most one
// outstanding synchronous call. It owns the wire-level send/call API the
// Wrapper builds editor-control methods on top of.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/nbremote/editorctl/internal/argval"
	"github.com/nbremote/editorctl/internal/session"
	"github.com/nbremote/editorctl/internal/transport"
)

// maxReplyIterations bounds how many lines Call will pump waiting for its
// reply before giving up. In practice the reply arrives on the first
// iteration; the cap guards against an editor that keeps sending other
// lines without ever answering. Each iteration is a blocking read, so an
// editor that sends nothing at all keeps Call waiting.
const maxReplyIterations = 300

// EventSink receives editor-originated events that are not already
// consumed internally (startupDone, version). The Wrapper implements this
// to route buffer lifecycle and key events.
type EventSink interface {
	OnEvent(bufferID uint64, name string, seq int, argsTail string)
}

// Engine pumps one accepted connection: decoding lines, gating them
// through the session state machine, and exposing send/call to callers
// above it.
type Engine struct {
	conn    *transport.Conn
	session *session.Session
	sink    EventSink
	logger  *slog.Logger
}

// New wires an Engine over an already-accepted connection. sink may be
// nil until the Wrapper is constructed; SetSink attaches it afterward to
// break the construction cycle between Engine and Wrapper.
func New(conn *transport.Conn, sess *session.Session, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{conn: conn, session: sess, logger: logger}
}

// SetSink attaches the event sink. Must be called before ProcessOne is
// ever invoked with editor events in flight.
func (e *Engine) SetSink(sink EventSink) {
	e.sink = sink
}

// Close tears down the underlying connection.
func (e *Engine) Close() error {
	return e.conn.Close()
}

// fail closes the socket and marks the session dead. Fatal protocol
// conditions are never swallowed: the session cannot be used again.
func (e *Engine) fail() {
	e.session.MarkClosed()
	e.conn.Close()
}

// sendLine writes one raw line, gated on the session: force bypasses the
// auth/startup gate and is used for DISCONNECT. A non-forced send before
// startupDone is queued rather than written; before authDone it is an
// error.
func (e *Engine) sendLine(line string, force bool) error {
	if e.conn.Closed() {
		return ErrDisconnected
	}
	if !force && !e.session.AuthDone() {
		e.logger.Error("send attempted before authentication", "line", line)
		return session.ErrNotAuthenticated
	}
	if !force && !e.session.StartupDone() {
		e.logger.Debug("startup not done, deferring command", "line", line)
		e.session.Defer(line)
		return nil
	}
	e.logger.Debug("sending", "line", line, "force", force)
	return e.conn.WriteLine(line)
}

// Send emits a fire-and-forget command ("!" form) with no reply expected,
// carrying a freshly allocated sequence number for the editor's own
// bookkeeping.
func (e *Engine) Send(bufferID uint64, command string, args ...argval.Value) error {
	seq := e.session.NextSequence()
	line := fmt.Sprintf("%d:%s!%d%s", bufferID, command, seq, argval.EncodeArgs(args))
	return e.sendLine(line, false)
}

// Call sends a reply-expected command ("/" form), pumps the connection
// until the matching reply arrives or the iteration budget is exhausted,
// then decodes the reply tail per replySpec. At most one Call may be in
// flight at a time; events arriving while it waits are dispatched inline.
func (e *Engine) Call(bufferID uint64, command string, replySpec []argval.Tag, args ...argval.Value) ([]argval.Value, error) {
	if _, err := e.DrainEvents(-1); err != nil {
		return nil, err
	}
	if !e.session.Ready() {
		return nil, session.ErrNotReady
	}

	seq := e.session.NextSequence()
	if err := e.session.BeginReply(seq); err != nil {
		return nil, err
	}
	line := fmt.Sprintf("%d:%s/%d%s", bufferID, command, seq, argval.EncodeArgs(args))
	if err := e.sendLine(line, false); err != nil {
		e.session.AbandonReply()
		return nil, err
	}

	for i := 0; i < maxReplyIterations; i++ {
		if tail, ok := e.session.TakeReply(); ok {
			values, err := argval.ParseArgs([]byte(tail), replySpec)
			if err != nil {
				// a reply that doesn't decode is fatal, unlike a
				// malformed event, which is logged and dropped.
				e.fail()
				return nil, err
			}
			return values, nil
		}
		if _, err := e.ProcessOne(true); err != nil {
			e.session.AbandonReply()
			return nil, err
		}
		if e.session.State() == session.StateClosed {
			e.session.AbandonReply()
			return nil, ErrDisconnected
		}
	}

	e.session.AbandonReply()
	e.logger.Error("reply timed out", "command", command, "sequence", seq)
	return nil, ErrReplyTimeout
}

// Disconnect sends the DISCONNECT message by force, regardless of
// session state, then closes the connection.
func (e *Engine) Disconnect() error {
	if e.conn.Closed() {
		e.session.MarkClosed()
		return nil
	}
	err := e.sendLine("DISCONNECT", true)
	if closeErr := e.Close(); err == nil {
		err = closeErr
	}
	e.session.MarkClosed()
	return err
}

// PingConnection reports whether the editor is still responsive, using
// getCursor on buffer 0 as a liveness probe.
func (e *Engine) PingConnection() bool {
	if e.conn.Closed() || !e.session.Ready() {
		return false
	}
	_, err := e.Call(0, "getCursor", []argval.Tag{argval.NUM, argval.NUM, argval.NUM, argval.NUM})
	return err == nil
}
