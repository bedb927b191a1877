// Package wrapper is the typed facade an embedder drives: it owns the
// listener, the protocol engine, the buffer registry, and the editor
// subprocess, and exposes cursor/text/buffer-lifecycle operations built
// on top of engine.Send/Call.
package wrapper

import (
	"context"
	"log/slog"

	"github.com/nbremote/editorctl/internal/argval"
	"github.com/nbremote/editorctl/internal/buffer"
	"github.com/nbremote/editorctl/internal/engine"
	"github.com/nbremote/editorctl/internal/launcher"
	"github.com/nbremote/editorctl/internal/session"
	"github.com/nbremote/editorctl/internal/transport"
)

// Wrapper is the frontend for driving an external editor process over
// the netbeans protocol.
type Wrapper struct {
	host   string
	port   int
	secret string

	launcher launcher.Launcher
	logger   *slog.Logger

	listener *transport.Listener
	eng      *engine.Engine
	sess     *session.Session
	registry *buffer.Registry

	ignoreNextOpenFile int
}

// New constructs a Wrapper that listens on host:port (port 0 lets the OS
// pick), authenticates the editor's connection with secret, and spawns
// the editor through launch.
func New(host string, port int, secret string, launch launcher.Launcher, logger *slog.Logger) *Wrapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Wrapper{
		host:     host,
		port:     port,
		secret:   secret,
		launcher: launch,
		logger:   logger,
		registry: buffer.New(),
	}
}

// Registry exposes the buffer registry so callers can Subscribe to
// Created/Deleted/Hotkey/KeyCommand events.
func (w *Wrapper) Registry() *buffer.Registry { return w.registry }

// Start binds the listener, launches the editor pointed at the bound
// port and shared secret, accepts its connection, and blocks until the
// session reaches READY (auth done and startup done).
func (w *Wrapper) Start(ctx context.Context) error {
	ln, err := transport.StartListening(w.host, w.port, w.logger)
	if err != nil {
		return err
	}
	w.listener = ln

	if err := w.launcher.Launch(ctx, w.host, ln.Port(), w.secret); err != nil {
		return err
	}

	w.sess = session.New(w.secret, w.logger)

	conn, err := ln.AcceptOne(ctx)
	if err != nil {
		return err
	}
	w.sess.MarkConnected()

	w.eng = engine.New(conn, w.sess, w.logger)
	w.eng.SetSink(w)

	for !w.sess.Ready() {
		if _, err := w.eng.ProcessOne(true); err != nil {
			return err
		}
		if w.sess.State() == session.StateClosed {
			return ErrStartupFailed
		}
	}
	w.logger.Info("editor session ready")
	return nil
}

// Close disconnects the editor if still connected, clears the registry,
// and releases the listener.
func (w *Wrapper) Close() error {
	var err error
	if w.eng != nil {
		err = w.eng.Disconnect()
	}
	w.registry.Clear()
	if w.listener != nil {
		if closeErr := w.listener.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

// ProcessEvents drains queued editor events without blocking, exposing
// engine.DrainEvents to embedders that run their own event loop.
func (w *Wrapper) ProcessEvents(limit int) (int, error) {
	return w.eng.DrainEvents(limit)
}

// Cursor holds the editor's current focus position, decoded from
// getCursor's NUM NUM NUM NUM reply.
type Cursor struct {
	BufferID uint64
	Line     int
	Col      int
	Offset   int
}

func (w *Wrapper) getCursor() (Cursor, error) {
	values, err := w.eng.Call(0, "getCursor", []argval.Tag{argval.NUM, argval.NUM, argval.NUM, argval.NUM})
	if err != nil {
		return Cursor{}, err
	}
	ints, err := fourInts(values)
	if err != nil {
		return Cursor{}, err
	}
	return Cursor{BufferID: uint64(ints[0]), Line: ints[1], Col: ints[2], Offset: ints[3]}, nil
}

func fourInts(values []argval.Value) ([4]int, error) {
	var out [4]int
	if len(values) != 4 {
		return out, ErrUnexpectedReply
	}
	for i, v := range values {
		iv, ok := v.(*argval.IntValue)
		if !ok {
			return out, ErrUnexpectedReply
		}
		out[i] = iv.N
	}
	return out, nil
}

// GetCursor returns the full current cursor position.
func (w *Wrapper) GetCursor() (Cursor, error) { return w.getCursor() }

// GetBufID returns the currently focused buffer id.
func (w *Wrapper) GetBufID() (uint64, error) {
	c, err := w.getCursor()
	return c.BufferID, err
}

// GetCursorLine returns the current line.
func (w *Wrapper) GetCursorLine() (int, error) {
	c, err := w.getCursor()
	return c.Line, err
}

// GetCursorCol returns the current column.
func (w *Wrapper) GetCursorCol() (int, error) {
	c, err := w.getCursor()
	return c.Col, err
}

// GetCursorLineCol returns (line, col).
func (w *Wrapper) GetCursorLineCol() (int, int, error) {
	c, err := w.getCursor()
	return c.Line, c.Col, err
}

// GetCursorOffset returns the current byte offset.
func (w *Wrapper) GetCursorOffset() (int, error) {
	c, err := w.getCursor()
	return c.Offset, err
}

// GetLength returns the byte length of bufID's content.
func (w *Wrapper) GetLength(bufID uint64) (int, error) {
	values, err := w.eng.Call(bufID, "getLength", []argval.Tag{argval.NUM})
	if err != nil {
		return 0, err
	}
	if len(values) != 1 {
		return 0, ErrUnexpectedReply
	}
	iv, ok := values[0].(*argval.IntValue)
	if !ok {
		return 0, ErrUnexpectedReply
	}
	return iv.N, nil
}

// Text returns the full content of bufID.
func (w *Wrapper) Text(bufID uint64) (string, error) {
	values, err := w.eng.Call(bufID, "getText", []argval.Tag{argval.STR})
	if err != nil {
		return "", err
	}
	if len(values) != 1 {
		return "", ErrUnexpectedReply
	}
	sv, ok := values[0].(*argval.StringValue)
	if !ok {
		return "", ErrUnexpectedReply
	}
	return sv.S, nil
}

// InsertText inserts text at offset in bufID. On success it returns
// ("", nil); a non-empty diagnostic string means the editor rejected the
// insert, and no error is raised for that case.
func (w *Wrapper) InsertText(bufID uint64, offset int, text string) (string, error) {
	values, err := w.eng.Call(bufID, "insert", []argval.Tag{argval.OPTMSG}, argval.NewInt(offset), argval.NewString(text))
	if err != nil {
		return "", err
	}
	return optMsgResult(values)
}

// RemoveText deletes length bytes starting at offset in bufID.
func (w *Wrapper) RemoveText(bufID uint64, offset, length int) (string, error) {
	values, err := w.eng.Call(bufID, "remove", []argval.Tag{argval.OPTMSG}, argval.NewInt(offset), argval.NewInt(length))
	if err != nil {
		return "", err
	}
	return optMsgResult(values)
}

func optMsgResult(values []argval.Value) (string, error) {
	if len(values) != 1 {
		return "", ErrUnexpectedReply
	}
	mv, ok := values[0].(*argval.OptMsgValue)
	if !ok {
		return "", ErrUnexpectedReply
	}
	if !mv.Present {
		return "", nil
	}
	return mv.S, nil
}

// SetModified marks bufID's modified flag.
func (w *Wrapper) SetModified(bufID uint64, modified bool) error {
	return w.eng.Send(bufID, "setModified", argval.NewBool(modified))
}

// IsBufferModified reports whether bufID currently has unsaved changes.
func (w *Wrapper) IsBufferModified(bufID uint64) (bool, error) {
	values, err := w.eng.Call(bufID, "getModified", []argval.Tag{argval.NUM})
	if err != nil {
		return false, err
	}
	if len(values) != 1 {
		return false, ErrUnexpectedReply
	}
	iv, ok := values[0].(*argval.IntValue)
	if !ok {
		return false, ErrUnexpectedReply
	}
	return iv.N == 1, nil
}

// NumberBufferModified returns how many buffers are currently modified,
// via the broadcast query on buffer id 0; 0 means it is safe to exit.
func (w *Wrapper) NumberBufferModified() (int, error) {
	values, err := w.eng.Call(0, "getModified", []argval.Tag{argval.NUM})
	if err != nil {
		return 0, err
	}
	if len(values) != 1 {
		return 0, ErrUnexpectedReply
	}
	iv, ok := values[0].(*argval.IntValue)
	if !ok {
		return 0, ErrUnexpectedReply
	}
	return iv.N, nil
}

// SetCurrentBuffer makes bufID the visible buffer.
func (w *Wrapper) SetCurrentBuffer(bufID uint64) error {
	return w.eng.Send(bufID, "setVisible", argval.NewBool(true))
}

// SetCurrentBufferByPath resolves path to its buffer id via the
// registry and makes it the visible buffer.
func (w *Wrapper) SetCurrentBufferByPath(path string) error {
	id, ok := w.registry.IDOf(path)
	if !ok {
		return buffer.ErrUnknownID
	}
	return w.SetCurrentBuffer(id)
}

// SetCurrentBufferOffset makes bufID current and positions the cursor
// at the given byte offset.
func (w *Wrapper) SetCurrentBufferOffset(bufID uint64, offset int) error {
	return w.eng.Send(bufID, "setDot", argval.NewInt(offset))
}

// SetCurrentBufferLineCol makes bufID current and positions the cursor
// at (line, col).
func (w *Wrapper) SetCurrentBufferLineCol(bufID uint64, line, col int) error {
	return w.eng.Send(bufID, "setDot", argval.NewPosition(line, col))
}

// SetBufferReadonly marks bufID as read-only.
func (w *Wrapper) SetBufferReadonly(bufID uint64) error {
	return w.eng.Send(bufID, "setReadOnly")
}

// RaiseEditor raises the editor window to the foreground.
func (w *Wrapper) RaiseEditor() error {
	return w.eng.Send(0, "raise")
}

// SetSpecialKeys registers the netbeans hotkeys the editor should report
// back as keyAtPos events.
func (w *Wrapper) SetSpecialKeys(keys string) error {
	return w.eng.Send(0, "specialKeys", argval.NewString(keys))
}
