package wrapper

import (
	"github.com/nbremote/editorctl/internal/argval"
	"github.com/nbremote/editorctl/internal/buffer"
)

// OnEvent implements engine.EventSink, routing editor events the engine
// didn't already consume internally (startupDone, version) to the
// per-event handlers below. Unrecognized events, and newDotAndMark, are
// dropped.
func (w *Wrapper) OnEvent(bufferID uint64, name string, seq int, argsTail string) {
	switch name {
	case "fileOpened":
		w.eventFileOpened(bufferID, argsTail)
	case "killed":
		w.eventFileClosed(bufferID)
	case "keyAtPos":
		w.eventHotkey(bufferID, argsTail)
	case "keyCommand":
		w.eventKeyCommand(argsTail)
	}
}

// eventFileOpened associates a file the editor opened on its own
// initiative with a fresh buffer id, unless it is either already
// associated (bufferID != 0) or the echo of our own OpenFile call
// (suppressed via ignoreNextOpenFile).
func (w *Wrapper) eventFileOpened(bufferID uint64, argsTail string) {
	if bufferID != 0 {
		return
	}
	if w.ignoreNextOpenFile > 0 {
		w.ignoreNextOpenFile--
		return
	}

	values, err := argval.ParseArgs([]byte(argsTail), []argval.Tag{argval.STR, argval.BOOL, argval.BOOL})
	if err != nil {
		w.logger.Error("malformed fileOpened event", "error", err)
		return
	}
	path := values[0].(*argval.StringValue).S

	id := w.registry.AllocateID()
	if err := w.eng.Send(id, "putBufferNumber", argval.NewPath(path)); err != nil {
		w.logger.Error("putBufferNumber failed", "error", err)
		return
	}
	w.registry.Add(id, path)
}

func (w *Wrapper) eventFileClosed(bufferID uint64) {
	if err := w.registry.RemoveByID(bufferID); err != nil {
		w.logger.Debug("killed event for unknown buffer", "bufferId", bufferID, "error", err)
	}
}

// eventHotkey fans out a netbeans hotkey press as a Hotkey registry
// event for embedders to subscribe to.
func (w *Wrapper) eventHotkey(bufferID uint64, argsTail string) {
	values, err := argval.ParseArgs([]byte(argsTail), []argval.Tag{argval.STR, argval.NUM, argval.POS})
	if err != nil {
		w.logger.Error("malformed keyAtPos event", "error", err)
		return
	}
	key := values[0].(*argval.StringValue).S
	offset := values[1].(*argval.IntValue).N
	pos := values[2].(*argval.PositionValue)

	w.registry.Notify(buffer.Hotkey{
		BufferID: bufferID,
		Key:      key,
		Offset:   offset,
		Line:     pos.Line,
		Col:      pos.Col,
	})
}

// eventKeyCommand fans out a netbeans keyCommand as a registry event,
// leaving any UI reaction to the embedder.
func (w *Wrapper) eventKeyCommand(argsTail string) {
	values, err := argval.ParseArgs([]byte(argsTail), []argval.Tag{argval.STR})
	if err != nil {
		w.logger.Error("malformed keyCommand event", "error", err)
		return
	}
	w.registry.Notify(buffer.KeyCommand{Name: values[0].(*argval.StringValue).S})
}
