package wrapper

import "github.com/nbremote/editorctl/internal/argval"

// OpenFile allocates an id for path, asks the editor to open it, and
// registers the mapping. ignoreNextOpenFile is bumped first so the
// editor's own fileOpened echo for this open is suppressed by
// eventFileOpened rather than registered a second time.
func (w *Wrapper) OpenFile(path string) (uint64, error) {
	id := w.registry.AllocateID()
	w.ignoreNextOpenFile++

	if err := w.eng.Send(id, "editFile", argval.NewPath(path)); err != nil {
		return 0, err
	}
	if _, err := w.eng.DrainEvents(-1); err != nil {
		return 0, err
	}
	if err := w.eng.Send(id, "setFullName", argval.NewPath(path)); err != nil {
		return 0, err
	}
	if err := w.eng.Send(id, "initDone"); err != nil {
		return 0, err
	}
	w.registry.Add(id, path)
	return id, nil
}

// CreateBuffer allocates an id for a brand-new, unbacked buffer titled
// path, and registers it once created.
func (w *Wrapper) CreateBuffer(path string) (uint64, error) {
	id := w.registry.AllocateID()

	if err := w.eng.Send(id, "create"); err != nil {
		return 0, err
	}
	if err := w.eng.Send(id, "setTitle", argval.NewString(path)); err != nil {
		return 0, err
	}
	if err := w.eng.Send(id, "setFullName", argval.NewPath(path)); err != nil {
		return 0, err
	}
	if err := w.eng.Send(id, "initDone"); err != nil {
		return 0, err
	}
	w.registry.Add(id, path)

	if _, err := w.eng.DrainEvents(-1); err != nil {
		return 0, err
	}
	return id, nil
}

// CloseBuffer removes bufID from the registry and tells the editor to
// close it, switching the visible buffer to the next one in insertion
// order if bufID was current. The successor is computed before removal,
// so closing the registry's sole buffer names the closed buffer itself
// as "next"; what the current buffer is after that is undefined.
func (w *Wrapper) CloseBuffer(bufID uint64) error {
	curID, err := w.GetBufID()
	if err != nil {
		return err
	}
	nextID, nextErr := w.registry.NextIDAfter(bufID)

	if err := w.registry.RemoveByID(bufID); err != nil {
		return err
	}
	if err := w.eng.Send(bufID, "close"); err != nil {
		return err
	}
	if curID == bufID {
		if nextErr != nil {
			return nextErr
		}
		return w.SetCurrentBuffer(nextID)
	}
	return nil
}

// SaveBuffer saves bufID and asks the editor to display its "saved"
// confirmation message.
func (w *Wrapper) SaveBuffer(bufID uint64) error {
	if err := w.eng.Send(bufID, "save"); err != nil {
		return err
	}
	return w.eng.Send(bufID, "saveDone")
}

// SaveAndExit asks the editor to save every modified buffer and exit.
// It returns 0 on success, or n>0 when the user canceled with n buffers
// still modified.
func (w *Wrapper) SaveAndExit() (int, error) {
	values, err := w.eng.Call(0, "saveAndExit", []argval.Tag{argval.OPTNUM})
	if err != nil {
		return 0, err
	}
	if len(values) != 1 {
		return 0, ErrUnexpectedReply
	}
	ov, ok := values[0].(*argval.OptIntValue)
	if !ok {
		return 0, ErrUnexpectedReply
	}
	if !ov.Present {
		return 0, nil
	}
	return ov.N, nil
}
