package buffer

import "errors"

var (
	// ErrUnknownID is returned by lookups and removal for a bufferId the
	// registry has never seen or has already removed.
	ErrUnknownID = errors.New("buffer: unknown id")

	// ErrAmbiguousID would mean more than one entry carries the same
	// bufferId. The registry's two hash indices make this structurally
	// impossible (byID is keyed by id), so it names a hard bug rather
	// than a condition callers should ever observe.
	ErrAmbiguousID = errors.New("buffer: ambiguous id (hard bug)")
)
