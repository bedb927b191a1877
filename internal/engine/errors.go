package engine

import "errors"

var (
	// ErrReplyTimeout is raised when a call's reply does not arrive
	// within the safety cap on reply-wait iterations.
	ErrReplyTimeout = errors.New("engine: reply did not arrive within the retry budget")

	// ErrDisconnected is returned by any send/call/pump attempted after
	// the connection has been torn down.
	ErrDisconnected = errors.New("engine: connection is closed")

	// ErrMalformedVersion is raised when the editor's "version" event
	// carries a value that does not parse as a float.
	ErrMalformedVersion = errors.New("engine: malformed version string in version event")
)
