package session

import "errors"

var (
	// ErrNotAuthenticated is returned by a non-forced send attempted before
	// the editor has authenticated.
	ErrNotAuthenticated = errors.New("session: not authenticated")

	// ErrNotReady is returned by a synchronous call attempted before
	// both authentication and startup have completed.
	ErrNotReady = errors.New("session: not ready (auth/startup incomplete)")

	// ErrVersionTooOld is raised when the editor reports a protocol
	// version below 2.0.
	ErrVersionTooOld = errors.New("session: editor protocol version below 2.0")

	// ErrReentrantCall is raised when a second reply-expected command is
	// sent while one is already in flight; at most one pendingReply may
	// exist at a time.
	ErrReentrantCall = errors.New("session: reentrant call, a reply is already pending")

	// ErrReplyMismatch is raised when an inbound reply's sequence number
	// does not match the single pending call's sequence.
	ErrReplyMismatch = errors.New("session: reply sequence does not match pending call")
)
