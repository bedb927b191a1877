package wrapper

import "errors"

// ErrStartupFailed is returned by Start if the editor closes the
// connection before the session reaches the READY state. A fatal
// dispatch error during startup, such as a protocol version below 2.0,
// is returned by Start as that error instead.
var ErrStartupFailed = errors.New("wrapper: session closed before becoming ready")

// ErrUnexpectedReply is returned when a call's decoded reply does not
// have the shape the caller expected, which should be structurally
// impossible given argval.ParseArgs already validated against replySpec.
var ErrUnexpectedReply = errors.New("wrapper: reply did not match the expected shape")
