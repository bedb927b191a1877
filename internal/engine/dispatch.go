package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// The three line shapes the protocol ever sends us, tried in this order.
// AUTH goes first; the event pattern requires the "bufId:name=seq" shape
// the bare reply pattern lacks, so event is tried before reply.
var (
	reAuth  = regexp.MustCompile(`^AUTH\s+(.*?)\s*$`)
	reEvent = regexp.MustCompile(`^(\d+):(\w+)=(\d+)(?:\s+(.*))?$`)
	reReply = regexp.MustCompile(`^(\d+)(?:\s+(.*))?$`)
)

// ProcessOne handles zero or one inbound line. blocking mirrors
// Conn.ReadLine: true waits for a full line or EOF, false returns after
// one read-timeout-bounded attempt if nothing has arrived. A clean EOF on a blocking read
// closes the transport, marks the session closed, and returns nil.
// A dispatch error is fatal: the socket is closed before it propagates.
func (e *Engine) ProcessOne(blocking bool) (bool, error) {
	if e.conn.Closed() {
		return false, ErrDisconnected
	}

	line, eof, err := e.conn.ReadLine(blocking)
	if err != nil {
		return false, err
	}
	if eof {
		e.logger.Debug("connection closed by peer")
		e.fail()
		return false, nil
	}
	if line == "" {
		return false, nil
	}

	e.logger.Debug("handling line", "line", line)

	handled, err := e.dispatch(line)
	if err != nil {
		e.fail()
	}
	return handled, err
}

func (e *Engine) dispatch(line string) (bool, error) {
	if mo := reAuth.FindStringSubmatch(line); mo != nil {
		return true, e.handleAuth(mo)
	}
	if mo := reEvent.FindStringSubmatch(line); mo != nil {
		return true, e.handleEvent(mo)
	}
	if mo := reReply.FindStringSubmatch(line); mo != nil {
		return true, e.handleReply(mo)
	}

	e.logger.Debug("could not find handler for line", "line", line)
	return true, nil
}

// DrainEvents processes events already queued on the socket without
// blocking. limit<0 drains until a non-blocking read produces nothing;
// limit>=0 stops once that many lines have been processed (or the socket
// goes dry first).
func (e *Engine) DrainEvents(limit int) (int, error) {
	processed := 0
	for limit < 0 || processed < limit {
		handled, err := e.ProcessOne(false)
		if err != nil {
			return processed, err
		}
		if !handled {
			break
		}
		processed++
	}
	return processed, nil
}

func (e *Engine) handleAuth(mo []string) error {
	e.session.Authenticate(mo[1])
	return nil
}

func (e *Engine) handleReply(mo []string) error {
	seq, err := strconv.Atoi(mo[1])
	if err != nil {
		return &ParseIntError{Field: "sequence", Value: mo[1]}
	}
	return e.session.FillReply(seq, mo[2])
}

func (e *Engine) handleEvent(mo []string) error {
	bufID, err := strconv.ParseUint(mo[1], 10, 64)
	if err != nil {
		return &ParseIntError{Field: "bufferId", Value: mo[1]}
	}
	name := mo[2]
	seq, err := strconv.Atoi(mo[3])
	if err != nil {
		return &ParseIntError{Field: "eventSeq", Value: mo[3]}
	}
	argsTail := mo[4]

	switch name {
	case "startupDone":
		flushed := e.session.MarkStartupDone()
		for _, cmd := range flushed {
			e.logger.Debug("flushing deferred command", "line", cmd)
			if err := e.conn.WriteLine(cmd); err != nil {
				return err
			}
		}
		return nil
	case "version":
		version := strings.Trim(strings.TrimSpace(argsTail), `"`)
		v, err := strconv.ParseFloat(version, 64)
		if err != nil {
			return ErrMalformedVersion
		}
		e.logger.Debug("protocol version activated", "version", v)
		return e.session.SetProtocolVersion(v)
	default:
		if e.sink != nil {
			e.sink.OnEvent(bufID, name, seq, argsTail)
		}
		return nil
	}
}

// ParseIntError reports a numeric field in a dispatch line that failed
// to parse, which should be structurally impossible given the regex that
// captured it.
type ParseIntError struct {
	Field string
	Value string
}

func (e *ParseIntError) Error() string {
	return "engine: malformed " + e.Field + ": " + e.Value
}
