// Package transport owns the accepted socket for a single NetBeans External
// Editor client: binding with port-contention retry, and framed line I/O
// with the blocking/non-blocking read contract the protocol engine needs.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net"
	"strconv"
	"syscall"
)

const maxPortRetryOffset = 100

// Listener binds one TCP port and accepts a single client connection:
// bind, retry once on contention, listen, accept exactly one.
type Listener struct {
	ln     net.Listener
	port   int
	logger *slog.Logger
}

// StartListening binds host:port. If the bind fails because the port is
// already in use, it retries once with port + r, r in [1,100] random.
// Any other bind error is returned unwrapped.
func StartListening(host string, port int, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ln, boundPort, err := bind(host, port)
	if err != nil {
		if !isAddrInUse(err) {
			return nil, err
		}
		retryPort := port + 1 + rand.Intn(maxPortRetryOffset)
		logger.Debug("port in use, retrying", "port", port, "retryPort", retryPort)
		ln, boundPort, err = bind(host, retryPort)
		if err != nil {
			return nil, err
		}
	}

	logger.Info("listening", "port", boundPort)
	return &Listener{ln: ln, port: boundPort, logger: logger}, nil
}

func bind(host string, port int) (net.Listener, int, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, 0, err
	}
	return ln, ln.Addr().(*net.TCPAddr).Port, nil
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

// Port returns the port actually bound, which may differ from the
// requested one after a contention retry.
func (l *Listener) Port() int { return l.port }

// AcceptOne blocks until the single client connects, then wraps the
// accepted socket in a Conn, whose ReadLine arms the read timeout on
// every attempt.
func (l *Listener) AcceptOne(ctx context.Context) (*Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := l.ln.Accept()
		ch <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		l.ln.Close()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return newConn(r.conn, l.logger), nil
	}
}

// Close releases the listener socket. Idempotent.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	err := l.ln.Close()
	l.ln = nil
	return err
}
