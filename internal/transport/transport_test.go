package transport

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"
)

func startLoopback(t *testing.T) (*Listener, net.Conn) {
	t.Helper()
	ln, err := StartListening("127.0.0.1", 0, nil)
	if err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	client, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(ln.Port())))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return ln, client
}

func TestAcceptOneAndReadLine(t *testing.T) {
	ln, client := startLoopback(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := ln.AcceptOne(ctx)
	if err != nil {
		t.Fatalf("AcceptOne: %v", err)
	}
	defer conn.Close()

	if _, err := client.Write([]byte("AUTH secret\n")); err != nil {
		t.Fatalf("client write: %v", err)
	}

	line, eof, err := conn.ReadLine(true)
	if err != nil || eof {
		t.Fatalf("ReadLine: line=%q eof=%v err=%v", line, eof, err)
	}
	if line != "AUTH secret" {
		t.Fatalf("unexpected line: %q", line)
	}
}

func TestReadLineNonBlockingNoData(t *testing.T) {
	ln, _ := startLoopback(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := ln.AcceptOne(ctx)
	if err != nil {
		t.Fatalf("AcceptOne: %v", err)
	}
	defer conn.Close()

	line, eof, err := conn.ReadLine(false)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if eof {
		t.Fatal("did not expect EOF")
	}
	if line != "" {
		t.Fatalf("expected no data, got %q", line)
	}
}

func TestReadLineDetectsEOF(t *testing.T) {
	ln, client := startLoopback(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := ln.AcceptOne(ctx)
	if err != nil {
		t.Fatalf("AcceptOne: %v", err)
	}
	defer conn.Close()

	client.Close()

	line, eof, err := conn.ReadLine(true)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if !eof || line != "" {
		t.Fatalf("expected EOF with empty line, got line=%q eof=%v", line, eof)
	}
}

func TestWriteLineAppendsLF(t *testing.T) {
	ln, client := startLoopback(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := ln.AcceptOne(ctx)
	if err != nil {
		t.Fatalf("AcceptOne: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteLine("1:getCursor/1"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}

	buf := make([]byte, 64)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(buf[:n]) != "1:getCursor/1\n" {
		t.Fatalf("unexpected bytes: %q", buf[:n])
	}
}

func TestStartListeningRetriesOnContention(t *testing.T) {
	ln1, err := StartListening("127.0.0.1", 0, nil)
	if err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	defer ln1.Close()

	// Binding the same port again must retry onto a different one rather
	// than fail or hang.
	ln2, err := StartListening("127.0.0.1", ln1.Port(), nil)
	if err != nil {
		t.Fatalf("StartListening with contention: %v", err)
	}
	defer ln2.Close()

	if ln2.Port() == ln1.Port() {
		t.Fatalf("expected retry to land on a different port")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ln, client := startLoopback(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := ln.AcceptOne(ctx)
	if err != nil {
		t.Fatalf("AcceptOne: %v", err)
	}
	client.Close()

	if err := conn.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !conn.Closed() {
		t.Fatal("expected Closed() to report true")
	}
}
