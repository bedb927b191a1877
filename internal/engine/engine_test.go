package engine

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/nbremote/editorctl/internal/argval"
	"github.com/nbremote/editorctl/internal/session"
	"github.com/nbremote/editorctl/internal/transport"
)

type recordingSink struct {
	events []string
}

func (r *recordingSink) OnEvent(bufferID uint64, name string, seq int, argsTail string) {
	r.events = append(r.events, name)
}

// harness accepts one loopback connection and wires an Engine over it,
// with client as the "editor" side driven by the test.
func harness(t *testing.T, secret string) (*Engine, *session.Session, net.Conn, *bufio.Reader) {
	t.Helper()
	ln, err := transport.StartListening("127.0.0.1", 0, nil)
	if err != nil {
		t.Fatalf("StartListening: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	client, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(ln.Port())))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := ln.AcceptOne(ctx)
	if err != nil {
		t.Fatalf("AcceptOne: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	sess := session.New(secret, nil)
	eng := New(conn, sess, nil)
	return eng, sess, client, bufio.NewReader(client)
}

func authAndStart(t *testing.T, eng *Engine, client net.Conn, secret string) {
	t.Helper()
	if _, err := client.Write([]byte("AUTH " + secret + "\n")); err != nil {
		t.Fatalf("write AUTH: %v", err)
	}
	if _, err := eng.ProcessOne(true); err != nil {
		t.Fatalf("ProcessOne(AUTH): %v", err)
	}
	if _, err := client.Write([]byte("0:version=1 \"2.5\"\n")); err != nil {
		t.Fatalf("write version: %v", err)
	}
	if _, err := eng.ProcessOne(true); err != nil {
		t.Fatalf("ProcessOne(version): %v", err)
	}
	if _, err := client.Write([]byte("0:startupDone=2\n")); err != nil {
		t.Fatalf("write startupDone: %v", err)
	}
	if _, err := eng.ProcessOne(true); err != nil {
		t.Fatalf("ProcessOne(startupDone): %v", err)
	}
}

func TestProcessOneHandlesAuthEventAndStartup(t *testing.T) {
	eng, sess, client, _ := harness(t, "secret")
	authAndStart(t, eng, client, "secret")

	if !sess.Ready() {
		t.Fatal("expected session Ready() after auth+version+startupDone")
	}
	if sess.ProtocolVersion() != 2.5 {
		t.Fatalf("expected version 2.5, got %v", sess.ProtocolVersion())
	}
}

func TestHandleEventRoutesUnknownEventsToSink(t *testing.T) {
	eng, sess, client, _ := harness(t, "secret")
	authAndStart(t, eng, client, "secret")

	sink := &recordingSink{}
	eng.SetSink(sink)

	if _, err := client.Write([]byte("1:fileOpened=3 \"/tmp/a.go\" T F\n")); err != nil {
		t.Fatalf("write event: %v", err)
	}
	if _, err := eng.ProcessOne(true); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if len(sink.events) != 1 || sink.events[0] != "fileOpened" {
		t.Fatalf("expected fileOpened routed to sink, got %v", sink.events)
	}
	_ = sess
}

func TestSendDeferredUntilStartupDone(t *testing.T) {
	eng, sess, client, reader := harness(t, "secret")

	if _, err := client.Write([]byte("AUTH secret\n")); err != nil {
		t.Fatalf("write AUTH: %v", err)
	}
	if _, err := eng.ProcessOne(true); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if err := eng.Send(1, "setDot", argval.NewPosition(1, 0)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, err := reader.ReadString('\n'); err == nil {
		t.Fatal("expected no data before startupDone, command should be deferred")
	}

	if _, err := client.Write([]byte("0:startupDone=2\n")); err != nil {
		t.Fatalf("write startupDone: %v", err)
	}
	if _, err := eng.ProcessOne(true); err != nil {
		t.Fatalf("ProcessOne(startupDone): %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("expected flushed deferred command, got error: %v", err)
	}
	if line != "1:setDot!1 1/0\n" {
		t.Fatalf("unexpected flushed line: %q", line)
	}
	if !sess.Ready() {
		t.Fatal("expected Ready() after startupDone")
	}
}

func TestCallSendsAndDecodesReply(t *testing.T) {
	eng, _, client, reader := harness(t, "secret")
	authAndStart(t, eng, client, "secret")

	done := make(chan struct{})
	var values []argval.Value
	var callErr error
	go func() {
		values, callErr = eng.Call(1, "getCursor", []argval.Tag{argval.NUM, argval.NUM, argval.NUM, argval.NUM})
		close(done)
	}()

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("expected call request line: %v", err)
	}
	if line != "1:getCursor/1\n" {
		t.Fatalf("unexpected request line: %q", line)
	}

	if _, err := client.Write([]byte("1 1 0 0 5\n")); err != nil {
		t.Fatalf("write reply: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Call did not return")
	}

	if callErr != nil {
		t.Fatalf("Call: %v", callErr)
	}
	if len(values) != 4 {
		t.Fatalf("expected 4 values, got %d", len(values))
	}
}

func TestCallBeforeReadyFails(t *testing.T) {
	eng, _, _, _ := harness(t, "secret")
	if _, err := eng.Call(1, "getCursor", []argval.Tag{argval.NUM}); err != session.ErrNotReady {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestAuthMismatchDoesNotBlockStartup(t *testing.T) {
	eng, sess, client, _ := harness(t, "secret")
	authAndStart(t, eng, client, "wrong-password")
	if !sess.Ready() {
		t.Fatal("expected Ready() even after an auth mismatch")
	}
}
