package wrapper

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/nbremote/editorctl/internal/buffer"
)

type fakeLauncher struct {
	dialed chan net.Conn
}

func (f *fakeLauncher) Launch(ctx context.Context, host string, port int, secret string) error {
	conn, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	f.dialed <- conn
	return nil
}

func (f *fakeLauncher) SendKeys(string) error           { return nil }
func (f *fakeLauncher) SendKeysNormalMode(string) error { return nil }
func (f *fakeLauncher) Shutdown(context.Context) error  { return nil }
func (f *fakeLauncher) Running() bool                   { return true }

func startReady(t *testing.T, secret string) (*Wrapper, net.Conn, *bufio.Reader) {
	t.Helper()
	fl := &fakeLauncher{dialed: make(chan net.Conn, 1)}
	w := New("127.0.0.1", 0, secret, fl, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)

	startErr := make(chan error, 1)
	go func() { startErr <- w.Start(ctx) }()

	var conn net.Conn
	select {
	case conn = <-fl.dialed:
	case <-time.After(2 * time.Second):
		t.Fatal("editor never dialed back")
	}
	t.Cleanup(func() { conn.Close() })

	if _, err := conn.Write([]byte("AUTH " + secret + "\n")); err != nil {
		t.Fatalf("write AUTH: %v", err)
	}
	if _, err := conn.Write([]byte("0:version=1 \"2.5\"\n")); err != nil {
		t.Fatalf("write version: %v", err)
	}
	if _, err := conn.Write([]byte("0:startupDone=2\n")); err != nil {
		t.Fatalf("write startupDone: %v", err)
	}

	select {
	case err := <-startErr:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start never returned")
	}

	return w, conn, bufio.NewReader(conn)
}

func TestStartReachesReadyThenGetCursor(t *testing.T) {
	w, conn, reader := startReady(t, "secret")

	done := make(chan struct{})
	var cursor Cursor
	var cerr error
	go func() {
		cursor, cerr = w.GetCursor()
		close(done)
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("expected getCursor request: %v", err)
	}
	if line != "0:getCursor/1\n" {
		t.Fatalf("unexpected request: %q", line)
	}
	if _, err := conn.Write([]byte("1 1 0 0 5\n")); err != nil {
		t.Fatalf("write reply: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("GetCursor did not return")
	}
	if cerr != nil {
		t.Fatalf("GetCursor: %v", cerr)
	}
	if cursor.BufferID != 1 || cursor.Line != 0 || cursor.Col != 0 || cursor.Offset != 5 {
		t.Fatalf("unexpected cursor: %+v", cursor)
	}
}

func TestEventHotkeyNotifiesSubscribers(t *testing.T) {
	w := New("127.0.0.1", 0, "secret", &fakeLauncher{dialed: make(chan net.Conn, 1)}, nil)

	var got buffer.Hotkey
	w.Registry().Subscribe(func(e buffer.Event) {
		if hk, ok := e.(buffer.Hotkey); ok {
			got = hk
		}
	})

	w.eventHotkey(7, `"C-c" 42 3/4`)

	if got.BufferID != 7 || got.Key != "C-c" || got.Offset != 42 || got.Line != 3 || got.Col != 4 {
		t.Fatalf("unexpected hotkey event: %+v", got)
	}
}

func TestEventKeyCommandNotifiesSubscribers(t *testing.T) {
	w := New("127.0.0.1", 0, "secret", &fakeLauncher{dialed: make(chan net.Conn, 1)}, nil)

	var got buffer.KeyCommand
	w.Registry().Subscribe(func(e buffer.Event) {
		if kc, ok := e.(buffer.KeyCommand); ok {
			got = kc
		}
	})

	w.eventKeyCommand(`"save-all"`)

	if got.Name != "save-all" {
		t.Fatalf("unexpected keyCommand event: %+v", got)
	}
}

func TestEventFileOpenedSuppressedByIgnoreCounter(t *testing.T) {
	w := New("127.0.0.1", 0, "secret", &fakeLauncher{dialed: make(chan net.Conn, 1)}, nil)
	w.ignoreNextOpenFile = 1

	w.eventFileOpened(0, `"/tmp/a.go" T F`)

	if w.ignoreNextOpenFile != 0 {
		t.Fatalf("expected counter decremented, got %d", w.ignoreNextOpenFile)
	}
	if w.Registry().HasPath("/tmp/a.go") {
		t.Fatal("expected suppressed event to not register a buffer")
	}
}

func TestEventFileClosedRemovesFromRegistry(t *testing.T) {
	w := New("127.0.0.1", 0, "secret", &fakeLauncher{dialed: make(chan net.Conn, 1)}, nil)
	id := w.registry.AllocateID()
	w.registry.Add(id, "/tmp/a.go")

	w.eventFileClosed(id)

	if w.registry.HasID(id) {
		t.Fatal("expected buffer removed on killed event")
	}
}
