package launcher

import (
	"context"
	"testing"
)

func TestSendKeysBeforeLaunchFails(t *testing.T) {
	l := NewExecLauncher("/bin/sh", nil)
	if err := l.SendKeys("ihello<Esc>"); err != ErrNotRunning {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestLaunchStartsProcessAndRunningReportsTrue(t *testing.T) {
	l := NewExecLauncher("/bin/sh", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := l.Launch(ctx, "127.0.0.1", 5678, "secret"); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if !l.Running() {
		t.Fatal("expected Running() true immediately after Launch")
	}
}

func TestGenerateSecretProducesDistinctValues(t *testing.T) {
	a := GenerateSecret()
	b := GenerateSecret()
	if a == b {
		t.Fatal("expected distinct secrets")
	}
	if len(a) == 0 {
		t.Fatal("expected non-empty secret")
	}
}

func TestShutdownOnNotRunningIsNoop(t *testing.T) {
	l := NewExecLauncher("/bin/sh", nil)
	if err := l.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected no error shutting down a launcher never started, got %v", err)
	}
}
