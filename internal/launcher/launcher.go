// Package launcher spawns and drives the external editor process that
// connects back to our listener, and pokes it with remote key commands
// once connected.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotRunning is returned by SendKeys/SendKeysNormalMode before Launch
// has succeeded, or after the editor process has exited.
var ErrNotRunning = errors.New("launcher: editor process is not running")

// delayFirstCommand is the grace period before the very first
// --remote-send, giving the editor time to register its server name.
const delayFirstCommand = 1 * time.Second

// Launcher starts the external editor and can deliver key sequences to
// it out of band, over its own remote-control mechanism rather than the
// netbeans socket.
type Launcher interface {
	Launch(ctx context.Context, host string, port int, secret string) error
	SendKeys(keys string) error
	SendKeysNormalMode(keys string) error
	Shutdown(ctx context.Context) error
	Running() bool
}

// ExecLauncher launches a real editor binary as a subprocess, with a
// remote-send sibling invocation for key delivery.
type ExecLauncher struct {
	editorExec string
	logger     *slog.Logger

	mu         sync.Mutex
	cmd        *exec.Cmd
	serverName string
	startedAt  time.Time
}

// NewExecLauncher targets editorExec, the path to the editor binary.
func NewExecLauncher(editorExec string, logger *slog.Logger) *ExecLauncher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecLauncher{editorExec: editorExec, logger: logger}
}

// GenerateSecret produces a fresh shared secret for a session that did
// not configure one explicitly.
func GenerateSecret() string {
	return uuid.NewString()
}

// Launch starts the editor with a unique --servername and the
// "-nb:host:port:secret" netbeans connect argument, with the netbeans
// debug environment armed in the child process.
func (l *ExecLauncher) Launch(ctx context.Context, host string, port int, secret string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	serverName := fmt.Sprintf("EDITORCTL_%d", time.Now().UnixNano()%1_000_000)
	nbArg := fmt.Sprintf("-nb:%s:%d:%s", host, port, secret)

	cmd := exec.CommandContext(ctx, l.editorExec, nbArg, "--servername", serverName)
	cmd.Env = append(os.Environ(),
		"SPRO_GVIM_DEBUG=netbeans.log",
		"SPRO_GVIM_DLEVEL=0xffffffff",
	)

	l.logger.Debug("starting editor", "exec", l.editorExec, "args", cmd.Args)
	if err := cmd.Start(); err != nil {
		return err
	}

	l.cmd = cmd
	l.serverName = serverName
	l.startedAt = time.Now()
	return nil
}

// Running reports whether the launched process is still alive.
func (l *ExecLauncher) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cmd != nil && l.cmd.ProcessState == nil
}

// SendKeys delivers keys to the running editor via its own remote-send
// mechanism, independent of the netbeans socket. A call landing inside
// the startup grace period waits out the remainder first.
func (l *ExecLauncher) SendKeys(keys string) error {
	l.mu.Lock()
	running := l.cmd != nil && l.cmd.ProcessState == nil
	serverName := l.serverName
	elapsed := time.Since(l.startedAt)
	l.mu.Unlock()

	if !running {
		return ErrNotRunning
	}
	if elapsed < delayFirstCommand {
		time.Sleep(delayFirstCommand - elapsed)
	}

	l.logger.Debug("sending keys", "keys", keys)
	cmd := exec.Command(l.editorExec, "--servername", serverName, "--remote-send", keys)
	return cmd.Run()
}

// SendKeysNormalMode escapes to normal mode before sending keys.
func (l *ExecLauncher) SendKeysNormalMode(keys string) error {
	return l.SendKeys("<C-\\><C-N>" + keys)
}

// Shutdown asks the editor to quit via a normal-mode ":q!<CR>" remote
// send rather than killing the process outright.
func (l *ExecLauncher) Shutdown(ctx context.Context) error {
	if !l.Running() {
		return nil
	}
	return l.SendKeysNormalMode(":q!<CR>")
}
