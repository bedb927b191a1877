// Package logging provides the daily-rotated log file writer consumed by
// cmd/editorctl's slog handler setup.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
)

const (
	sessionLogPrefix = "editorctl-"
	sessionLogSuffix = ".log"
	sessionLogFixed  = "editorctl.log"
	dateFormat       = "20060102"
)

// RotatingWriter is an io.Writer that writes to both stdout and a
// daily-rotated log file:
//   - Rotation enabled:  editorctl-YYYYMMDD.log, new file each day, the
//     previous day's file gzip-compressed once it closes.
//   - Rotation disabled: editorctl.log (fixed name).
//   - Old log files (compressed or not) are cleaned up based on keepDays.
type RotatingWriter struct {
	mu              sync.Mutex
	logDir          string
	rotationEnabled bool
	keepDays        int

	currentFile *os.File
	currentDate string // YYYYMMDD of the open file
}

// NewRotatingWriter creates a RotatingWriter. The file is opened lazily
// on first Write.
func NewRotatingWriter(logDir string, rotationEnabled bool, keepDays int) *RotatingWriter {
	return &RotatingWriter{
		logDir:          logDir,
		rotationEnabled: rotationEnabled,
		keepDays:        keepDays,
	}
}

// Write implements io.Writer. It writes to both stdout and the log file.
func (w *RotatingWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ensureFile(); err != nil {
		return len(p), nil // don't fail the caller if file logging fails
	}

	n, err = w.currentFile.Write(p)
	if err != nil {
		w.closeFileLocked()
		return len(p), nil
	}
	return n, nil
}

// Start begins background goroutines for daily rotation and cleanup.
func (w *RotatingWriter) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.checkRotation()
			}
		}
	}()

	go func() {
		w.clearOldLogs()
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.clearOldLogs()
			}
		}
	}()
}

// Close closes the underlying file, without compressing it — the
// active log stays plain text until a later rotation picks it up.
func (w *RotatingWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeFileLocked()
}

func (w *RotatingWriter) ensureFile() error {
	today := time.Now().Format(dateFormat)

	if w.currentFile != nil && w.currentDate == today {
		return nil
	}

	w.rotateLocked(today)

	if err := os.MkdirAll(w.logDir, 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(
		filepath.Join(w.logDir, w.filenameFor(today)),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0644,
	)
	if err != nil {
		return err
	}

	w.currentFile = f
	w.currentDate = today
	return nil
}

func (w *RotatingWriter) filenameFor(date string) string {
	if w.rotationEnabled {
		return sessionLogPrefix + date + sessionLogSuffix
	}
	return sessionLogFixed
}

// rotateLocked closes the currently open file and, if a date boundary
// was actually crossed, compresses it in the background. Must be called
// with mu held.
func (w *RotatingWriter) rotateLocked(today string) {
	if w.currentFile == nil {
		return
	}
	priorDate := w.currentDate
	oldPath := filepath.Join(w.logDir, w.filenameFor(priorDate))
	w.closeFileLocked()

	if w.rotationEnabled && priorDate != "" && priorDate != today {
		go compressAndRemove(oldPath)
	}
}

func (w *RotatingWriter) closeFileLocked() {
	if w.currentFile != nil {
		w.currentFile.Close()
		w.currentFile = nil
		w.currentDate = ""
	}
}

// checkRotation closes (and schedules compression of) the file once the
// date changes, so the next Write reopens a fresh one.
func (w *RotatingWriter) checkRotation() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.rotationEnabled {
		return
	}
	today := time.Now().Format(dateFormat)
	if w.currentDate == today {
		return
	}
	w.rotateLocked(today)
}

// compressAndRemove gzips path to path+".gz" and removes the original on
// success, using klauspost/compress for a faster deflate implementation
// than the stdlib's.
func compressAndRemove(path string) {
	src, err := os.Open(path)
	if err != nil {
		return
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return
	}
	gw := gzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		gw.Close()
		dst.Close()
		os.Remove(path + ".gz")
		return
	}
	if err := gw.Close(); err != nil {
		dst.Close()
		os.Remove(path + ".gz")
		return
	}
	dst.Close()
	os.Remove(path)
}

// clearOldLogs deletes plain and gzip-compressed log files older than
// keepDays.
func (w *RotatingWriter) clearOldLogs() {
	if !w.rotationEnabled || w.keepDays <= 0 {
		return
	}

	entries, err := os.ReadDir(w.logDir)
	if err != nil {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -w.keepDays)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		dateStr := strings.TrimPrefix(name, sessionLogPrefix)
		dateStr = strings.TrimSuffix(dateStr, sessionLogSuffix)
		dateStr = strings.TrimSuffix(dateStr, sessionLogSuffix+".gz")
		if !strings.HasPrefix(name, sessionLogPrefix) || len(dateStr) != 8 {
			continue
		}

		fileDate, err := time.Parse(dateFormat, dateStr)
		if err != nil {
			continue
		}

		if fileDate.Before(cutoff) {
			path := filepath.Join(w.logDir, name)
			if err := os.Remove(path); err == nil {
				fmt.Fprintf(os.Stdout, "time=%s level=INFO msg=\"deleted old log file\" path=%s\n",
					time.Now().Format(time.RFC3339), path)
			}
		}
	}
}

// SetupWriter creates a RotatingWriter and returns an io.Writer suitable
// for slog. If logDir is empty, returns os.Stdout only.
func SetupWriter(logDir string, rotationEnabled bool, keepDays int) io.Writer {
	if logDir == "" {
		return os.Stdout
	}
	return NewRotatingWriter(logDir, rotationEnabled, keepDays)
}

// NewLogger builds the process-wide structured logger writing through w.
// level is a slog.Leveler so the caller can pass a *slog.LevelVar and
// adjust verbosity while the process runs.
func NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps a config string ("debug", "info", "warn", "error") to
// a slog.Level, defaulting to Info for anything unrecognized.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
