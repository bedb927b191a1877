package config

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Watch polls the session config file and reloads it whenever its
// modification time advances, handing each successfully reloaded Config
// to onReload. The host applies what makes sense mid-session (log
// level); listener and editor settings only take effect on the next
// session start, so a reload never disturbs a connected editor.
func Watch(ctx context.Context, filePath string, interval time.Duration, logger *slog.Logger, onReload func(*Config)) {
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		var lastMod time.Time
		if cur := Get(); cur != nil {
			lastMod = cur.modTime
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(filePath)
				if err != nil {
					continue
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				// advance even if the reload fails, so a broken edit is
				// reported once rather than every tick until it is fixed.
				lastMod = info.ModTime()
				cfg, err := Load(filePath)
				if err != nil {
					logger.Error("session config reload failed", "path", filePath, "error", err)
					continue
				}
				logger.Info("session config reloaded", "path", filePath)
				if onReload != nil {
					onReload(cfg)
				}
			}
		}
	}()
}
