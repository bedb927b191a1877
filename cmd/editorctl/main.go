// Command editorctl is a demo host process that embeds the wrapper: it
// loads a session config, starts an editor under remote control, and
// pumps its events to stdout until interrupted or the editor exits.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/nbremote/editorctl/internal/buffer"
	"github.com/nbremote/editorctl/internal/config"
	"github.com/nbremote/editorctl/internal/launcher"
	"github.com/nbremote/editorctl/internal/logging"
	"github.com/nbremote/editorctl/internal/wrapper"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:   "editorctl",
		Short: "remote-control a netbeans-protocol editor",
	}

	var confPath string
	root.PersistentFlags().StringVar(&confPath, "config", "editorctl.yaml", "path to the session config file")

	root.AddCommand(newServeCmd(&confPath))
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("editorctl %s (built %s)\n", version, buildTime)
			return nil
		},
	}
}

func newServeCmd(confPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "start the editor session and pump events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*confPath)
		},
	}
}

func runServe(confPath string) error {
	cfg, err := config.Load(confPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rw := logging.NewRotatingWriter(cfg.LogDir, cfg.LogRotationEnabled, cfg.LogKeepFiles)
	level := new(slog.LevelVar)
	level.Set(logging.ParseLevel(cfg.LogLevel))
	logger := logging.NewLogger(rw, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	rw.Start(ctx)
	defer rw.Close()
	config.Watch(ctx, confPath, 5*time.Second, logger, func(newCfg *config.Config) {
		level.Set(logging.ParseLevel(newCfg.LogLevel))
	})

	secret := cfg.SharedSecret
	if secret == "" {
		secret = launcher.GenerateSecret()
	}

	lnc := launcher.NewExecLauncher(cfg.EditorExec, logger)
	w := wrapper.New(cfg.Host, cfg.Port, secret, lnc, logger)

	w.Registry().Subscribe(func(evt buffer.Event) {
		switch e := evt.(type) {
		case buffer.Created:
			logger.Info("buffer opened", "id", e.ID, "path", e.Path)
		case buffer.Deleted:
			logger.Info("buffer closed", "id", e.ID, "path", e.Path)
		case buffer.Hotkey:
			logger.Info("hotkey", "buffer", e.BufferID, "key", e.Key, "offset", e.Offset)
		case buffer.KeyCommand:
			logger.Info("key command", "name", e.Name)
		}
	})

	logger.Info("starting session", "host", cfg.Host, "editor", cfg.EditorExec)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer w.Close()

	for ctx.Err() == nil {
		if _, err := w.ProcessEvents(-1); err != nil {
			logger.Error("session ended", "error", err)
			return err
		}
		select {
		case <-ctx.Done():
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}
