package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/contre95/plexify/src/infra/watcher"
)

// Watch reloads the configuration file whenever it changes, until ctx is done.
// A file that fails to parse or validate is ignored and the running
// configuration is kept.
func (m *Manager) Watch(ctx context.Context) error {
	path := m.Path()
	if path == "" {
		return fmt.Errorf("configuration was not loaded from a file")
	}
	events := make(chan watcher.FileEvent, 1)
	w, err := watcher.NewWatcher(events, 0)
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := w.Start(ctx, path); err != nil {
		w.Stop()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if ev.EventType == watcher.FileRemoved {
				slog.Warn("Config file removed, keeping current configuration", "path", path)
				continue
			}
			if err := m.Reload(); err != nil {
				slog.Error("Ignoring invalid configuration change", "path", path, "error", err)
				continue
			}
			slog.Info("Configuration reloaded", "path", path)
		}
	}
}

// Reload reads the configuration file again and applies it when valid.
func (m *Manager) Reload() error {
	cfg, err := read(m.Path())
	if err != nil {
		return err
	}
	m.Update(cfg)
	return nil
}
