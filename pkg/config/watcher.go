// Copyright 2026 © The Valet Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls a config file for modification-time changes and
// reloads it, invoking registered callbacks with the new Config.
type Watcher struct {
	path     string
	interval time.Duration
	modTime  time.Time

	mu        sync.RWMutex
	current   *Config
	callbacks []func(*Config)

	stop chan struct{}
	done chan struct{}
}

// NewWatcher loads the file at path and returns a watcher over it.
func NewWatcher(path string, interval time.Duration) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	var modTime time.Time
	if info, err := os.Stat(path); err == nil {
		modTime = info.ModTime()
	}

	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &Watcher{
		path:     path,
		interval: interval,
		modTime:  modTime,
		current:  cfg,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start begins polling in a background goroutine.
func (w *Watcher) Start() {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				w.check()
			}
		}
	}()
}

// Stop halts polling and waits for the poll goroutine to exit.
func (w *Watcher) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}
	if !info.ModTime().After(w.modTime) {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("config.reload_failed", "path", w.path, "error", err)
		return
	}
	w.modTime = info.ModTime()

	w.mu.Lock()
	w.current = cfg
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	slog.Info("config.reloaded", "path", w.path)
	for _, fn := range callbacks {
		fn(cfg)
	}
}
