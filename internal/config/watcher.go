// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/tombee/dataimport/internal/featureflags"
)

// Apply pushes the hot-reloadable settings of c into flags. A config
// without system_user.enabled hands control back to the environment.
func (c *Config) Apply(flags *featureflags.SystemUser) {
	if flags == nil {
		return
	}
	if c.SystemUser.Enabled != nil {
		flags.SetOverride(*c.SystemUser.Enabled)
		return
	}
	flags.ClearOverride()
}

// WatcherOption customizes a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger used for reload events.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// OnReload registers fn to run after every successful reload.
func OnReload(fn func(*Config)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// Watcher reloads a config file when it changes and applies the result to
// the system-user flag. A reload that fails to load or validate keeps the
// previous config.
type Watcher struct {
	path     string
	name     string
	fsw      *fsnotify.Watcher
	flags    *featureflags.SystemUser
	logger   *slog.Logger
	onReload func(*Config)

	mu      sync.RWMutex
	current *Config

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher watches path and applies initial to flags immediately. The
// parent directory is watched so editors that replace the file by rename
// are still seen.
func NewWatcher(path string, initial *Config, flags *featureflags.SystemUser, opts ...WatcherOption) (*Watcher, error) {
	expanded, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch path: %w", err)
	}

	if initial == nil {
		initial = Default()
	}

	w := &Watcher{
		path:    absPath,
		name:    filepath.Base(absPath),
		fsw:     fsw,
		flags:   flags,
		logger:  slog.Default(),
		current: initial,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(slog.String("component", "config-watcher"), slog.String("path", absPath))

	initial.Apply(flags)
	return w, nil
}

// Current returns the most recently loaded config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching for changes.
func (w *Watcher) Start(ctx context.Context) {
	w.started.Store(true)
	go w.eventLoop(ctx)
	w.logger.Info("config watcher started")
}

// Stop stops the watcher and releases resources. It is safe to call more
// than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.started.Load() {
			<-w.doneCh
		}
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped (context cancelled)")
			return
		case <-w.stopCh:
			w.logger.Info("config watcher stopped")
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != w.name {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		w.logger.Debug("ignoring config event", "op", event.Op.String())
		return
	}
	w.Reload()
}

// Reload loads the file again. On success the new config replaces the
// current one and is applied; on failure the current one is kept and the
// error returned.
func (w *Watcher) Reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous config", "error", err)
		return err
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	cfg.Apply(w.flags)
	w.logger.Info("config reloaded", "system_user_override", cfg.SystemUser.Enabled != nil)

	if w.onReload != nil {
		w.onReload(cfg)
	}
	return nil
}
