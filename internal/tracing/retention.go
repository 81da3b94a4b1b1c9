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

package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SpanPruner deletes spans older than a cutoff.
type SpanPruner interface {
	DeleteSpansOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// RetentionManager handles automatic cleanup of old spans.
type RetentionManager struct {
	store           SpanPruner
	maxAge          time.Duration
	cleanupInterval time.Duration
	logger          *slog.Logger
	now             func() time.Time
	stopCh          chan struct{}
	doneCh          chan struct{}
}

// NewRetentionManager creates a new retention manager. Zero values default
// to seven days of retention and an hourly cleanup.
func NewRetentionManager(store SpanPruner, maxAge, cleanupInterval time.Duration, logger *slog.Logger) *RetentionManager {
	if maxAge == 0 {
		maxAge = 7 * 24 * time.Hour
	}
	if cleanupInterval == 0 {
		cleanupInterval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RetentionManager{
		store:           store,
		maxAge:          maxAge,
		cleanupInterval: cleanupInterval,
		logger:          logger,
		now:             time.Now,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

// Start runs the cleanup loop in the background. The first pass runs
// immediately.
func (r *RetentionManager) Start() {
	go r.run()
}

// Stop stops the loop and waits for an in-progress pass to finish.
func (r *RetentionManager) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *RetentionManager) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	r.cleanup()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stopCh:
			r.logger.Debug("retention manager stopping")
			return
		}
	}
}

func (r *RetentionManager) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := r.CleanupNow(ctx); err != nil {
		r.logger.Error("failed to clean up old spans", "error", err)
	}
}

// CleanupNow runs one cleanup pass and returns the number of deleted spans.
func (r *RetentionManager) CleanupNow(ctx context.Context) (int64, error) {
	before := r.now().Add(-r.maxAge)

	deleted, err := r.store.DeleteSpansOlderThan(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("cleanup failed: %w", err)
	}

	if deleted > 0 {
		r.logger.Info("cleaned up old spans",
			"count", deleted,
			"before", before.Format(time.RFC3339),
		)
	}
	return deleted, nil
}
