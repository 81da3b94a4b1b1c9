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

// Package storage keeps finished outbound-call spans in SQLite so recent
// exchanges can be inspected after the fact.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a span does not exist.
var ErrNotFound = errors.New("span not found")

// Status codes mirror the OpenTelemetry span status codes.
const (
	StatusUnset = 0
	StatusError = 1
	StatusOK    = 2
)

// Span is a finished span as persisted.
type Span struct {
	TraceID       string
	SpanID        string
	ParentID      string
	Name          string
	Kind          string
	Tenant        string
	StartTime     time.Time
	EndTime       time.Time
	StatusCode    int
	StatusMessage string
	Attributes    map[string]any
}

// Duration returns EndTime - StartTime, or zero for unfinished spans.
func (s *Span) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// SpanFilter narrows ListSpans.
type SpanFilter struct {
	Tenant    string
	Since     time.Time
	ErrorOnly bool
	Limit     int
}

// SQLiteStore provides SQLite-backed storage for spans.
type SQLiteStore struct {
	db *sql.DB
}

// Config contains SQLite storage configuration.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	// Special value ":memory:" creates an in-memory database.
	Path string

	// MaxOpenConns sets the maximum number of open connections.
	// In-memory databases are always limited to one.
	MaxOpenConns int
}

// New creates a new SQLite storage backend.
func New(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// WAL mode lets readers proceed while the exporter writes
	connStr := cfg.Path
	maxConns := cfg.MaxOpenConns
	if cfg.Path == ":memory:" {
		maxConns = 1
	} else {
		connStr += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	if maxConns == 0 {
		maxConns = 5
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(min(2, maxConns))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS spans (
			trace_id TEXT NOT NULL,
			span_id TEXT NOT NULL,
			parent_id TEXT,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			tenant TEXT NOT NULL DEFAULT '',
			start_time INTEGER NOT NULL,
			end_time INTEGER,
			status_code INTEGER NOT NULL,
			status_message TEXT,
			attributes TEXT,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (trace_id, span_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spans_trace_id ON spans(trace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_spans_start_time ON spans(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_spans_tenant ON spans(tenant, start_time)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// StoreSpan inserts or replaces a span.
func (s *SQLiteStore) StoreSpan(ctx context.Context, span *Span) error {
	if span == nil {
		return fmt.Errorf("span is nil")
	}
	if span.TraceID == "" {
		return fmt.Errorf("span trace_id is required")
	}
	if span.SpanID == "" {
		return fmt.Errorf("span span_id is required")
	}

	attributesJSON, err := json.Marshal(span.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	var endTime *int64
	if !span.EndTime.IsZero() {
		et := span.EndTime.UnixNano()
		endTime = &et
	}
	var parentID *string
	if span.ParentID != "" {
		parentID = &span.ParentID
	}

	query := `
		INSERT INTO spans (trace_id, span_id, parent_id, name, kind, tenant, start_time, end_time,
			status_code, status_message, attributes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trace_id, span_id) DO UPDATE SET
			parent_id = excluded.parent_id,
			name = excluded.name,
			kind = excluded.kind,
			tenant = excluded.tenant,
			end_time = excluded.end_time,
			status_code = excluded.status_code,
			status_message = excluded.status_message,
			attributes = excluded.attributes
	`
	_, err = s.db.ExecContext(ctx, query,
		span.TraceID, span.SpanID, parentID, span.Name, span.Kind, span.Tenant,
		span.StartTime.UnixNano(), endTime, span.StatusCode, span.StatusMessage,
		string(attributesJSON), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to store span: %w", err)
	}
	return nil
}

const spanColumns = `trace_id, span_id, parent_id, name, kind, tenant, start_time, end_time,
	status_code, status_message, attributes`

// GetSpan returns one span or ErrNotFound.
func (s *SQLiteStore) GetSpan(ctx context.Context, traceID, spanID string) (*Span, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+spanColumns+` FROM spans WHERE trace_id = ? AND span_id = ?`,
		traceID, spanID,
	)
	span, err := scanSpan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get span: %w", err)
	}
	return span, nil
}

// ListSpans returns spans newest first.
func (s *SQLiteStore) ListSpans(ctx context.Context, filter SpanFilter) ([]*Span, error) {
	var (
		where []string
		args  []any
	)
	if filter.Tenant != "" {
		where = append(where, "tenant = ?")
		args = append(args, filter.Tenant)
	}
	if !filter.Since.IsZero() {
		where = append(where, "start_time >= ?")
		args = append(args, filter.Since.UnixNano())
	}
	if filter.ErrorOnly {
		where = append(where, "status_code = ?")
		args = append(args, StatusError)
	}

	query := `SELECT ` + spanColumns + ` FROM spans`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_time DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list spans: %w", err)
	}
	defer rows.Close()

	var spans []*Span
	for rows.Next() {
		span, err := scanSpan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan span: %w", err)
		}
		spans = append(spans, span)
	}
	return spans, rows.Err()
}

// DeleteSpansOlderThan removes spans that started before the cutoff and
// returns how many were deleted.
func (s *SQLiteStore) DeleteSpansOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM spans WHERE start_time < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete spans: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpan(row scanner) (*Span, error) {
	var (
		span          Span
		parentID      sql.NullString
		statusMessage sql.NullString
		attributes    sql.NullString
		startTime     int64
		endTime       sql.NullInt64
	)
	err := row.Scan(&span.TraceID, &span.SpanID, &parentID, &span.Name, &span.Kind, &span.Tenant,
		&startTime, &endTime, &span.StatusCode, &statusMessage, &attributes)
	if err != nil {
		return nil, err
	}

	span.ParentID = parentID.String
	span.StatusMessage = statusMessage.String
	span.StartTime = time.Unix(0, startTime)
	if endTime.Valid {
		span.EndTime = time.Unix(0, endTime.Int64)
	}
	if attributes.Valid && attributes.String != "" && attributes.String != "null" {
		if err := json.Unmarshal([]byte(attributes.String), &span.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
	}
	return &span, nil
}
