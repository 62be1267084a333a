// Package store is the execution gateway to the occupancy database.
//
// The database is a sqlite file produced by the offline ingestion step with
// two pre-materialized relations:
//
//	spaces(uuid, code, room_name, storey_name, space_type, floor_n, zone)
//	events(space_id, event_ts, occupancy)   -- event_ts in unix millis
//
// The gateway opens it strictly read-only and re-validates every statement
// through sqlguard before execution, so no unvalidated SQL can reach the
// file even if a caller skips its own validation. Result sets are capped at
// the configured row bound while scanning, independent of any LIMIT clause.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
	"github.com/fyrsmithlabs/atlasd/internal/config"
	"github.com/fyrsmithlabs/atlasd/internal/sqlguard"
)

var tracer = otel.Tracer("atlasd.store")

// ErrorKind classifies gateway failures.
type ErrorKind string

const (
	// KindQueryFailed covers store-level runtime errors (unknown column,
	// type mismatch, malformed statement past validation).
	KindQueryFailed ErrorKind = "query_failed"
	// KindTimeout means the statement exceeded the configured budget.
	KindTimeout ErrorKind = "timeout"
	// KindRejected means validation refused the statement.
	KindRejected ErrorKind = "rejected"
)

// ExecutionError is a structured store failure. Never retried: a malformed
// query will not become valid on a second attempt.
type ExecutionError struct {
	Kind   ErrorKind
	Detail string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("store: %s: %s", e.Kind, e.Detail)
}

// Store wraps the read-only sqlite handle. Safe for concurrent use; readers
// never contend beyond sqlite's own read concurrency.
type Store struct {
	db      *sql.DB
	maxRows int
	timeout time.Duration
	logger  *zap.Logger
}

// Open opens the occupancy database read-only.
func Open(cfg config.StoreConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		return nil, fmt.Errorf("store: max rows must be positive, got %d", cfg.MaxRows)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=query_only(1)&_pragma=busy_timeout(5000)",
		url.PathEscape(cfg.Path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", cfg.Path, err)
	}

	logger.Info("occupancy store opened",
		zap.String("path", cfg.Path),
		zap.Int("max_rows", cfg.MaxRows),
	)

	return &Store{
		db:      db,
		maxRows: cfg.MaxRows,
		timeout: cfg.QueryTimeout.Duration(),
		logger:  logger,
	}, nil
}

// MaxRows returns the row cap applied to every result set.
func (s *Store) MaxRows() int {
	return s.maxRows
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Query validates and executes one read-only statement.
//
// The statement passes through sqlguard even when the caller already
// validated it (fail closed), then runs under the configured timeout. Rows
// are capped at MaxRows while scanning, so a template that forgot its LIMIT
// still cannot flood the caller.
func (s *Store) Query(ctx context.Context, sqlText string) (*answer.ResultSet, error) {
	return s.queryArgs(ctx, sqlText)
}

func (s *Store) queryArgs(ctx context.Context, sqlText string, args ...any) (*answer.ResultSet, error) {
	ctx, span := tracer.Start(ctx, "Store.Query")
	defer span.End()

	safe, rej := sqlguard.Validate(sqlText, s.maxRows)
	if rej != nil {
		span.SetStatus(codes.Error, string(rej.Reason))
		return nil, &ExecutionError{Kind: KindRejected, Detail: rej.Error()}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	rows, err := s.db.QueryContext(ctx, safe, args...)
	if err != nil {
		return nil, s.execError(span, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, s.execError(span, err)
	}

	rs := &answer.ResultSet{Columns: cols, Cap: s.maxRows}
	scan := make([]any, len(cols))
	for i := range scan {
		scan[i] = new(any)
	}

	for rows.Next() {
		if len(rs.Rows) >= s.maxRows {
			break
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, s.execError(span, err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(*(scan[i].(*any)))
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, s.execError(span, err)
	}

	rs.RowCount = len(rs.Rows)
	span.SetAttributes(attribute.Int("rows", rs.RowCount))
	return rs, nil
}

func (s *Store) execError(span interface{ SetStatus(codes.Code, string) }, err error) error {
	kind := KindQueryFailed
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	span.SetStatus(codes.Error, err.Error())
	s.logger.Warn("query failed", zap.String("kind", string(kind)), zap.Error(err))
	return &ExecutionError{Kind: kind, Detail: err.Error()}
}

// normalizeValue converts driver-specific scan results into plain values.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
