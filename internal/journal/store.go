// Package journal persists one row per tool call so operators can review
// what agents asked for, how long it took and how it ended. Rows live in
// SQLite by default or in Postgres when a DSN is configured.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Register Postgres SQL driver.
	_ "github.com/lib/pq"
	// Register SQLite SQL driver.
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultSQLitePath is used when the SQLite DSN is empty.
const DefaultSQLitePath = "dockerhub-mcp.db"

// Entry is one recorded tool call.
type Entry struct {
	ID           int64     `json:"id"`
	TraceID      string    `json:"trace_id"`
	Tool         string    `json:"tool"`
	Arguments    string    `json:"arguments"`
	Outcome      string    `json:"outcome"`
	ErrorMessage string    `json:"error_message,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// Query filters List results. Zero values mean "no filter"; Limit defaults
// to 50.
type Query struct {
	Limit   int
	Offset  int
	Tool    string
	Outcome string
	Since   *time.Time
}

// ListResult is a page of entries plus the total matching count.
type ListResult struct {
	Data  []Entry `json:"data"`
	Total int     `json:"total"`
}

// MaintenanceQuery selects entries for deletion.
type MaintenanceQuery struct {
	Before *time.Time
	Tool   string
}

// Writer records tool calls.
type Writer interface {
	Write(ctx context.Context, entry Entry) error
}

// Reader lists recorded tool calls.
type Reader interface {
	List(ctx context.Context, query Query) (ListResult, error)
}

// Maintainer deletes recorded tool calls.
type Maintainer interface {
	Delete(ctx context.Context, query MaintenanceQuery) (int64, error)
}

// NoopWriter ignores all writes.
type NoopWriter struct{}

func (NoopWriter) Write(_ context.Context, _ Entry) error { return nil }

// SQLStore persists entries to SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// Open returns a store for the given driver ("sqlite" or "postgres").
func Open(driver, dsn string) (*SQLStore, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		return NewSQLiteStore(dsn)
	case DriverPostgres:
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("unsupported journal driver %q", driver)
	}
}

// NewSQLiteStore opens a SQLite journal. dsn can be a file path or a SQLite
// DSN.
func NewSQLiteStore(dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = DefaultSQLitePath
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal: %w", err)
	}
	s := &SQLStore{db: db, dialect: DriverSQLite}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore opens a Postgres journal.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres journal: %w", err)
	}
	s := &SQLStore{db: db, dialect: DriverPostgres}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("ping %s journal: %w", s.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS tool_calls (
	id INTEGER PRIMARY KEY,
	trace_id TEXT,
	tool TEXT NOT NULL,
	arguments TEXT NOT NULL,
	outcome TEXT NOT NULL,
	error_message TEXT,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tool_calls_created_at ON tool_calls(created_at);`

	if s.dialect == DriverPostgres {
		ddl = `
CREATE TABLE IF NOT EXISTS tool_calls (
	id BIGSERIAL PRIMARY KEY,
	trace_id TEXT,
	tool TEXT NOT NULL,
	arguments TEXT NOT NULL,
	outcome TEXT NOT NULL,
	error_message TEXT,
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tool_calls_created_at ON tool_calls(created_at);`
	}

	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize journal schema: %w", err)
	}
	return nil
}

// Write inserts entry. A zero CreatedAt is set to the current UTC time.
func (s *SQLStore) Write(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Arguments == "" {
		entry.Arguments = "{}"
	}

	q := s.bind(`INSERT INTO tool_calls(trace_id, tool, arguments, outcome, error_message, duration_ms, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q,
		entry.TraceID,
		entry.Tool,
		entry.Arguments,
		entry.Outcome,
		entry.ErrorMessage,
		entry.DurationMS,
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (s *SQLStore) List(ctx context.Context, query Query) (ListResult, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(query.Offset, 0)

	var (
		conds []string
		args  []any
	)
	if query.Tool != "" {
		conds = append(conds, "tool = ?")
		args = append(args, query.Tool)
	}
	if query.Outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, query.Outcome)
	}
	if query.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, query.Since.UTC())
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, s.bind("SELECT COUNT(*) FROM tool_calls"+where), args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count journal entries: %w", err)
	}

	q := s.bind(`SELECT id, trace_id, tool, arguments, outcome, error_message, duration_ms, created_at
FROM tool_calls` + where + `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`)
	rows, err := s.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list journal entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := ListResult{Data: make([]Entry, 0), Total: total}
	for rows.Next() {
		var (
			e       Entry
			traceID sql.NullString
			errMsg  sql.NullString
		)
		if err := rows.Scan(&e.ID, &traceID, &e.Tool, &e.Arguments, &e.Outcome, &errMsg, &e.DurationMS, &e.CreatedAt); err != nil {
			return ListResult{}, fmt.Errorf("scan journal entry: %w", err)
		}
		e.TraceID = traceID.String
		e.ErrorMessage = errMsg.String
		result.Data = append(result.Data, e)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("list journal entries: %w", err)
	}
	return result, nil
}

// Delete removes entries matching q and returns how many were deleted.
func (s *SQLStore) Delete(ctx context.Context, q MaintenanceQuery) (int64, error) {
	var (
		conds []string
		args  []any
	)
	if q.Before != nil {
		conds = append(conds, "created_at < ?")
		args = append(args, q.Before.UTC())
	}
	if q.Tool != "" {
		conds = append(conds, "tool = ?")
		args = append(args, q.Tool)
	}
	if len(conds) == 0 {
		return 0, fmt.Errorf("delete journal entries: a filter is required")
	}

	res, err := s.db.ExecContext(ctx, s.bind("DELETE FROM tool_calls WHERE "+strings.Join(conds, " AND ")), args...)
	if err != nil {
		return 0, fmt.Errorf("delete journal entries: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) bind(query string) string {
	if s.dialect != DriverPostgres {
		return query
	}
	var (
		b      strings.Builder
		argNum = 1
	)
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			fmt.Fprintf(&b, "$%d", argNum)
			argNum++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
