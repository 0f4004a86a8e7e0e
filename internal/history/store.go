package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"strata/internal/core/ports"
	"strata/internal/shared/observability"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Store is the sqlite-backed audit log of served operations. It is
// optional; when disabled the service runs without one.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

var _ ports.AuditStore = (*Store)(nil)

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("audit store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("audit store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit store directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts under concurrent writes
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite audit store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite audit store %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) Record(ctx context.Context, entry ports.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	observability.AuditQueueDepth.Inc()
	defer observability.AuditQueueDepth.Dec()

	truncated := 0
	if entry.Truncated {
		truncated = 1
	}
	return s.withRetry("record audit entry", func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO audit_entries (id, operation, path, duration_us, row_count, truncated, created_at_utc)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
			entry.ID,
			entry.Operation,
			entry.Path,
			entry.Duration.Microseconds(),
			entry.RowCount,
			truncated,
			entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

func (s *Store) Recent(ctx context.Context, limit int) ([]ports.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	err := s.withRetry("load audit entries", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT id, operation, path, duration_us, row_count, truncated, created_at_utc
FROM audit_entries
ORDER BY created_at_utc DESC
LIMIT ?
`, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]ports.AuditEntry, 0, limit)
	for rows.Next() {
		var (
			entry      ports.AuditEntry
			durationUS int64
			truncated  int
			createdRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.Operation, &entry.Path, &durationUS, &entry.RowCount, &truncated, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		entry.Duration = time.Duration(durationUS) * time.Microsecond
		entry.Truncated = truncated != 0

		created, err := time.Parse(time.RFC3339Nano, createdRaw)
		if err != nil {
			return nil, fmt.Errorf("parse audit timestamp %q: %w", createdRaw, err)
		}
		entry.CreatedAt = created.UTC()

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return entries, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
