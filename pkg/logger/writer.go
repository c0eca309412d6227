package logger

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

const logSchema = `
CREATE TABLE IF NOT EXISTS logs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp  INTEGER NOT NULL,
	level      TEXT NOT NULL,
	message    TEXT NOT NULL,
	caller     TEXT,
	fields     TEXT,
	request_id TEXT,
	user_id    TEXT,
	device_id  TEXT
);

CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_logs_level ON logs(level);
CREATE INDEX IF NOT EXISTS idx_logs_request_id ON logs(request_id) WHERE request_id != '';
CREATE INDEX IF NOT EXISTS idx_logs_user_id ON logs(user_id) WHERE user_id != '';
CREATE INDEX IF NOT EXISTS idx_logs_device_id ON logs(device_id) WHERE device_id != '';
`

// SQLiteWriter stores log entries in SQLite. Writes are buffered and
// flushed in batches by a single worker; a full buffer drops entries.
type SQLiteWriter struct {
	db      *sql.DB
	buffer  chan LogEntry
	flushes chan chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	config  Config
	dropped atomic.Int64

	stopOnce sync.Once
}

// NewSQLiteWriter opens (creating if needed) the log database and starts the worker.
func NewSQLiteWriter(cfg Config) (*SQLiteWriter, error) {
	if dir := filepath.Dir(cfg.SQLiteDBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{`PRAGMA journal_mode=WAL`, `PRAGMA synchronous=NORMAL`, logSchema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 100 * time.Millisecond
	}

	w := &SQLiteWriter{
		db:      db,
		buffer:  make(chan LogEntry, cfg.AsyncBufferSize),
		flushes: make(chan chan struct{}),
		done:    make(chan struct{}),
		config:  cfg,
	}

	w.wg.Add(1)
	go w.worker()

	return w, nil
}

// Write queues a log entry.
func (w *SQLiteWriter) Write(entry LogEntry) error {
	select {
	case w.buffer <- entry:
	default:
		w.dropped.Add(1)
	}
	return nil
}

// Dropped reports how many entries were discarded because the buffer was full.
func (w *SQLiteWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Flush blocks until every entry queued before the call is stored.
func (w *SQLiteWriter) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case w.flushes <- ack:
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker after draining the buffer.
func (w *SQLiteWriter) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
		err = w.db.Close()
	})
	return err
}

func (w *SQLiteWriter) worker() {
	defer w.wg.Done()

	batch := make([]LogEntry, 0, w.config.BatchSize)
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	drain := func() {
		for {
			select {
			case entry := <-w.buffer:
				batch = append(batch, entry)
			default:
				w.flush(batch)
				batch = batch[:0]
				return
			}
		}
	}

	for {
		select {
		case entry := <-w.buffer:
			batch = append(batch, entry)
			if len(batch) >= w.config.BatchSize {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			w.flush(batch)
			batch = batch[:0]
		case ack := <-w.flushes:
			drain()
			close(ack)
		case <-w.done:
			drain()
			return
		}
	}
}

func (w *SQLiteWriter) flush(entries []LogEntry) {
	if len(entries) == 0 {
		return
	}

	tx, err := w.db.Begin()
	if err != nil {
		return
	}

	stmt, err := tx.Prepare(`
		INSERT INTO logs (timestamp, level, message, caller, fields, request_id, user_id, device_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return
	}
	defer stmt.Close()

	for _, entry := range entries {
		var fieldsJSON []byte
		if len(entry.Fields) > 0 {
			fieldsJSON, _ = json.Marshal(entry.Fields)
		}
		// a bad entry must not lose the rest of the batch
		_, _ = stmt.Exec(
			entry.Timestamp,
			entry.Level,
			entry.Message,
			entry.Caller,
			string(fieldsJSON),
			entry.RequestID,
			entry.UserID,
			entry.DeviceID,
		)
	}

	tx.Commit()
}

// QueryFilter selects stored log entries. Empty fields match everything.
type QueryFilter struct {
	Level     string
	Search    string
	RequestID string
	UserID    string
	DeviceID  string
	Since     time.Time
	Until     time.Time
	Limit     int
	Offset    int
}

// Query returns matching entries, newest first, and the total match count.
func (w *SQLiteWriter) Query(ctx context.Context, filter QueryFilter) ([]LogEntry, int64, error) {
	var (
		where []string
		args  []interface{}
	)
	eq := func(col, val string) {
		if val != "" {
			where = append(where, col+" = ?")
			args = append(args, val)
		}
	}
	eq("level", filter.Level)
	eq("request_id", filter.RequestID)
	eq("user_id", filter.UserID)
	eq("device_id", filter.DeviceID)
	if filter.Search != "" {
		where = append(where, "message LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}
	if !filter.Since.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, filter.Since.UnixMilli())
	}
	if !filter.Until.IsZero() {
		where = append(where, "timestamp <= ?")
		args = append(args, filter.Until.UnixMilli())
	}

	base := ` FROM logs`
	if len(where) > 0 {
		base += ` WHERE ` + strings.Join(where, " AND ")
	}

	var total int64
	if err := w.db.QueryRowContext(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := w.db.QueryContext(ctx,
		`SELECT id, timestamp, level, message, caller, fields, request_id, user_id, device_id`+base+
			` ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]LogEntry, 0)
	for rows.Next() {
		var entry LogEntry
		var caller, fields, reqID, userID, devID sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.Level, &entry.Message,
			&caller, &fields, &reqID, &userID, &devID); err != nil {
			return nil, 0, err
		}
		entry.Caller = caller.String
		entry.RequestID = reqID.String
		entry.UserID = userID.String
		entry.DeviceID = devID.String
		if fields.String != "" {
			_ = json.Unmarshal([]byte(fields.String), &entry.Fields)
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

// DeleteOlderThan removes logs older than the given time.
func (w *SQLiteWriter) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := w.db.ExecContext(ctx, `DELETE FROM logs WHERE timestamp < ?`, before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// StartCleanupJob deletes entries past the retention window hourly until ctx ends.
func (w *SQLiteWriter) StartCleanupJob(ctx context.Context) {
	if w.config.RetentionDays <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			cutoff := time.Now().AddDate(0, 0, -w.config.RetentionDays)
			_, _ = w.DeleteOlderThan(ctx, cutoff)

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
}
