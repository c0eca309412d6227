package logger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T) (*SQLiteWriter, Config) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.EnableConsole = false
	cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "logs.db")
	cfg.FlushInterval = time.Hour

	w, err := NewSQLiteWriter(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, cfg
}

func TestSQLiteWriterQuery(t *testing.T) {
	ctx := context.Background()
	w, cfg := newTestWriter(t)

	log, err := New(cfg, w)
	require.NoError(t, err)

	log.Info("device verified", UserID("u-1"), DeviceID("A1"), Verified(true))
	log.With(RequestID("req-1")).Warn("device registered", UserID("u-2"), DeviceID("B1"))
	log.Debug("below level")

	require.NoError(t, w.Flush(ctx))

	all, total, err := w.Query(ctx, QueryFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	byDevice, total, err := w.Query(ctx, QueryFilter{DeviceID: "A1"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, "device verified", byDevice[0].Message)
	assert.Equal(t, "u-1", byDevice[0].UserID)
	assert.Equal(t, true, byDevice[0].Fields["verified"])

	byRequest, _, err := w.Query(ctx, QueryFilter{RequestID: "req-1", Level: "warn"})
	require.NoError(t, err)
	require.Len(t, byRequest, 1)
	assert.Equal(t, "B1", byRequest[0].DeviceID)

	search, _, err := w.Query(ctx, QueryFilter{Search: "registered"})
	require.NoError(t, err)
	assert.Len(t, search, 1)
}

func TestSQLiteWriterDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWriter(t)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, w.Write(LogEntry{Timestamp: old.UnixMilli(), Level: "info", Message: "old"}))
	require.NoError(t, w.Write(LogEntry{Timestamp: time.Now().UnixMilli(), Level: "info", Message: "new"}))
	require.NoError(t, w.Flush(ctx))

	n, err := w.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	entries, _, err := w.Query(ctx, QueryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Message)
}

func TestSQLiteWriterCloseIsIdempotent(t *testing.T) {
	w, _ := newTestWriter(t)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestFromContext(t *testing.T) {
	l := Nop()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}
