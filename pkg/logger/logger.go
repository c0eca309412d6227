package logger

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the logging interface.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Sync() error
}

// LogEntry is a log record as stored by a LogWriter.
type LogEntry struct {
	ID        int64                  `json:"id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	DeviceID  string                 `json:"device_id,omitempty"`
}

// LogWriter persists log entries.
type LogWriter interface {
	Write(entry LogEntry) error
	Close() error
}

type zapLogger struct {
	logger *zap.Logger
}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger
)

// New creates a Logger. The writer, when non-nil and enabled in cfg, receives
// a copy of every entry at or above cfg.Level. The caller owns the writer.
func New(cfg Config, writer LogWriter) (Logger, error) {
	var cores []zapcore.Core

	level := parseLevel(cfg.Level)

	if cfg.EnableConsole {
		var encoder zapcore.Encoder
		if cfg.Environment == "production" {
			encoderConfig := zap.NewProductionEncoderConfig()
			encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		} else {
			encoderConfig := zap.NewDevelopmentEncoderConfig()
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
			encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	}

	if cfg.EnableSQLite && writer != nil {
		cores = append(cores, &sinkCore{LevelEnabler: level, writer: writer})
	}

	return &zapLogger{
		logger: zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)),
	}, nil
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zapLogger{logger: zap.NewNop()}
}

// Default returns the process logger, a console logger until SetDefault is called.
func Default() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		cfg := DefaultConfig()
		cfg.EnableSQLite = false
		defaultLogger, _ = New(cfg, nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.logger.Debug(msg, fields...) }

func (l *zapLogger) Info(msg string, fields ...Field) { l.logger.Info(msg, fields...) }

func (l *zapLogger) Warn(msg string, fields ...Field) { l.logger.Warn(msg, fields...) }

func (l *zapLogger) Error(msg string, fields ...Field) { l.logger.Error(msg, fields...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{logger: l.logger.With(fields...)}
}

func (l *zapLogger) Sync() error {
	return l.logger.Sync()
}

type contextKey struct{}

// WithContext returns a context with the logger attached.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext retrieves the logger from context, or returns the default logger.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(contextKey{}).(Logger); ok {
		return l
	}
	return Default()
}

// sinkCore forwards entries to a LogWriter.
type sinkCore struct {
	zapcore.LevelEnabler
	writer LogWriter
	fields []Field
}

func (c *sinkCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &sinkCore{LevelEnabler: c.LevelEnabler, writer: c.writer, fields: merged}
}

func (c *sinkCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *sinkCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	record := LogEntry{
		Timestamp: entry.Time.UnixMilli(),
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Caller:    entry.Caller.String(),
		Fields:    enc.Fields,
	}
	record.RequestID, _ = enc.Fields["request_id"].(string)
	record.UserID, _ = enc.Fields["user_id"].(string)
	record.DeviceID, _ = enc.Fields["device_id"].(string)

	return c.writer.Write(record)
}

func (c *sinkCore) Sync() error {
	return nil
}
