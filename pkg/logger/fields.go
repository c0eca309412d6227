package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field represents a structured log field.
type Field = zap.Field

func String(key string, val string) Field { return zap.String(key, val) }

func Int(key string, val int) Field { return zap.Int(key, val) }

func Int64(key string, val int64) Field { return zap.Int64(key, val) }

func Bool(key string, val bool) Field { return zap.Bool(key, val) }

func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }

// Error constructs a field with an error value.
func Error(err error) Field { return zap.Error(err) }

// Any constructs a field with any value using reflection.
func Any(key string, val interface{}) Field { return zap.Any(key, val) }

// Request fields. request_id, user_id and device_id are also indexed by the
// SQLite sink.

func RequestID(id string) Field { return String("request_id", id) }

func UserID(id string) Field { return String("user_id", id) }

func Method(method string) Field { return String("method", method) }

func Path(path string) Field { return String("path", path) }

func Status(code int) Field { return Int("status", code) }

func Latency(d time.Duration) Field { return Duration("latency", d) }

func ClientIP(ip string) Field { return String("client_ip", ip) }

func UserAgent(ua string) Field { return String("user_agent", ua) }

// Component identifies the log source.
func Component(name string) Field { return String("component", name) }

// Device registry fields.

func DeviceID(token string) Field { return String("device_id", token) }

func Verified(v bool) Field { return Bool("verified", v) }

func Created(v bool) Field { return Bool("created", v) }

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
