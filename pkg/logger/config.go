package logger

import "time"

// Config holds the logger configuration.
type Config struct {
	// Level sets the minimum log level (debug, info, warn, error)
	Level string

	// Environment selects the console format: production is JSON, anything
	// else is human readable.
	Environment string

	EnableConsole bool

	// EnableSQLite mirrors entries into the SQLite sink.
	EnableSQLite    bool
	SQLiteDBPath    string
	AsyncBufferSize int
	RetentionDays   int

	// FlushInterval is how often buffered entries are written
	FlushInterval time.Duration
	BatchSize     int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:           "info",
		Environment:     "development",
		EnableConsole:   true,
		EnableSQLite:    true,
		SQLiteDBPath:    "./data/logs.db",
		AsyncBufferSize: 1000,
		RetentionDays:   7,
		FlushInterval:   100 * time.Millisecond,
		BatchSize:       100,
	}
}
