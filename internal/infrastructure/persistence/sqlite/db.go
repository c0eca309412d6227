package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// UserModel is the GORM row for a user.
type UserModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	Username     string    `gorm:"type:varchar(80);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	Active       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

// DeviceModel is the GORM row for a user's device binding.
type DeviceModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:uq_user_device,priority:1;index"`
	Token     string    `gorm:"type:varchar(128);not null;uniqueIndex:uq_user_device,priority:2"`
	Verified  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	User UserModel `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:RESTRICT"`
}

func (DeviceModel) TableName() string { return "user_devices" }

const verifiedIndex = `CREATE UNIQUE INDEX IF NOT EXISTS uq_user_devices_verified ON user_devices (user_id) WHERE verified`

// DB wraps a GORM SQLite handle.
type DB struct {
	Gorm *gorm.DB
}

// Open opens (creating if necessary) the SQLite database at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return OpenDSN(path + "?_foreign_keys=on&_busy_timeout=5000")
}

// OpenDSN opens a database from a raw go-sqlite3 DSN.
func OpenDSN(dsn string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite has one writer; transactions share the single connection
	sqlDB.SetMaxOpenConns(1)

	return &DB{Gorm: db}, nil
}

// Migrate creates the users and user_devices tables.
func (db *DB) Migrate(ctx context.Context) error {
	g := db.Gorm.WithContext(ctx)
	if err := g.AutoMigrate(&UserModel{}, &DeviceModel{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := g.Exec(verifiedIndex).Error; err != nil {
		return fmt.Errorf("failed to create verified index: %w", err)
	}
	return nil
}

// Health pings the underlying connection.
func (db *DB) Health(ctx context.Context) error {
	sqlDB, err := db.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) Close() error {
	sqlDB, err := db.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
