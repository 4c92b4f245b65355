package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// kvEntry is one row of the sqlite-backed store.
type kvEntry struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string {
	return "kv_entries"
}

// SQLStore implements Store on a gorm database.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) a sqlite database at path and migrates
// the key-value table.
func OpenSQLite(path string) (*SQLStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	return NewSQLStore(db)
}

// NewSQLStore wraps an existing gorm handle.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Read returns the value for key.
func (s *SQLStore) Read(key string) (string, bool, error) {
	var entry kvEntry
	err := s.db.Where("key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read state: %w", err)
	}
	return entry.Value, true, nil
}

// Write upserts value under key.
func (s *SQLStore) Write(key, value string) error {
	entry := kvEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *SQLStore) Delete(key string) error {
	if err := s.db.Where("key = ?", key).Delete(&kvEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
