package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

// The settings table backs host.SettingsStore. Reads of missing or
// malformed keys yield zero values.

func (db *DB) get(key string) (string, bool) {
	var value string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("Failed to read setting", "key", key, "error", err)
		}
		return "", false
	}
	return value, true
}

func (db *DB) set(key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.conn.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// GetString returns the string stored under key
func (db *DB) GetString(key string) string {
	value, _ := db.get(key)
	return value
}

// GetDouble returns the number stored under key
func (db *DB) GetDouble(key string) float64 {
	value, ok := db.get(key)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("Setting is not a number", "key", key, "value", value)
		return 0
	}
	return f
}

// GetArray returns the list stored under key
func (db *DB) GetArray(key string) []string {
	value, ok := db.get(key)
	if !ok {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(value), &values); err != nil {
		slog.Warn("Setting is not a list", "key", key, "error", err)
		return nil
	}
	return values
}

// HasKey reports whether a value is stored under key
func (db *DB) HasKey(key string) bool {
	_, ok := db.get(key)
	return ok
}

// SetString stores a string under key
func (db *DB) SetString(key, value string) error {
	return db.set(key, value)
}

// SetDouble stores a number under key
func (db *DB) SetDouble(key string, value float64) error {
	return db.set(key, strconv.FormatFloat(value, 'f', -1, 64))
}

// SetArray stores a list under key
func (db *DB) SetArray(key string, values []string) error {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}
	return db.set(key, string(data))
}
