package storage

import (
	"fmt"
	"time"
)

// timeFormat matches sqlite's CURRENT_TIMESTAMP layout so DATE() and range
// comparisons work on stored values
const timeFormat = "2006-01-02 15:04:05.000"

// Toggle is a recorded visibility flip
type Toggle struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Edge      string    `json:"edge"`
	Scene     string    `json:"scene"`
	Item      string    `json:"item"`
	Visible   bool      `json:"visible"`
}

// DailyStats represents flip counts for a single day
type DailyStats struct {
	Date     string `json:"date"`
	Toggles  int    `json:"toggles"`
	Presses  int    `json:"presses"`
	Releases int    `json:"releases"`
}

// SceneStats represents flip counts grouped by scene
type SceneStats struct {
	Scene   string `json:"scene"`
	Toggles int    `json:"toggles"`
}

// SaveToggle records a flip
func (db *DB) SaveToggle(t *Toggle) error {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}

	result, err := db.conn.Exec(
		`INSERT INTO toggles (timestamp, edge, scene, item, visible) VALUES (?, ?, ?, ?, ?)`,
		t.Timestamp.UTC().Format(timeFormat), t.Edge, t.Scene, t.Item, t.Visible,
	)
	if err != nil {
		return fmt.Errorf("failed to save toggle: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	t.ID = id
	return nil
}

// GetToggles retrieves toggles with pagination, newest first
func (db *DB) GetToggles(limit, offset int) ([]Toggle, error) {
	query := `
		SELECT id, timestamp, edge, scene, item, visible
		FROM toggles
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query toggles: %w", err)
	}
	defer rows.Close()

	var toggles []Toggle
	for rows.Next() {
		var t Toggle
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.Edge, &t.Scene, &t.Item, &t.Visible); err != nil {
			return nil, fmt.Errorf("failed to scan toggle: %w", err)
		}
		toggles = append(toggles, t)
	}

	return toggles, rows.Err()
}

// GetToggleCount returns the total number of recorded toggles
func (db *DB) GetToggleCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM toggles").Scan(&count)
	return count, err
}

// DeleteToggles clears the toggle history
func (db *DB) DeleteToggles() (int64, error) {
	result, err := db.conn.Exec("DELETE FROM toggles")
	if err != nil {
		return 0, fmt.Errorf("failed to delete toggles: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// GetDailyStats retrieves flip counts grouped by date for the last N days
func (db *DB) GetDailyStats(days int) ([]DailyStats, error) {
	query := `
		SELECT
			DATE(timestamp) as date,
			COUNT(*) as toggles,
			SUM(CASE WHEN edge = 'press' THEN 1 ELSE 0 END) as presses,
			SUM(CASE WHEN edge = 'release' THEN 1 ELSE 0 END) as releases
		FROM toggles
		WHERE timestamp >= ?
		GROUP BY DATE(timestamp)
		ORDER BY date DESC
	`

	since := time.Now().UTC().AddDate(0, 0, -days).Format(timeFormat)
	rows, err := db.conn.Query(query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStats
	for rows.Next() {
		var s DailyStats
		if err := rows.Scan(&s.Date, &s.Toggles, &s.Presses, &s.Releases); err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetSceneStats retrieves flip counts grouped by scene for the last N days
func (db *DB) GetSceneStats(days int) ([]SceneStats, error) {
	query := `
		SELECT scene, COUNT(*) as toggles
		FROM toggles
		WHERE timestamp >= ?
		GROUP BY scene
		ORDER BY toggles DESC
	`

	since := time.Now().UTC().AddDate(0, 0, -days).Format(timeFormat)
	rows, err := db.conn.Query(query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query scene stats: %w", err)
	}
	defer rows.Close()

	var stats []SceneStats
	for rows.Next() {
		var s SceneStats
		if err := rows.Scan(&s.Scene, &s.Toggles); err != nil {
			return nil, fmt.Errorf("failed to scan scene stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}
