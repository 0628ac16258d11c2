package db

import (
	"fmt"

	"eve-data-hub/internal/logger"
	"eve-data-hub/internal/staticdata"
)

// Preference keys mirroring the keys the hosted viewer kept in localStorage.
const (
	PrefSelectedTypeID = "selectedTypeID"
	PrefSelectedRegion = "selectedRegion"
	PrefCookieConsent  = "cookieConsent"
)

// GetPref reads a single preference. The second return is false when the key
// has never been set.
func (d *DB) GetPref(key string) (string, bool) {
	var value string
	err := d.sql.QueryRow("SELECT value FROM prefs WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// SetPref writes a single preference. Fire-and-forget: failures are logged,
// never propagated.
func (d *DB) SetPref(key, value string) {
	_, err := d.sql.Exec(
		"INSERT INTO prefs (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		logger.Warn("DB", fmt.Sprintf("SetPref %s failed: %v", key, err))
	}
}

// DeletePref removes a preference if present.
func (d *DB) DeletePref(key string) {
	d.sql.Exec("DELETE FROM prefs WHERE key = ?", key)
}

// LoadQuickbar reads the persisted quickbar list in stored order.
func (d *DB) LoadQuickbar() []staticdata.FlatItem {
	rows, err := d.sql.Query("SELECT type_id, name FROM quickbar ORDER BY position")
	if err != nil {
		return nil
	}
	defer rows.Close()

	var items []staticdata.FlatItem
	for rows.Next() {
		var it staticdata.FlatItem
		if err := rows.Scan(&it.TypeID, &it.Name); err != nil {
			continue
		}
		items = append(items, it)
	}
	return items
}

// SaveQuickbar replaces the persisted quickbar list wholesale, matching the
// persist-whole-list-on-every-mutation behavior of the viewer.
func (d *DB) SaveQuickbar(items []staticdata.FlatItem) {
	tx, err := d.sql.Begin()
	if err != nil {
		logger.Warn("DB", fmt.Sprintf("SaveQuickbar begin failed: %v", err))
		return
	}
	defer tx.Rollback()

	tx.Exec("DELETE FROM quickbar")
	stmt, err := tx.Prepare("INSERT INTO quickbar (position, type_id, name) VALUES (?, ?, ?)")
	if err != nil {
		logger.Warn("DB", fmt.Sprintf("SaveQuickbar prepare failed: %v", err))
		return
	}
	defer stmt.Close()

	for i, it := range items {
		stmt.Exec(i, it.TypeID, it.Name)
	}
	if err := tx.Commit(); err != nil {
		logger.Warn("DB", fmt.Sprintf("SaveQuickbar commit failed: %v", err))
	}
}
