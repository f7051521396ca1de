// Package history keeps the offline snapshot of the server-side conversation
// history and formats history entries for export.
package history

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/Memphis465/nova/internal/models"
)

// EmptySnapshot is the raw value used when no valid snapshot is stored
const EmptySnapshot = "[]"

// Reader reads values from local storage
type Reader interface {
	Get(key string) (string, bool, error)
}

// Writer writes values to local storage
type Writer interface {
	Set(key, value string) error
	Remove(key string) error
}

// LoadRaw returns the stored snapshot as a raw JSON array.
// Missing, unreadable or malformed snapshots yield EmptySnapshot so callers
// can always embed the result in a response body.
func LoadRaw(store Reader) string {
	if store == nil {
		return EmptySnapshot
	}
	raw, ok, err := store.Get(models.StorageKeyHistory)
	if err != nil || !ok || raw == "" {
		return EmptySnapshot
	}
	if !gjson.Valid(raw) || !gjson.Parse(raw).IsArray() {
		return EmptySnapshot
	}
	return raw
}

// LoadSnapshot decodes the stored snapshot
func LoadSnapshot(store Reader) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	if err := json.Unmarshal([]byte(LoadRaw(store)), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse history snapshot: %w", err)
	}
	return entries, nil
}

// SaveRaw stores a raw JSON array as the snapshot
func SaveRaw(store Writer, raw string) error {
	if !gjson.Valid(raw) || !gjson.Parse(raw).IsArray() {
		return fmt.Errorf("history snapshot must be a JSON array")
	}
	return store.Set(models.StorageKeyHistory, raw)
}

// ClearSnapshot removes the stored snapshot
func ClearSnapshot(store Writer) error {
	return store.Remove(models.StorageKeyHistory)
}
