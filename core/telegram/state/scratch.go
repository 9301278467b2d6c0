package state

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// SetTempJSON stores v as a JSON string under key.
func SetTempJSON(m Manager, userID int64, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	m.SetTemp(userID, key, string(raw))
	return nil
}

// TempJSON decodes the JSON value stored under key. A missing key yields
// ErrExpiredSelection.
func TempJSON[T any](m Manager, userID int64, key string) (T, error) {
	var out T
	raw, ok := m.GetTemp(userID, key)
	if !ok || raw == "" {
		return out, ErrExpiredSelection
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return out, nil
}

// TempInt64 parses the value under key. A missing or malformed value yields
// ErrExpiredSelection.
func TempInt64(m Manager, userID int64, key string) (int64, error) {
	raw, ok := m.GetTemp(userID, key)
	if !ok {
		return 0, ErrExpiredSelection
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrExpiredSelection
	}
	return v, nil
}
