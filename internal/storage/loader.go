package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/denisok6893-rgb/rental-matching/internal/domain"
)

// LoadPropertiesFromFile reads properties from JSON file and returns a slice of Property.
// Entries that are not JSON objects are skipped.
func LoadPropertiesFromFile(path string) ([]domain.Property, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read properties file: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	props, _ := domain.DecodeProperties(raw)
	return props, nil
}

// LoadPreferencesFromFile reads a single preference record.
func LoadPreferencesFromFile(path string) (domain.PreferenceRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.PreferenceRecord{}, fmt.Errorf("read preferences file: %w", err)
	}

	var prefs domain.PreferenceRecord
	if err := json.Unmarshal(b, &prefs); err != nil {
		return domain.PreferenceRecord{}, fmt.Errorf("unmarshal preferences: %w", err)
	}
	return prefs, nil
}
