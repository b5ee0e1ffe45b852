package observation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Metadata is the side-record persisted next to each stream, rewritten at
// shutdown. NumRecords always equals the sum of all flushed batch sizes.
type Metadata struct {
	NumRecords int      `json:"num_records"`
	Tickers    []string `json:"tickers"`
	NumTickers int      `json:"num_tickers"`
}

// LoadMetadata reads a stream's metadata side-record.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stream metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse stream metadata: %w", err)
	}
	return &meta, nil
}

// Write persists the metadata side-record, creating parent directories.
func (m *Metadata) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stream metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write stream metadata: %w", err)
	}
	return nil
}
