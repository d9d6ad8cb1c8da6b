package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

//go:embed data/species.csv
var bundledSpecies []byte

//go:embed data/backup.json
var bundledBackup []byte

// BundledCSV returns a reader over the catalog shipped with the binary.
func BundledCSV() io.Reader {
	return bytes.NewReader(bundledSpecies)
}

// Backup returns the fixed offline dataset used when acquisition gives up.
// Every call returns a fresh copy.
func Backup() ([]domain.RoundRecord, error) {
	var records []domain.RoundRecord
	if err := json.Unmarshal(bundledBackup, &records); err != nil {
		return nil, fmt.Errorf("decode backup dataset: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("backup dataset is empty")
	}
	return records, nil
}
