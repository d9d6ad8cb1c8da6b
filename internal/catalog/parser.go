// Package catalog parses the static species catalog and bundles the offline
// datasets. Pure functions: bytes in, domain structs out.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

// Column names recognised in the header row. Matching ignores case and
// treats spaces as underscores.
const (
	colTaxonID        = "taxon_id"
	colName           = "name"
	colEmoji          = "emoji"
	colScientificName = "scientific_name"
	colCategory       = "category"
	colHint1          = "hint1"
	colHint2          = "hint2"
	colRegion         = "region"
)

// RejectedRow describes a data row that was dropped during parsing.
type RejectedRow struct {
	Line   int
	Reason string
}

// ParseResult is the outcome of parsing one catalog export.
type ParseResult struct {
	Species  []domain.Species
	Rejected []RejectedRow
}

// Parse reads a catalog CSV. Rows without a numeric taxon id or without a
// name are rejected and reported; quoted cells may contain newlines, which
// become single spaces. Duplicates are kept here, see ForRegion.
func Parse(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &ParseResult{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := indexColumns(header)
	for _, required := range []string{colTaxonID, colName} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("header: missing column %q", required)
		}
	}

	result := &ParseResult{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}

		get := func(col string) string {
			idx, ok := cols[col]
			if !ok || idx >= len(record) {
				return ""
			}
			return cleanCell(record[idx])
		}

		taxonID, err := strconv.Atoi(get(colTaxonID))
		if err != nil || taxonID <= 0 {
			result.Rejected = append(result.Rejected, RejectedRow{Line: line, Reason: "invalid taxon id"})
			continue
		}
		name := get(colName)
		if name == "" {
			result.Rejected = append(result.Rejected, RejectedRow{Line: line, Reason: "missing name"})
			continue
		}

		result.Species = append(result.Species, domain.Species{
			TaxonID:        taxonID,
			Name:           name,
			ScientificName: get(colScientificName),
			Category:       get(colCategory),
			Emoji:          get(colEmoji),
			Hint1:          get(colHint1),
			Hint2:          get(colHint2),
			Region:         get(colRegion),
		})
	}

	return result, nil
}

// ForRegion selects the species of region in source order. Duplicate names
// are dropped, first occurrence wins. The aggregate region also drops
// repeated taxon ids, since guesses are judged by id.
func ForRegion(all []domain.Species, region domain.Region) []domain.Species {
	out := make([]domain.Species, 0, len(all))
	names := make(map[string]struct{}, len(all))
	ids := make(map[int]struct{}, len(all))

	for _, sp := range all {
		if !region.Matches(sp.Region) {
			continue
		}
		if _, dup := names[sp.Name]; dup {
			continue
		}
		if region.IsAny() {
			if _, dup := ids[sp.TaxonID]; dup {
				continue
			}
			ids[sp.TaxonID] = struct{}{}
		}
		names[sp.Name] = struct{}{}
		out = append(out, sp)
	}

	return out
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		if _, seen := cols[key]; !seen {
			cols[key] = i
		}
	}
	return cols
}

// cleanCell flattens embedded line breaks to single spaces and trims.
func cleanCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
	return strings.TrimSpace(s)
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
