// Package sheet downloads a published spreadsheet CSV export of the species
// catalog.
package sheet

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/heartmarshall/wildguess-backend/internal/catalog"
	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

// maxCSVBytes caps the size of a catalog export.
const maxCSVBytes = 8 << 20

// Provider fetches and parses a remote catalog export.
type Provider struct {
	url        string
	httpClient *http.Client
	log        *slog.Logger
}

// NewProvider creates a Provider for the given CSV export URL.
func NewProvider(logger *slog.Logger, url string, timeout time.Duration) *Provider {
	return &Provider{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.With("adapter", "sheet"),
	}
}

// Fetch downloads the export and parses it.
func (p *Provider) Fetch(ctx context.Context) (*catalog.ParseResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("sheet: create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheet: request failed: %w: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet: unexpected status %d: %w", resp.StatusCode, domain.ErrNetwork)
	}

	result, err := catalog.Parse(io.LimitReader(resp.Body, maxCSVBytes))
	if err != nil {
		return nil, fmt.Errorf("sheet: %w", err)
	}

	if len(result.Rejected) > 0 {
		p.log.WarnContext(ctx, "catalog rows rejected",
			slog.Int("rejected", len(result.Rejected)),
			slog.Int("first_line", result.Rejected[0].Line),
		)
	}
	p.log.DebugContext(ctx, "catalog fetched", slog.Int("species", len(result.Species)))

	return result, nil
}

// Bundled serves the catalog compiled into the binary.
type Bundled struct{}

// Fetch parses the bundled catalog.
func (Bundled) Fetch(_ context.Context) (*catalog.ParseResult, error) {
	return catalog.Parse(catalog.BundledCSV())
}
