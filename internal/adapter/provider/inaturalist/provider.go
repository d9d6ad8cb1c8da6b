// Package inaturalist reads observations and taxon summaries from the
// iNaturalist v1 API.
package inaturalist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/heartmarshall/wildguess-backend/internal/config"
	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 4 << 20

// Provider talks to the observation API. It performs exactly one HTTP
// request per call; retrying is the caller's business.
type Provider struct {
	baseURL    string
	licenses   string
	userAgent  string
	httpClient *http.Client
	log        *slog.Logger
}

// NewProvider creates a Provider from the observation API settings.
func NewProvider(logger *slog.Logger, cfg config.ObservationConfig) *Provider {
	return &Provider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		licenses:   strings.Join(cfg.Licenses, ","),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.With("adapter", "inaturalist"),
	}
}

// FetchCandidates returns up to pageSize research-grade, photo-bearing,
// license-filtered observations of taxonID. A zero placeID drops the place
// constraint. Transport failures and non-2xx statuses wrap domain.ErrNetwork.
func (p *Provider) FetchCandidates(ctx context.Context, taxonID, placeID, pageSize int) ([]domain.ObservationRecord, error) {
	q := url.Values{}
	q.Set("taxon_id", strconv.Itoa(taxonID))
	q.Set("quality_grade", "research")
	q.Set("photos", "true")
	q.Set("per_page", strconv.Itoa(pageSize))
	if p.licenses != "" {
		q.Set("license", p.licenses)
		q.Set("photo_license", p.licenses)
	}
	if placeID != 0 {
		q.Set("place_id", strconv.Itoa(placeID))
	}

	p.log.DebugContext(ctx, "observations request",
		slog.Int("taxon_id", taxonID),
		slog.Int("place_id", placeID),
	)

	var page apiObservationPage
	status, err := p.getJSON(ctx, "/observations?"+q.Encode(), &page)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("inaturalist: observations status %d: %w", status, domain.ErrNetwork)
	}

	results := page.Results
	if pageSize > 0 && len(results) > pageSize {
		results = results[:pageSize]
	}

	records := make([]domain.ObservationRecord, 0, len(results))
	for _, obs := range results {
		records = append(records, mapObservation(obs))
	}

	p.log.DebugContext(ctx, "observations response",
		slog.Int("taxon_id", taxonID),
		slog.Int("records", len(records)),
		slog.Int("total", page.TotalResults),
	)

	return records, nil
}

// FetchSummary returns the taxon's Wikipedia summary, or nil if the taxon
// has none. The summary is opaque HTML-bearing text.
func (p *Provider) FetchSummary(ctx context.Context, taxonID int) (*string, error) {
	var page apiTaxaPage
	status, err := p.getJSON(ctx, "/taxa/"+strconv.Itoa(taxonID), &page)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("inaturalist: taxa status %d: %w", status, domain.ErrNetwork)
	}

	for _, t := range page.Results {
		if s := strings.TrimSpace(t.WikipediaSummary); s != "" {
			return &s, nil
		}
	}
	return nil, nil
}

// getJSON issues a GET and decodes a 200 body into dst. Non-200 statuses are
// returned without decoding.
func (p *Provider) getJSON(ctx context.Context, path string, dst any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("inaturalist: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.log.WarnContext(ctx, "inaturalist request failed", slog.String("path", path), slog.String("error", err.Error()))
		return 0, fmt.Errorf("inaturalist: request failed: %w: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, fmt.Errorf("inaturalist: read body: %w: %w", domain.ErrNetwork, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return 0, fmt.Errorf("inaturalist: decode json: %w: %w", domain.ErrNetwork, err)
	}
	return resp.StatusCode, nil
}

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

func mapObservation(obs apiObservation) domain.ObservationRecord {
	rec := domain.ObservationRecord{
		ID:                obs.ID,
		PlaceGuess:        obs.PlaceGuess,
		ObservedOn:        obs.ObservedOn,
		URI:               obs.URI,
		Description:       obs.Description,
		OccurrenceRemarks: obs.OccurrenceRemarks,
		FieldNotes:        obs.FieldNotes,
		Tags:              obs.Tags,
		StructuredText:    fieldValuesJSON(obs.FieldValues),
	}
	if obs.Taxon != nil {
		rec.TaxonID = obs.Taxon.ID
	}
	if obs.User != nil {
		rec.Observer = obs.User.Login
	}
	if t, err := time.Parse(time.RFC3339, obs.CreatedAt); err == nil {
		rec.CreatedAt = t
	}
	if obs.GeoJSON != nil && len(obs.GeoJSON.Coordinates) == 2 {
		rec.Location = &domain.Coordinates{
			Lng: obs.GeoJSON.Coordinates[0],
			Lat: obs.GeoJSON.Coordinates[1],
		}
	}

	rec.Photos = make([]domain.Photo, 0, len(obs.Photos))
	for _, ph := range obs.Photos {
		rec.Photos = append(rec.Photos, domain.Photo{
			URL:         ph.URL,
			Description: ph.Description,
			Title:       ph.Title,
		})
	}

	rec.Annotations = make([]domain.Annotation, 0, len(obs.Annotations))
	for _, a := range obs.Annotations {
		rec.Annotations = append(rec.Annotations, domain.Annotation{
			AttributeID: a.ControlledAttributeID,
			ValueID:     a.ControlledValueID,
		})
	}

	return rec
}

// fieldValuesJSON renders observation fields as a {"name":"value"} object.
// Returns "" when there are none.
func fieldValuesJSON(values []apiFieldValue) string {
	if len(values) == 0 {
		return ""
	}
	m := make(map[string]string, len(values))
	for _, v := range values {
		if v.Name == "" {
			continue
		}
		m[v.Name] = v.Value
	}
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
