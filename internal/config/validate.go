package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Auth.Enabled() && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.Observation.validate(); err != nil {
		return fmt.Errorf("observation: %w", err)
	}
	if err := c.Acquisition.validate(); err != nil {
		return fmt.Errorf("acquisition: %w", err)
	}
	if err := c.Round.validate(); err != nil {
		return fmt.Errorf("round: %w", err)
	}
	if err := c.Catalog.validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must be > 0 (got %d)", c.RateLimit.RequestsPerMinute)
	}
	if c.EventLog.RetentionDays < 1 {
		return fmt.Errorf("event_log.retention_days must be >= 1 (got %d)", c.EventLog.RetentionDays)
	}

	return nil
}

func (o *ObservationConfig) validate() error {
	if strings.TrimSpace(o.BaseURL) == "" {
		return fmt.Errorf("base_url is required")
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", o.Timeout)
	}
	o.Licenses = ParseList(o.LicensesRaw)
	return nil
}

func (a *AcquisitionConfig) validate() error {
	if a.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1 (got %d)", a.MaxAttempts)
	}
	if a.BatchSize < 1 || a.BatchSize > 200 {
		return fmt.Errorf("batch_size must be in [1, 200] (got %d)", a.BatchSize)
	}
	return nil
}

func (r *RoundConfig) validate() error {
	if r.TimerEnabled && r.ClueSeconds < 1 {
		return fmt.Errorf("clue_seconds must be >= 1 when the timer is enabled (got %d)", r.ClueSeconds)
	}
	if r.FeedbackDelay < 0 {
		return fmt.Errorf("feedback_delay must be >= 0 (got %v)", r.FeedbackDelay)
	}
	return nil
}

func (c *CatalogConfig) validate() error {
	regions, err := ParseRegions(c.RegionsRaw)
	if err != nil {
		return fmt.Errorf("regions: %w", err)
	}
	if len(regions) == 0 {
		return fmt.Errorf("regions: at least one region is required")
	}
	c.Regions = regions
	return nil
}

// ParseList splits a comma-separated string, trimming blanks. An empty
// string returns a nil slice.
func ParseList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseRegions parses "Name:placeID" pairs separated by commas, e.g.
// "Any:0,Europe:97391". Names must be unique (case-insensitive).
func ParseRegions(raw string) ([]RegionConfig, error) {
	parts := ParseList(raw)
	regions := make([]RegionConfig, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for _, p := range parts {
		idx := strings.LastIndex(p, ":")
		if idx <= 0 {
			return nil, fmt.Errorf("invalid region %q: want Name:placeID", p)
		}
		name := strings.TrimSpace(p[:idx])
		placeID, err := strconv.Atoi(strings.TrimSpace(p[idx+1:]))
		if err != nil || placeID < 0 {
			return nil, fmt.Errorf("invalid place id in %q", p)
		}

		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate region %q", name)
		}
		seen[key] = struct{}{}

		regions = append(regions, RegionConfig{Name: name, PlaceID: placeID})
	}

	return regions, nil
}
