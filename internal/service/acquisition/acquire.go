package acquisition

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
	"github.com/heartmarshall/wildguess-backend/internal/service/acquisition/quality"
)

// Acquire produces the record for one round. It never fails: upstream
// errors, empty batches and rejected batches each cost one attempt, and
// when attempts run out (or the context ends, or the catalog is
// unavailable) a backup record is returned with Offline set.
//
// Attempts run strictly one after another, so at most one upstream request
// is in flight per call.
func (s *Service) Acquire(ctx context.Context, req Request) Result {
	history := req.History
	if history == nil {
		history = noHistory{}
	}

	species, err := s.catalog.Species(ctx, req.Region)
	if err != nil || len(species) == 0 {
		s.log.WarnContext(ctx, "catalog unavailable, using backup data",
			slog.String("region", req.Region.Name),
			slog.Any("error", err),
		)
		return s.fallback(ctx, req.Region, nil, 0)
	}

	tried := make(map[int]struct{}, s.cfg.MaxAttempts)

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return s.fallback(ctx, req.Region, species, attempt-1)
		}

		sp := s.pick(species, history, tried)
		tried[sp.TaxonID] = struct{}{}

		records, err := s.source.FetchCandidates(ctx, sp.TaxonID, req.Region.PlaceID, s.cfg.BatchSize)
		if err != nil {
			s.log.DebugContext(ctx, "candidate fetch failed",
				slog.Int("attempt", attempt),
				slog.Int("taxon_id", sp.TaxonID),
				slog.String("error", err.Error()),
			)
			continue
		}

		rec, ok := s.firstUsable(ctx, records)
		if !ok {
			s.log.DebugContext(ctx, "no usable candidate",
				slog.Int("attempt", attempt),
				slog.Int("taxon_id", sp.TaxonID),
				slog.Int("candidates", len(records)),
			)
			continue
		}

		round := s.buildRecord(ctx, sp, rec)
		history.Add(ctx, sp.Name)

		s.log.InfoContext(ctx, "candidate acquired",
			slog.String("region", req.Region.Name),
			slog.String("species", sp.Name),
			slog.Int64("observation_id", rec.ID),
			slog.Int("attempts", attempt),
		)
		return Result{Record: round, Attempts: attempt}
	}

	return s.fallback(ctx, req.Region, species, s.cfg.MaxAttempts)
}

// pick draws a species uniformly from those neither played nor tried in
// this call. When history covers the whole catalog the played filter is
// dropped; when every species was tried the tried set starts over.
func (s *Service) pick(species []domain.Species, history PlayedHistory, tried map[int]struct{}) domain.Species {
	pool := make([]domain.Species, 0, len(species))
	for _, sp := range species {
		if _, done := tried[sp.TaxonID]; done || history.Has(sp.Name) {
			continue
		}
		pool = append(pool, sp)
	}

	if len(pool) == 0 {
		for _, sp := range species {
			if _, done := tried[sp.TaxonID]; !done {
				pool = append(pool, sp)
			}
		}
	}

	if len(pool) == 0 {
		clear(tried)
		pool = species
	}

	return pool[s.intN(len(pool))]
}

// firstUsable returns the first record, in upstream order, that passes the
// quality gate and carries a photo.
func (s *Service) firstUsable(ctx context.Context, records []domain.ObservationRecord) (domain.ObservationRecord, bool) {
	for _, rec := range records {
		if rule, rejected := quality.Reason(rec); rejected {
			s.log.DebugContext(ctx, "candidate rejected",
				slog.Int64("observation_id", rec.ID),
				slog.String("rule", string(rule)),
			)
			continue
		}
		if rec.FirstPhotoURL() == "" {
			continue
		}
		return rec, true
	}
	return domain.ObservationRecord{}, false
}

func (s *Service) buildRecord(ctx context.Context, sp domain.Species, rec domain.ObservationRecord) domain.RoundRecord {
	return domain.RoundRecord{
		TaxonID:        sp.TaxonID,
		SpeciesName:    sp.Name,
		ScientificName: sp.ScientificName,
		Category:       sp.Category,
		Emoji:          sp.Emoji,
		ObservationID:  rec.ID,
		PhotoURL:       NormalizePhotoURL(rec.FirstPhotoURL()),
		Location:       rec.Location,
		PlaceGuess:     rec.PlaceGuess,
		Observer:       rec.Observer,
		URI:            rec.URI,
		Hint1:          sp.Hint1,
		Hint2:          sp.Hint2,
		ObservedDate:   formatObservedDate(rec),
		Summary:        s.summary(ctx, sp.TaxonID),
	}
}

// summary is best-effort: failures leave the summary absent and are not cached.
func (s *Service) summary(ctx context.Context, taxonID int) *string {
	if cached, ok := s.summaries.Get(taxonID); ok {
		return cached
	}
	text, err := s.source.FetchSummary(ctx, taxonID)
	if err != nil {
		s.log.WarnContext(ctx, "species summary unavailable",
			slog.Int("taxon_id", taxonID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	s.summaries.Add(taxonID, text)
	return text
}

// fallback draws a backup record, preferring those whose species is in the
// region's catalog so the round stays answerable from the player's options.
func (s *Service) fallback(ctx context.Context, region domain.Region, species []domain.Species, attempts int) Result {
	pool := s.backup
	if len(species) > 0 {
		known := make(map[int]struct{}, len(species))
		for _, sp := range species {
			known[sp.TaxonID] = struct{}{}
		}
		matched := make([]domain.RoundRecord, 0, len(s.backup))
		for _, rec := range s.backup {
			if _, ok := known[rec.TaxonID]; ok {
				matched = append(matched, rec)
			}
		}
		if len(matched) > 0 {
			pool = matched
		}
	}
	rec := pool[s.intN(len(pool))]

	s.log.WarnContext(ctx, "acquisition exhausted, using backup data",
		slog.String("region", region.Name),
		slog.Int("attempts", attempts),
		slog.String("species", rec.SpeciesName),
	)

	return Result{Record: rec, Offline: true, Attempts: attempts}
}

// photoSizes are the reduced-size tokens the photo CDN puts in file names.
var photoSizes = []string{"square", "thumb", "small", "medium", "large"}

// NormalizePhotoURL rewrites a sized photo URL (".../square.jpg") to its
// original-resolution form (".../original.jpg"). Other URLs are returned
// unchanged.
func NormalizePhotoURL(u string) string {
	for _, size := range photoSizes {
		token := "/" + size + "."
		if i := strings.LastIndex(u, token); i >= 0 {
			return u[:i] + "/original." + u[i+len(token):]
		}
	}
	return u
}

func formatObservedDate(rec domain.ObservationRecord) string {
	const layout = "January 2, 2006"
	if t, err := time.Parse(time.DateOnly, rec.ObservedOn); err == nil {
		return t.Format(layout)
	}
	if !rec.CreatedAt.IsZero() {
		return rec.CreatedAt.Format(layout)
	}
	return ""
}

type noHistory struct{}

func (noHistory) Has(string) bool             { return false }
func (noHistory) Add(context.Context, string) {}
