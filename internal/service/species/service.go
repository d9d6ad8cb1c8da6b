package species

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/heartmarshall/wildguess-backend/internal/catalog"
	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

type speciesSource interface {
	Fetch(ctx context.Context) (*catalog.ParseResult, error)
}

// Service serves the per-region species catalog. Each region is loaded once
// and kept until the cache entry expires; concurrent loads of the same
// region share one fetch.
type Service struct {
	log     *slog.Logger
	source  speciesSource
	regions []domain.Region
	cache   *expirable.LRU[string, []domain.Species]
	loads   singleflight.Group
}

// NewService creates a species catalog service. regions keeps its order
// for listing.
func NewService(logger *slog.Logger, source speciesSource, regions []domain.Region, ttl time.Duration) *Service {
	return &Service{
		log:     logger.With("service", "species"),
		source:  source,
		regions: regions,
		cache:   expirable.NewLRU[string, []domain.Species](len(regions)+1, nil, ttl),
	}
}

// Regions lists the playable regions.
func (s *Service) Regions() []domain.Region {
	return slices.Clone(s.regions)
}

// Region resolves a region by name, case-insensitively. An empty name
// selects the first configured region.
func (s *Service) Region(name string) (domain.Region, error) {
	name = strings.TrimSpace(name)
	if name == "" && len(s.regions) > 0 {
		return s.regions[0], nil
	}
	for _, r := range s.regions {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return domain.Region{}, domain.NewValidationError("region", fmt.Sprintf("unknown region %q", name))
}

// Species returns the catalog of region. The returned slice is a copy.
func (s *Service) Species(ctx context.Context, region domain.Region) ([]domain.Species, error) {
	key := strings.ToLower(region.Name)
	if list, ok := s.cache.Get(key); ok {
		return slices.Clone(list), nil
	}

	v, err, _ := s.loads.Do(key, func() (any, error) {
		result, err := s.source.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		list := catalog.ForRegion(result.Species, region)
		s.cache.Add(key, list)

		s.log.InfoContext(ctx, "catalog loaded",
			slog.String("region", region.Name),
			slog.Int("species", len(list)),
			slog.Int("rejected_rows", len(result.Rejected)),
		)
		return list, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load catalog for %s: %w", region.Name, err)
	}

	return slices.Clone(v.([]domain.Species)), nil
}

// Lookup finds a species of region by taxon id.
func (s *Service) Lookup(ctx context.Context, region domain.Region, taxonID int) (domain.Species, error) {
	list, err := s.Species(ctx, region)
	if err != nil {
		return domain.Species{}, err
	}
	for _, sp := range list {
		if sp.TaxonID == taxonID {
			return sp, nil
		}
	}
	return domain.Species{}, fmt.Errorf("species %d in %s: %w", taxonID, region.Name, domain.ErrNotFound)
}

// Invalidate drops every cached region so the next request refetches.
func (s *Service) Invalidate() {
	s.cache.Purge()
}
