// Package acquisition finds a usable observation for the next round: it
// samples species from the regional catalog, asks the observation API for a
// batch of candidates and keeps the first one that passes the quality gate.
// After a bounded number of attempts it falls back to bundled backup data,
// so Acquire always produces a round.
package acquisition

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/heartmarshall/wildguess-backend/internal/domain"
)

const (
	DefaultMaxAttempts = 20
	DefaultBatchSize   = 10
)

type observationSource interface {
	FetchCandidates(ctx context.Context, taxonID, placeID, pageSize int) ([]domain.ObservationRecord, error)
	FetchSummary(ctx context.Context, taxonID int) (*string, error)
}

type speciesCatalog interface {
	Species(ctx context.Context, region domain.Region) ([]domain.Species, error)
}

// PlayedHistory is the set of species names a player has already finished.
// Add must be idempotent.
type PlayedHistory interface {
	Has(name string) bool
	Add(ctx context.Context, name string)
}

// Config bounds the search loop and sizes the summary cache.
type Config struct {
	MaxAttempts      int
	BatchSize        int
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration
}

// Request describes one acquisition.
type Request struct {
	Region  domain.Region
	History PlayedHistory
}

// Result is the outcome of Acquire. Offline is set when the record comes
// from the backup dataset.
type Result struct {
	Record   domain.RoundRecord
	Offline  bool
	Attempts int
}

// Service implements candidate acquisition.
type Service struct {
	log       *slog.Logger
	source    observationSource
	catalog   speciesCatalog
	backup    []domain.RoundRecord
	cfg       Config
	summaries *expirable.LRU[int, *string]

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService creates an acquisition service. backup must not be empty.
func NewService(
	logger *slog.Logger,
	source observationSource,
	catalog speciesCatalog,
	backup []domain.RoundRecord,
	cfg Config,
) (*Service, error) {
	if len(backup) == 0 {
		return nil, fmt.Errorf("acquisition: backup dataset is empty")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.SummaryCacheSize <= 0 {
		cfg.SummaryCacheSize = 256
	}

	return &Service{
		log:       logger.With("service", "acquisition"),
		source:    source,
		catalog:   catalog,
		backup:    backup,
		cfg:       cfg,
		summaries: expirable.NewLRU[int, *string](cfg.SummaryCacheSize, nil, cfg.SummaryCacheTTL),
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}, nil
}

// intN returns a uniform int in [0, n). The generator is shared by
// foreground and prefetch acquisitions.
func (s *Service) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
