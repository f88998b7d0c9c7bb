package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/antonahmetgaliev/skf/external/simgrid"
	"github.com/antonahmetgaliev/skf/internal/domain/standings"
	"github.com/antonahmetgaliev/skf/internal/platform/cache"
	"github.com/antonahmetgaliev/skf/internal/platform/logging"
)

const (
	defaultStandingsTTL       = 60 * time.Second
	defaultMetadataTTL        = 5 * time.Minute
	defaultChampionshipsLimit = 200
	maxChampionshipsLimit     = 500
)

// StandingsProvider is the upstream championship data source.
type StandingsProvider interface {
	ListChampionships(ctx context.Context, limit int) ([]standings.ChampionshipSummary, error)
	GetChampionship(ctx context.Context, championshipID int64) (standings.ChampionshipDetails, error)
	GetStandings(ctx context.Context, championshipID int64) (standings.Data, error)
}

type StandingsServiceConfig struct {
	StandingsTTL time.Duration
	MetadataTTL  time.Duration
}

// StandingsService serves championship standings through a short-lived cache.
// When the upstream rate-limits us, an expired cache entry is still served
// rather than failing the request.
type StandingsService struct {
	provider StandingsProvider
	results  *cache.Store
	metadata *cache.Store
	logger   *logging.Logger
}

func NewStandingsService(provider StandingsProvider, logger *logging.Logger, cfg StandingsServiceConfig) *StandingsService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.StandingsTTL <= 0 {
		cfg.StandingsTTL = defaultStandingsTTL
	}
	if cfg.MetadataTTL <= 0 {
		cfg.MetadataTTL = defaultMetadataTTL
	}

	return &StandingsService{
		provider: provider,
		results:  cache.NewStore(cfg.StandingsTTL),
		metadata: cache.NewStore(cfg.MetadataTTL),
		logger:   logger,
	}
}

func (s *StandingsService) ListChampionships(ctx context.Context, limit int) ([]standings.ChampionshipSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingsService.ListChampionships")
	defer span.End()

	if limit <= 0 {
		limit = defaultChampionshipsLimit
	}
	if limit > maxChampionshipsLimit {
		limit = maxChampionshipsLimit
	}

	key := fmt.Sprintf("championships:list:%d", limit)
	value, err := s.metadata.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return s.provider.ListChampionships(ctx, limit)
	})
	if err != nil {
		return nil, s.upstreamError(ctx, key, "list championships", err)
	}

	items, ok := value.([]standings.ChampionshipSummary)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value for %s", key)
	}
	return items, nil
}

func (s *StandingsService) GetChampionship(ctx context.Context, championshipID int64) (standings.ChampionshipDetails, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingsService.GetChampionship")
	defer span.End()

	if championshipID <= 0 {
		return standings.ChampionshipDetails{}, fmt.Errorf("%w: championship id must be positive", ErrInvalidInput)
	}

	key := fmt.Sprintf("championship:%d", championshipID)
	value, err := s.metadata.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return s.provider.GetChampionship(ctx, championshipID)
	})
	if err != nil {
		return standings.ChampionshipDetails{}, s.upstreamError(ctx, key, "get championship", err)
	}

	details, ok := value.(standings.ChampionshipDetails)
	if !ok {
		return standings.ChampionshipDetails{}, fmt.Errorf("unexpected cache value for %s", key)
	}
	return details, nil
}

func (s *StandingsService) GetStandings(ctx context.Context, championshipID int64) (standings.Data, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingsService.GetStandings")
	defer span.End()

	if championshipID <= 0 {
		return standings.Data{}, fmt.Errorf("%w: championship id must be positive", ErrInvalidInput)
	}

	key := standingsCacheKey(championshipID)
	value, err := s.results.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		return s.provider.GetStandings(ctx, championshipID)
	})
	if err != nil {
		if errors.Is(err, simgrid.ErrRateLimited) {
			if stale, ok, _ := s.results.GetStale(ctx, key); ok {
				data, castOK := stale.(standings.Data)
				if castOK {
					s.logger.WarnContext(ctx, "upstream rate limited, serving stale standings",
						"championship_id", championshipID,
					)
					return data, nil
				}
			}
		}
		return standings.Data{}, s.upstreamError(ctx, key, "get standings", err)
	}

	data, ok := value.(standings.Data)
	if !ok {
		return standings.Data{}, fmt.Errorf("unexpected cache value for %s", key)
	}
	return data, nil
}

// RefreshStandings reloads one championship from the upstream and overwrites
// the cache entry regardless of freshness. Used by the background warmer.
func (s *StandingsService) RefreshStandings(ctx context.Context, championshipID int64) (standings.Data, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingsService.RefreshStandings")
	defer span.End()

	if championshipID <= 0 {
		return standings.Data{}, fmt.Errorf("%w: championship id must be positive", ErrInvalidInput)
	}

	data, err := s.provider.GetStandings(ctx, championshipID)
	if err != nil {
		return standings.Data{}, s.upstreamError(ctx, standingsCacheKey(championshipID), "refresh standings", err)
	}

	s.results.Set(ctx, standingsCacheKey(championshipID), data)
	return data, nil
}

func (s *StandingsService) InvalidateStandings(ctx context.Context, championshipID int64) {
	s.results.Delete(ctx, standingsCacheKey(championshipID))
}

func (s *StandingsService) upstreamError(ctx context.Context, key, op string, err error) error {
	s.logger.WarnContext(ctx, "upstream request failed",
		"operation", op,
		"cache_key", key,
		"error", err,
	)
	return fmt.Errorf("%s: %w: %v", op, ErrDependencyUnavailable, err)
}

func standingsCacheKey(championshipID int64) string {
	return fmt.Sprintf("standings:%d", championshipID)
}
