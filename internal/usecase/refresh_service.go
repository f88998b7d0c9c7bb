package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/antonahmetgaliev/skf/internal/platform/logging"
)

const (
	defaultRefreshWorkers = 4
	maxRefreshWorkers     = 16

	refreshStatusSuccess = "success"
	refreshStatusFailed  = "failed"
)

type RefreshInput struct {
	ChampionshipIDs []int64
	MaxWorkers      int
}

type RefreshResult struct {
	TaskCount    int                 `json:"task_count"`
	SuccessCount int                 `json:"success_count"`
	FailedCount  int                 `json:"failed_count"`
	WorkerCount  int                 `json:"worker_count"`
	Tasks        []RefreshTaskResult `json:"tasks"`
}

type RefreshTaskResult struct {
	ChampionshipID int64  `json:"championship_id"`
	Status         string `json:"status"`
	Entries        int    `json:"entries"`
	Races          int    `json:"races"`
	DurationMs     int64  `json:"duration_ms"`
	Message        string `json:"message,omitempty"`
}

// RefreshService pre-warms the standings cache for a set of championships so
// viewer traffic rarely waits on the upstream.
type RefreshService struct {
	standings *StandingsService
	logger    *logging.Logger
}

func NewRefreshService(standings *StandingsService, logger *logging.Logger) *RefreshService {
	if logger == nil {
		logger = logging.Default()
	}
	return &RefreshService{
		standings: standings,
		logger:    logger,
	}
}

func (s *RefreshService) Refresh(ctx context.Context, input RefreshInput) (RefreshResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshService.Refresh")
	defer span.End()

	ids := dedupeChampionshipIDs(input.ChampionshipIDs)
	if len(ids) == 0 {
		return RefreshResult{}, fmt.Errorf("%w: at least one championship id is required", ErrInvalidInput)
	}

	workers := input.MaxWorkers
	if workers <= 0 {
		workers = defaultRefreshWorkers
	}
	if workers > maxRefreshWorkers {
		workers = maxRefreshWorkers
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded atomic.Int64
		failed    atomic.Int64
	)
	tasks := make([]RefreshTaskResult, 0, len(ids))

	for _, championshipID := range ids {
		championshipID := championshipID
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			task := s.refreshOne(ctx, championshipID)
			if task.Status == refreshStatusSuccess {
				succeeded.Add(1)
			} else {
				failed.Add(1)
			}
			mu.Lock()
			tasks = append(tasks, task)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			failed.Add(1)
			mu.Lock()
			tasks = append(tasks, RefreshTaskResult{
				ChampionshipID: championshipID,
				Status:         refreshStatusFailed,
				Message:        fmt.Sprintf("submit task: %v", submitErr),
			})
			mu.Unlock()
		}
	}

	wg.Wait()

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ChampionshipID < tasks[j].ChampionshipID
	})

	result := RefreshResult{
		TaskCount:    len(ids),
		SuccessCount: int(succeeded.Load()),
		FailedCount:  int(failed.Load()),
		WorkerCount:  workers,
		Tasks:        tasks,
	}

	s.logger.InfoContext(ctx, "standings refresh finished",
		"task_count", result.TaskCount,
		"success_count", result.SuccessCount,
		"failed_count", result.FailedCount,
		"worker_count", result.WorkerCount,
	)

	return result, nil
}

// RunPeriodic refreshes the configured championships on a fixed interval
// until ctx is cancelled. The first pass runs immediately.
func (s *RefreshService) RunPeriodic(ctx context.Context, interval time.Duration, championshipIDs []int64, maxWorkers int) {
	ids := dedupeChampionshipIDs(championshipIDs)
	if len(ids) == 0 {
		s.logger.Info("periodic standings refresh disabled", "reason", "no championship ids configured")
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	s.logger.Info("periodic standings refresh starting",
		"championship_count", len(ids),
		"interval", interval.String(),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Refresh(ctx, RefreshInput{ChampionshipIDs: ids, MaxWorkers: maxWorkers}); err != nil {
			s.logger.WarnContext(ctx, "periodic standings refresh failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *RefreshService) refreshOne(ctx context.Context, championshipID int64) RefreshTaskResult {
	started := time.Now()
	data, err := s.standings.RefreshStandings(ctx, championshipID)
	task := RefreshTaskResult{
		ChampionshipID: championshipID,
		DurationMs:     time.Since(started).Milliseconds(),
	}
	if err != nil {
		task.Status = refreshStatusFailed
		task.Message = err.Error()
		s.logger.WarnContext(ctx, "standings refresh task failed",
			"championship_id", championshipID,
			"error", err,
		)
		return task
	}

	task.Status = refreshStatusSuccess
	task.Entries = len(data.Entries)
	task.Races = len(data.Races)
	return task
}

func dedupeChampionshipIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
