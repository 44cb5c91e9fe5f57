package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/league"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/leaguesync"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/logging"
)

const defaultSweepWorkers = 4

type LeagueSyncer interface {
	SyncLeague(ctx context.Context, input SyncLeagueInput) (SyncLeagueResult, error)
}

type SyncSweepConfig struct {
	Workers int
}

type SyncSweepResult struct {
	Considered     int   `json:"considered"`
	Stale          int   `json:"stale"`
	Synced         int   `json:"synced"`
	Partial        int   `json:"partial"`
	Skipped        int   `json:"skipped"`
	AlreadyRunning int   `json:"already_running"`
	Failed         int   `json:"failed"`
	LocksSwept     int   `json:"locks_swept"`
	DurationMs     int64 `json:"duration_ms"`
}

// SyncSweepService re-syncs every league whose data went stale, then prunes idle gate entries.
type SyncSweepService struct {
	leagueRepo league.Repository
	gate       SyncGate
	syncer     LeagueSyncer
	cfg        SyncSweepConfig
	logger     *logging.Logger

	running atomic.Bool
}

func NewSyncSweepService(
	leagueRepo league.Repository,
	gate SyncGate,
	syncer LeagueSyncer,
	cfg SyncSweepConfig,
	logger *logging.Logger,
) *SyncSweepService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultSweepWorkers
	}

	return &SyncSweepService{
		leagueRepo: leagueRepo,
		gate:       gate,
		syncer:     syncer,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *SyncSweepService) Run(ctx context.Context) (SyncSweepResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncSweepService.Run")
	defer span.End()

	// Cron and the internal endpoint may overlap; the second caller backs off.
	if !s.running.CompareAndSwap(false, true) {
		return SyncSweepResult{}, fmt.Errorf("%w: sync sweep already running", ErrDependencyUnavailable)
	}
	defer s.running.Store(false)

	start := time.Now()
	leagues, err := s.leagueRepo.List(ctx)
	if err != nil {
		return SyncSweepResult{}, fmt.Errorf("list leagues: %w", err)
	}

	stale := make([]league.League, 0, len(leagues))
	for _, item := range leagues {
		if s.gate.ShouldSync(ctx, item.LeagueKey, item.LastSyncedAt) {
			stale = append(stale, item)
		}
	}

	result := SyncSweepResult{
		Considered: len(leagues),
		Stale:      len(stale),
		Skipped:    len(leagues) - len(stale),
	}

	if len(stale) > 0 {
		counts, err := s.syncAll(ctx, stale)
		if err != nil {
			return SyncSweepResult{}, err
		}
		result.Synced = counts.synced
		result.Partial = counts.partial
		result.Skipped += counts.skipped
		result.AlreadyRunning = counts.alreadyRunning
		result.Failed = counts.failed
	}

	result.LocksSwept = s.gate.Sweep(ctx)
	result.DurationMs = time.Since(start).Milliseconds()

	s.logger.InfoContext(ctx, "sync sweep finished",
		"considered", result.Considered,
		"stale", result.Stale,
		"synced", result.Synced,
		"partial", result.Partial,
		"already_running", result.AlreadyRunning,
		"failed", result.Failed,
		"locks_swept", result.LocksSwept,
	)
	return result, nil
}

type sweepCounts struct {
	synced, partial, skipped, alreadyRunning, failed int
}

func (s *SyncSweepService) syncAll(ctx context.Context, leagues []league.League) (sweepCounts, error) {
	workerCount := s.cfg.Workers
	if workerCount > len(leagues) {
		workerCount = len(leagues)
	}
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return sweepCounts{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		counts  sweepCounts
		workers sync.WaitGroup
	)
	for _, item := range leagues {
		item := item
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			res, err := s.syncer.SyncLeague(ctx, SyncLeagueInput{
				LeagueKey: item.LeagueKey,
				Trigger:   leaguesync.TriggerSweep,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				counts.failed++
				s.logger.WarnContext(ctx, "sweep league sync failed", "league_key", item.LeagueKey, "error", err)
				return
			}
			switch res.Status {
			case leaguesync.StatusSynced:
				counts.synced++
			case leaguesync.StatusPartial:
				counts.partial++
			case leaguesync.StatusSkipped:
				counts.skipped++
			case leaguesync.StatusAlreadyRunning:
				counts.alreadyRunning++
			default:
				counts.failed++
			}
		}); err != nil {
			workers.Done()
			return sweepCounts{}, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}

	workers.Wait()
	return counts, nil
}
