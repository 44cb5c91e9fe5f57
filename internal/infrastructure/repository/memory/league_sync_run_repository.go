package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/fantasy-hoops/internal/domain/leaguesync"
)

type LeagueSyncRunRepository struct {
	mu       sync.RWMutex
	items    map[string]leaguesync.Run
	byLeague map[string][]string
}

func NewLeagueSyncRunRepository() *LeagueSyncRunRepository {
	return &LeagueSyncRunRepository{
		items:    make(map[string]leaguesync.Run),
		byLeague: make(map[string][]string),
	}
}

func (r *LeagueSyncRunRepository) Save(_ context.Context, run leaguesync.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[run.ID]; !exists {
		r.byLeague[run.LeagueKey] = append(r.byLeague[run.LeagueKey], run.ID)
	}
	r.items[run.ID] = cloneRun(run)
	return nil
}

func (r *LeagueSyncRunRepository) GetByID(_ context.Context, runID string) (leaguesync.Run, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.items[runID]
	if !ok {
		return leaguesync.Run{}, false, nil
	}
	return cloneRun(run), true, nil
}

func (r *LeagueSyncRunRepository) LatestByLeague(_ context.Context, leagueKey string) (leaguesync.Run, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		latest leaguesync.Run
		found  bool
	)
	for _, id := range r.byLeague[leagueKey] {
		run := r.items[id]
		if !found || !run.StartedAt.Before(latest.StartedAt) {
			latest = run
			found = true
		}
	}
	if !found {
		return leaguesync.Run{}, false, nil
	}
	return cloneRun(latest), true, nil
}

func cloneRun(run leaguesync.Run) leaguesync.Run {
	out := run
	out.Categories = append([]leaguesync.CategoryResult(nil), run.Categories...)
	return out
}
