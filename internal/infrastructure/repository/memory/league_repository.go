package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/fantasy-hoops/internal/domain/league"
)

type LeagueRepository struct {
	mu    sync.RWMutex
	items map[string]league.League
	now   func() time.Time
}

func NewLeagueRepository(leagues []league.League) *LeagueRepository {
	items := make(map[string]league.League, len(leagues))
	for _, l := range leagues {
		items[l.LeagueKey] = l
	}

	return &LeagueRepository{
		items: items,
		now:   time.Now,
	}
}

func (r *LeagueRepository) List(_ context.Context) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(func(league.League) bool { return true }), nil
}

func (r *LeagueRepository) ListByOwner(_ context.Context, ownerUserID string) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(func(l league.League) bool { return l.OwnedBy(ownerUserID) }), nil
}

func (r *LeagueRepository) GetByKey(_ context.Context, leagueKey string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.items[leagueKey]
	return l, ok, nil
}

func (r *LeagueRepository) Upsert(_ context.Context, item league.League) error {
	now := r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.items[item.LeagueKey]; ok {
		item.CreatedAt = existing.CreatedAt
	} else if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	r.items[item.LeagueKey] = item
	return nil
}

func (r *LeagueRepository) MarkSynced(_ context.Context, leagueKey string, syncedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[leagueKey]
	if !ok {
		return fmt.Errorf("mark league synced: league %s not found", leagueKey)
	}
	item.LastSyncedAt = syncedAt.UTC()
	item.UpdatedAt = r.now().UTC()
	r.items[leagueKey] = item
	return nil
}

func (r *LeagueRepository) sorted(keep func(league.League) bool) []league.League {
	out := make([]league.League, 0, len(r.items))
	for _, item := range r.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeagueKey < out[j].LeagueKey })
	return out
}
