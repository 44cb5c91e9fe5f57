package cache

import (
	"context"
	"time"

	"github.com/riskibarqy/fantasy-hoops/internal/domain/league"
	basecache "github.com/riskibarqy/fantasy-hoops/internal/platform/cache"
)

const (
	leagueListKey        = "league:list"
	leagueOwnerKeyPrefix = "league:owner:"
	leagueKeyPrefix      = "league:key:"
)

type cachedLeague struct {
	value  league.League
	exists bool
}

// LeagueRepository caches league reads and drops affected entries on every write,
// so last_synced_at seen by the sync gate is never older than the last MarkSynced.
type LeagueRepository struct {
	next  league.Repository
	lists *basecache.Store[[]league.League]
	items *basecache.Store[cachedLeague]
}

func NewLeagueRepository(next league.Repository, ttl time.Duration) *LeagueRepository {
	return &LeagueRepository{
		next:  next,
		lists: basecache.NewStore[[]league.League](ttl),
		items: basecache.NewStore[cachedLeague](ttl),
	}
}

func (r *LeagueRepository) List(ctx context.Context) ([]league.League, error) {
	items, err := r.lists.GetOrLoad(ctx, leagueListKey, r.next.List)
	if err != nil {
		return nil, err
	}
	return append([]league.League(nil), items...), nil
}

func (r *LeagueRepository) ListByOwner(ctx context.Context, ownerUserID string) ([]league.League, error) {
	items, err := r.lists.GetOrLoad(ctx, leagueOwnerKeyPrefix+ownerUserID, func(ctx context.Context) ([]league.League, error) {
		return r.next.ListByOwner(ctx, ownerUserID)
	})
	if err != nil {
		return nil, err
	}
	return append([]league.League(nil), items...), nil
}

func (r *LeagueRepository) GetByKey(ctx context.Context, leagueKey string) (league.League, bool, error) {
	cached, err := r.items.GetOrLoad(ctx, leagueKeyPrefix+leagueKey, func(ctx context.Context) (cachedLeague, error) {
		item, exists, err := r.next.GetByKey(ctx, leagueKey)
		if err != nil {
			return cachedLeague{}, err
		}
		return cachedLeague{value: item, exists: exists}, nil
	})
	if err != nil {
		return league.League{}, false, err
	}
	return cached.value, cached.exists, nil
}

func (r *LeagueRepository) Upsert(ctx context.Context, item league.League) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	// Ownership may have moved, so every owner list is suspect.
	r.lists.DeletePrefix(ctx, leagueOwnerKeyPrefix)
	r.lists.Delete(ctx, leagueListKey)
	r.items.Delete(ctx, leagueKeyPrefix+item.LeagueKey)
	return nil
}

func (r *LeagueRepository) MarkSynced(ctx context.Context, leagueKey string, syncedAt time.Time) error {
	err := r.next.MarkSynced(ctx, leagueKey, syncedAt)
	r.items.Delete(ctx, leagueKeyPrefix+leagueKey)
	r.lists.Delete(ctx, leagueListKey)
	r.lists.DeletePrefix(ctx, leagueOwnerKeyPrefix)
	return err
}
