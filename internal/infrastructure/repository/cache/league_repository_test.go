package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/fantasy-hoops/internal/domain/league"
	leaguemock "github.com/riskibarqy/fantasy-hoops/internal/mocks/domain/league"
	"github.com/stretchr/testify/mock"
)

func TestLeagueRepository_GetByKeyCachesMisses(t *testing.T) {
	t.Parallel()

	next := leaguemock.NewRepository(t)
	next.On("GetByKey", mock.Anything, "428.l.404").Return(league.League{}, false, nil).Once()

	repo := NewLeagueRepository(next, time.Minute)
	for i := 0; i < 3; i++ {
		_, ok, err := repo.GetByKey(context.Background(), "428.l.404")
		if err != nil || ok {
			t.Fatalf("expected cached miss, ok=%v err=%v", ok, err)
		}
	}
}

func TestLeagueRepository_MarkSyncedInvalidates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	stale := league.League{LeagueKey: "428.l.1", OwnerUserID: "u1", Season: "2025"}
	synced := stale
	synced.LastSyncedAt = time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC)

	next := leaguemock.NewRepository(t)
	next.On("GetByKey", mock.Anything, "428.l.1").Return(stale, true, nil).Once()
	next.On("MarkSynced", mock.Anything, "428.l.1", synced.LastSyncedAt).Return(nil).Once()
	next.On("GetByKey", mock.Anything, "428.l.1").Return(synced, true, nil).Once()

	repo := NewLeagueRepository(next, time.Minute)
	if got, _, _ := repo.GetByKey(ctx, "428.l.1"); !got.LastSyncedAt.IsZero() {
		t.Fatalf("expected unsynced league first")
	}
	if err := repo.MarkSynced(ctx, "428.l.1", synced.LastSyncedAt); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	got, _, _ := repo.GetByKey(ctx, "428.l.1")
	if !got.LastSyncedAt.Equal(synced.LastSyncedAt) {
		t.Fatalf("expected fresh read after MarkSynced, got %+v", got)
	}
}

func TestLeagueRepository_UpsertInvalidatesOwnerLists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	item := league.League{LeagueKey: "428.l.1", OwnerUserID: "u1", Season: "2025"}

	next := leaguemock.NewRepository(t)
	next.On("ListByOwner", mock.Anything, "u1").Return(nil, nil).Once()
	next.On("Upsert", mock.Anything, item).Return(nil).Once()
	next.On("ListByOwner", mock.Anything, "u1").Return([]league.League{item}, nil).Once()

	repo := NewLeagueRepository(next, time.Minute)
	if items, _ := repo.ListByOwner(ctx, "u1"); len(items) != 0 {
		t.Fatalf("expected empty list first")
	}
	if items, _ := repo.ListByOwner(ctx, "u1"); len(items) != 0 {
		t.Fatalf("expected cached empty list")
	}
	if err := repo.Upsert(ctx, item); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if items, _ := repo.ListByOwner(ctx, "u1"); len(items) != 1 {
		t.Fatalf("expected refreshed list after upsert, got %d", len(items))
	}
}

func TestLeagueRepository_ErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	next := leaguemock.NewRepository(t)
	next.On("List", mock.Anything).Return(nil, errors.New("db down")).Once()
	next.On("List", mock.Anything).Return([]league.League{{LeagueKey: "428.l.1"}}, nil).Once()

	repo := NewLeagueRepository(next, time.Minute)
	if _, err := repo.List(context.Background()); err == nil {
		t.Fatalf("expected list error")
	}
	items, err := repo.List(context.Background())
	if err != nil || len(items) != 1 {
		t.Fatalf("expected reload after error, items=%v err=%v", items, err)
	}
}
