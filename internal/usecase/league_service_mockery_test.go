package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/fantasy-hoops/internal/domain/league"
	leaguemock "github.com/riskibarqy/fantasy-hoops/internal/mocks/domain/league"
	"github.com/stretchr/testify/mock"
)

func TestLeagueService_ListByOwner_UsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), "trace_id", "trace-456")
	leagueRepo := leaguemock.NewRepository(t)
	service := NewLeagueService(leagueRepo)

	expected := []league.League{
		{LeagueKey: "428.l.1", OwnerUserID: "user-1", Season: "2025"},
		{LeagueKey: "428.l.2", OwnerUserID: "user-1", Season: "2025"},
	}
	leagueRepo.
		On("ListByOwner", mock.MatchedBy(func(v context.Context) bool { return v == ctx }), "user-1").
		Return(expected, nil).
		Once()

	got, err := service.ListByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(got) != 2 || got[1].LeagueKey != "428.l.2" {
		t.Fatalf("unexpected leagues: %+v", got)
	}
}

func TestLeagueService_Register_PreservesSyncState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	leagueRepo := leaguemock.NewRepository(t)
	service := NewLeagueService(leagueRepo)

	syncedAt := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	existing := league.League{
		LeagueKey:    "428.l.12345",
		OwnerUserID:  "user-1",
		Name:         "Office Hoops",
		Season:       "2024",
		LastSyncedAt: syncedAt,
	}
	leagueRepo.On("GetByKey", mock.Anything, "428.l.12345").Return(existing, true, nil).Once()
	leagueRepo.
		On("Upsert", mock.Anything, mock.MatchedBy(func(item league.League) bool {
			return item.Season == "2025" && item.Name == "Office Hoops" && item.LastSyncedAt.Equal(syncedAt)
		})).
		Return(nil).
		Once()

	got, err := service.Register(ctx, "user-1", RegisterLeagueInput{LeagueKey: "428.l.12345", Season: "2025"})
	if err != nil {
		t.Fatalf("register league: %v", err)
	}
	if got.OwnerUserID != "user-1" {
		t.Fatalf("unexpected owner: %s", got.OwnerUserID)
	}
}

func TestLeagueService_Register_Rejections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	leagueRepo := leaguemock.NewRepository(t)
	service := NewLeagueService(leagueRepo)

	if _, err := service.Register(ctx, "user-1", RegisterLeagueInput{LeagueKey: "nba.l.1", Season: "2025"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad key, got %v", err)
	}

	leagueRepo.
		On("GetByKey", mock.Anything, "428.l.9").
		Return(league.League{LeagueKey: "428.l.9", OwnerUserID: "user-2", Season: "2025"}, true, nil).
		Once()
	if _, err := service.Register(ctx, "user-1", RegisterLeagueInput{LeagueKey: "428.l.9", Season: "2025"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for foreign league, got %v", err)
	}
}
