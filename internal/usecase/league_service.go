package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/fantasy-hoops/internal/domain/league"
)

type RegisterLeagueInput struct {
	LeagueKey string `validate:"required"`
	Name      string `validate:"omitempty,max=120"`
	Season    string `validate:"required,numeric,len=4"`
}

type LeagueService struct {
	leagueRepo league.Repository
	now        func() time.Time
}

func NewLeagueService(leagueRepo league.Repository) *LeagueService {
	return &LeagueService{
		leagueRepo: leagueRepo,
		now:        time.Now,
	}
}

func (s *LeagueService) ListByOwner(ctx context.Context, userID string) ([]league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.ListByOwner")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	leagues, err := s.leagueRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list leagues by owner: %w", err)
	}

	return leagues, nil
}

// Register creates the league or updates its name and season. Sync state is preserved.
func (s *LeagueService) Register(ctx context.Context, userID string, input RegisterLeagueInput) (league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.Register")
	defer span.End()

	userID = strings.TrimSpace(userID)
	key := strings.TrimSpace(input.LeagueKey)
	if userID == "" {
		return league.League{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if !league.ValidKey(key) {
		return league.League{}, fmt.Errorf("%w: invalid league key %q", ErrInvalidInput, key)
	}

	existing, exists, err := s.leagueRepo.GetByKey(ctx, key)
	if err != nil {
		return league.League{}, fmt.Errorf("get league: %w", err)
	}
	if exists && !existing.OwnedBy(userID) {
		return league.League{}, fmt.Errorf("%w: league=%s is registered by another user", ErrInvalidInput, key)
	}

	now := s.now().UTC()
	item := league.League{
		LeagueKey:   key,
		OwnerUserID: userID,
		Name:        strings.TrimSpace(input.Name),
		Season:      strings.TrimSpace(input.Season),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if exists {
		item.LastSyncedAt = existing.LastSyncedAt
		item.CreatedAt = existing.CreatedAt
		if item.Name == "" {
			item.Name = existing.Name
		}
	}
	if err := item.Validate(); err != nil {
		return league.League{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.leagueRepo.Upsert(ctx, item); err != nil {
		return league.League{}, fmt.Errorf("upsert league: %w", err)
	}
	return item, nil
}
