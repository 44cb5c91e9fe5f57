package leaguesync

import "context"

type Repository interface {
	Save(ctx context.Context, run Run) error
	GetByID(ctx context.Context, runID string) (Run, bool, error)
	LatestByLeague(ctx context.Context, leagueKey string) (Run, bool, error)
}
