package league

import (
	"context"
	"time"
)

// Repository describes league persistence needs from use cases.
type Repository interface {
	List(ctx context.Context) ([]League, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]League, error)
	GetByKey(ctx context.Context, leagueKey string) (League, bool, error)
	Upsert(ctx context.Context, item League) error
	MarkSynced(ctx context.Context, leagueKey string, syncedAt time.Time) error
}
