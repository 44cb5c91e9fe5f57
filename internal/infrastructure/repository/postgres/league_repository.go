package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/league"
	qb "github.com/riskibarqy/fantasy-hoops/internal/platform/querybuilder"
)

type LeagueRepository struct {
	db *sqlx.DB
}

func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

func (r *LeagueRepository) List(ctx context.Context) ([]league.League, error) {
	query, args, err := leagueSelectBuilder().
		Where(qb.IsNull("deleted_at")).
		OrderBy("league_key").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select leagues query: %w", err)
	}

	var rows []leagueTableModel
	if err := retryStatement(ctx, func(ctx context.Context) error {
		rows = rows[:0]
		return r.db.SelectContext(ctx, &rows, query, args...)
	}); err != nil {
		return nil, fmt.Errorf("select leagues: %w", err)
	}

	return leaguesFromRows(rows), nil
}

func (r *LeagueRepository) ListByOwner(ctx context.Context, ownerUserID string) ([]league.League, error) {
	query, args, err := leagueSelectBuilder().
		Where(
			qb.Eq("owner_user_id", ownerUserID),
			qb.IsNull("deleted_at"),
		).
		OrderBy("league_key").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select leagues by owner query: %w", err)
	}

	var rows []leagueTableModel
	if err := retryStatement(ctx, func(ctx context.Context) error {
		rows = rows[:0]
		return r.db.SelectContext(ctx, &rows, query, args...)
	}); err != nil {
		return nil, fmt.Errorf("select leagues by owner: %w", err)
	}

	return leaguesFromRows(rows), nil
}

func (r *LeagueRepository) GetByKey(ctx context.Context, leagueKey string) (league.League, bool, error) {
	query, args, err := leagueSelectBuilder().
		Where(
			qb.Eq("league_key", leagueKey),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return league.League{}, false, fmt.Errorf("build get league by key query: %w", err)
	}

	var row leagueTableModel
	err = retryStatement(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &row, query, args...)
	})
	if err != nil {
		if isNotFound(err) {
			return league.League{}, false, nil
		}
		return league.League{}, false, fmt.Errorf("get league by key: %w", err)
	}

	return leagueFromRow(row), true, nil
}

// Upsert revives a soft-deleted league with the same key.
func (r *LeagueRepository) Upsert(ctx context.Context, item league.League) error {
	builder, err := qb.InsertModel("leagues", leagueInsertModel{
		LeagueKey:    item.LeagueKey,
		OwnerUserID:  item.OwnerUserID,
		Name:         item.Name,
		Season:       item.Season,
		LastSyncedAt: nullTime(item.LastSyncedAt),
		UpdatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("build league insert model: %w", err)
	}
	query, args, err := builder.
		OnConflict("league_key").
		DoUpdate("owner_user_id", "name", "season", "last_synced_at", "updated_at", "deleted_at").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build league upsert query: %w", err)
	}

	if err := retryStatement(ctx, func(ctx context.Context) error {
		_, execErr := r.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return fmt.Errorf("upsert league: %w", err)
	}
	return nil
}

func (r *LeagueRepository) MarkSynced(ctx context.Context, leagueKey string, syncedAt time.Time) error {
	query, args, err := qb.Update("leagues").
		Set("last_synced_at", syncedAt.UTC()).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("league_key", leagueKey),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark league synced query: %w", err)
	}

	var affected int64
	if err := retryStatement(ctx, func(ctx context.Context) error {
		res, execErr := r.db.ExecContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	}); err != nil {
		return fmt.Errorf("mark league synced: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark league synced: league %s not found", leagueKey)
	}
	return nil
}

func leagueSelectBuilder() *qb.SelectBuilder {
	return qb.Select(qb.Columns(leagueTableModel{})...).From("leagues")
}

func leaguesFromRows(rows []leagueTableModel) []league.League {
	out := make([]league.League, 0, len(rows))
	for _, row := range rows {
		out = append(out, leagueFromRow(row))
	}
	return out
}

func leagueFromRow(row leagueTableModel) league.League {
	return league.League{
		LeagueKey:    row.LeagueKey,
		OwnerUserID:  row.OwnerUserID,
		Name:         row.Name,
		Season:       row.Season,
		LastSyncedAt: fromNullTime(row.LastSyncedAt),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
