package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/leaguesync"
	qb "github.com/riskibarqy/fantasy-hoops/internal/platform/querybuilder"
)

type LeagueSyncRunRepository struct {
	db *sqlx.DB
}

func NewLeagueSyncRunRepository(db *sqlx.DB) *LeagueSyncRunRepository {
	return &LeagueSyncRunRepository{db: db}
}

func (r *LeagueSyncRunRepository) Save(ctx context.Context, run leaguesync.Run) error {
	row, err := runToRow(run)
	if err != nil {
		return fmt.Errorf("encode sync run categories: %w", err)
	}
	builder, err := qb.InsertModel("league_sync_runs", row)
	if err != nil {
		return fmt.Errorf("build sync run insert model: %w", err)
	}
	query, args, err := builder.
		OnConflict("id").
		DoUpdate("status", "categories", "finished_at").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build sync run insert query: %w", err)
	}

	if err := retryStatement(ctx, func(ctx context.Context) error {
		_, execErr := r.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

func (r *LeagueSyncRunRepository) GetByID(ctx context.Context, runID string) (leaguesync.Run, bool, error) {
	query, args, err := runSelectBuilder().
		Where(qb.Eq("id", runID)).
		ToSQL()
	if err != nil {
		return leaguesync.Run{}, false, fmt.Errorf("build get sync run query: %w", err)
	}
	return r.getOne(ctx, query, args)
}

func (r *LeagueSyncRunRepository) LatestByLeague(ctx context.Context, leagueKey string) (leaguesync.Run, bool, error) {
	query, args, err := runSelectBuilder().
		Where(qb.Eq("league_key", leagueKey)).
		OrderBy("started_at DESC").
		Limit(1).
		ToSQL()
	if err != nil {
		return leaguesync.Run{}, false, fmt.Errorf("build latest sync run query: %w", err)
	}
	return r.getOne(ctx, query, args)
}

func (r *LeagueSyncRunRepository) getOne(ctx context.Context, query string, args []any) (leaguesync.Run, bool, error) {
	var row leagueSyncRunTableModel
	err := retryStatement(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &row, query, args...)
	})
	if err != nil {
		if isNotFound(err) {
			return leaguesync.Run{}, false, nil
		}
		return leaguesync.Run{}, false, fmt.Errorf("get sync run: %w", err)
	}

	run, err := runFromRow(row)
	if err != nil {
		return leaguesync.Run{}, false, fmt.Errorf("decode sync run %s categories: %w", row.ID, err)
	}
	return run, true, nil
}

func runSelectBuilder() *qb.SelectBuilder {
	return qb.Select(qb.Columns(leagueSyncRunTableModel{})...).From("league_sync_runs")
}
