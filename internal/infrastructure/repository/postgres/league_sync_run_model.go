package postgres

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/leaguesync"
)

// Categories is kept as text so lib/pq sends it as a jsonb literal rather than bytea.
type leagueSyncRunTableModel struct {
	ID         string    `db:"id"`
	LeagueKey  string    `db:"league_key"`
	Trigger    string    `db:"run_trigger"`
	Status     string    `db:"status"`
	Categories string    `db:"categories"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
}

func runToRow(run leaguesync.Run) (leagueSyncRunTableModel, error) {
	categories := run.Categories
	if categories == nil {
		categories = []leaguesync.CategoryResult{}
	}
	raw, err := sonic.Marshal(categories)
	if err != nil {
		return leagueSyncRunTableModel{}, err
	}

	return leagueSyncRunTableModel{
		ID:         run.ID,
		LeagueKey:  run.LeagueKey,
		Trigger:    string(run.Trigger),
		Status:     string(run.Status),
		Categories: string(raw),
		StartedAt:  run.StartedAt.UTC(),
		FinishedAt: run.FinishedAt.UTC(),
	}, nil
}

func runFromRow(row leagueSyncRunTableModel) (leaguesync.Run, error) {
	var categories []leaguesync.CategoryResult
	if len(row.Categories) > 0 {
		if err := sonic.UnmarshalString(row.Categories, &categories); err != nil {
			return leaguesync.Run{}, err
		}
	}

	return leaguesync.Run{
		ID:         row.ID,
		LeagueKey:  row.LeagueKey,
		Trigger:    leaguesync.Trigger(row.Trigger),
		Status:     leaguesync.Status(row.Status),
		Categories: categories,
		StartedAt:  row.StartedAt.UTC(),
		FinishedAt: row.FinishedAt.UTC(),
	}, nil
}
