package postgres

import (
	"database/sql"
	"time"
)

type leagueTableModel struct {
	LeagueKey    string       `db:"league_key"`
	OwnerUserID  string       `db:"owner_user_id"`
	Name         string       `db:"name"`
	Season       string       `db:"season"`
	LastSyncedAt sql.NullTime `db:"last_synced_at"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
	DeletedAt    *time.Time   `db:"deleted_at"`
}

type leagueInsertModel struct {
	LeagueKey    string       `db:"league_key"`
	OwnerUserID  string       `db:"owner_user_id"`
	Name         string       `db:"name"`
	Season       string       `db:"season"`
	LastSyncedAt sql.NullTime `db:"last_synced_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
	DeletedAt    *time.Time   `db:"deleted_at"`
}
