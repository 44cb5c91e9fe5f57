package httpapi

import (
	"time"

	"github.com/riskibarqy/fantasy-hoops/internal/domain/league"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/leaguesync"
	"github.com/riskibarqy/fantasy-hoops/internal/usecase"
)

type leagueDTO struct {
	LeagueKey    string `json:"league_key"`
	Name         string `json:"name"`
	Season       string `json:"season"`
	LastSyncedAt string `json:"last_synced_at,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type syncLockDTO struct {
	Held           bool   `json:"held"`
	AcquiredAt     string `json:"acquired_at,omitempty"`
	LeaseExpiresAt string `json:"lease_expires_at,omitempty"`
	LastAttemptAt  string `json:"last_attempt_at,omitempty"`
}

type syncStatusDTO struct {
	LeagueKey    string      `json:"league_key"`
	LastSyncedAt string      `json:"last_synced_at,omitempty"`
	Fresh        bool        `json:"fresh"`
	Decision     string      `json:"decision"`
	Lock         syncLockDTO `json:"lock"`
	LatestRun    *syncRunDTO `json:"latest_run,omitempty"`
}

type syncRunDTO struct {
	ID         string                      `json:"id"`
	LeagueKey  string                      `json:"league_key"`
	Trigger    string                      `json:"trigger"`
	Status     string                      `json:"status"`
	Categories []leaguesync.CategoryResult `json:"categories"`
	StartedAt  string                      `json:"started_at"`
	FinishedAt string                      `json:"finished_at,omitempty"`
	DurationMS int64                       `json:"duration_ms"`
}

func leagueToDTO(v league.League) leagueDTO {
	return leagueDTO{
		LeagueKey:    v.LeagueKey,
		Name:         v.Name,
		Season:       v.Season,
		LastSyncedAt: formatOptionalTime(v.LastSyncedAt),
		CreatedAt:    formatOptionalTime(v.CreatedAt),
		UpdatedAt:    formatOptionalTime(v.UpdatedAt),
	}
}

func syncStatusToDTO(v usecase.SyncStatus) syncStatusDTO {
	out := syncStatusDTO{
		LeagueKey:    v.LeagueKey,
		LastSyncedAt: formatOptionalTime(v.LastSyncedAt),
		Fresh:        v.Fresh,
		Decision:     string(v.Decision),
		Lock: syncLockDTO{
			Held:           v.Lock.Held,
			AcquiredAt:     formatOptionalTime(v.Lock.AcquiredAt),
			LeaseExpiresAt: formatOptionalTime(v.Lock.LeaseExpiresAt),
			LastAttemptAt:  formatOptionalTime(v.Lock.LastAttemptAt),
		},
	}
	if v.LatestRun != nil {
		run := syncRunToDTO(*v.LatestRun)
		out.LatestRun = &run
	}
	return out
}

func syncRunToDTO(v leaguesync.Run) syncRunDTO {
	categories := v.Categories
	if categories == nil {
		categories = []leaguesync.CategoryResult{}
	}
	return syncRunDTO{
		ID:         v.ID,
		LeagueKey:  v.LeagueKey,
		Trigger:    string(v.Trigger),
		Status:     string(v.Status),
		Categories: categories,
		StartedAt:  formatOptionalTime(v.StartedAt),
		FinishedAt: formatOptionalTime(v.FinishedAt),
		DurationMS: v.Duration().Milliseconds(),
	}
}

func formatOptionalTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
