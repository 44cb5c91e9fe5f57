package leaguesync

import "time"

type Category string

const (
	CategorySettings   Category = "settings"
	CategoryStandings  Category = "standings"
	CategoryMatchups   Category = "matchups"
	CategoryFreeAgents Category = "free_agents"
	CategoryRosters    Category = "rosters"
	CategorySchedule   Category = "schedule"
)

// Categories is the fixed set pulled on every sync, in report order.
func Categories() []Category {
	return []Category{
		CategorySettings,
		CategoryStandings,
		CategoryMatchups,
		CategoryFreeAgents,
		CategoryRosters,
		CategorySchedule,
	}
}

type Trigger string

const (
	TriggerManual     Trigger = "manual"
	TriggerBackground Trigger = "background"
	TriggerSweep      Trigger = "sweep"
)

type Status string

const (
	StatusSynced         Status = "synced"
	StatusPartial        Status = "partial"
	StatusFailed         Status = "failed"
	StatusSkipped        Status = "skipped"
	StatusAlreadyRunning Status = "already_running"
)

type CategoryStatus string

const (
	CategorySuccess CategoryStatus = "success"
	CategoryFailed  CategoryStatus = "failed"
)

type CategoryResult struct {
	Category   Category       `json:"category"`
	Status     CategoryStatus `json:"status"`
	BlobName   string         `json:"blob_name,omitempty"`
	Bytes      int            `json:"bytes"`
	DurationMS int64          `json:"duration_ms"`
	Message    string         `json:"message,omitempty"`
}

// Run is one executed sync of a league. Skipped and already-running requests are never stored.
type Run struct {
	ID         string
	LeagueKey  string
	Trigger    Trigger
	Status     Status
	Categories []CategoryResult
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StatusFor derives the run status from per-category outcomes.
func StatusFor(results []CategoryResult) Status {
	succeeded := 0
	for _, item := range results {
		if item.Status == CategorySuccess {
			succeeded++
		}
	}

	switch {
	case len(results) > 0 && succeeded == len(results):
		return StatusSynced
	case succeeded == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
