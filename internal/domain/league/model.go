package league

import (
	"fmt"
	"regexp"
	"time"
)

// Yahoo league keys are "{game_id}.l.{league_id}", e.g. "428.l.12345".
var keyPattern = regexp.MustCompile(`^\d+\.l\.\d+$`)

// League is a Yahoo Fantasy league registered by a user.
type League struct {
	LeagueKey   string
	OwnerUserID string
	Name        string
	Season      string
	// LastSyncedAt is the last time every category synced successfully. Zero means never.
	LastSyncedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

func (l League) Validate() error {
	if !ValidKey(l.LeagueKey) {
		return fmt.Errorf("league key %q must look like 428.l.12345", l.LeagueKey)
	}
	if l.OwnerUserID == "" {
		return fmt.Errorf("league owner is required")
	}
	if l.Season == "" {
		return fmt.Errorf("league season is required")
	}

	return nil
}

func (l League) OwnedBy(userID string) bool {
	return l.OwnerUserID == userID
}
