// Package syncgate decides when a league may be re-synced and keeps concurrent
// syncs of the same league from overlapping.
//
// A league passes the gate when its last successful sync is older than the TTL
// and no attempt was made within the debounce window. Passing the gate does not
// reserve anything; callers then take the per-league lock with TryAcquire, which
// never blocks, and must Release the returned Lease when done (normally via defer).
// A Lease only frees the lock it was issued for: once a lease expires and another
// caller takes the lock over, releasing the old lease leaves the new holder alone.
package syncgate

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/fantasy-hoops/internal/platform/logging"
)

type Decision string

const (
	DecisionSync      Decision = "sync"
	DecisionFresh     Decision = "fresh"
	DecisionDebounced Decision = "debounced"
)

// State is a point-in-time view of one league's lock.
type State struct {
	Held           bool
	AcquiredAt     time.Time
	LeaseExpiresAt time.Time
	LastAttemptAt  time.Time
}

// Lease identifies one successful TryAcquire.
type Lease struct {
	LeagueKey  string
	Token      string
	AcquiredAt time.Time
}

type leagueLock struct {
	mu          sync.Mutex
	held        bool
	token       string
	acquiredAt  time.Time
	lastAttempt time.Time
	// removed marks an entry dropped from the table; holders of a stale pointer must look it up again.
	removed bool
}

// Coordinator is the in-process sync gate. The zero value is not usable; use NewCoordinator.
type Coordinator struct {
	mu        sync.RWMutex
	locks     map[string]*leagueLock
	lastSweep time.Time
	seq       atomic.Uint64

	cfg    Config
	logger *logging.Logger
	now    func() time.Time
}

func NewCoordinator(cfg Config, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Coordinator{
		locks:  make(map[string]*leagueLock),
		cfg:    NormalizeConfig(cfg),
		logger: logger.Named("syncgate"),
		now:    time.Now,
	}
}

func (c *Coordinator) Config() Config {
	return c.cfg
}

// Check reports whether a league with the given last successful sync should be synced now.
func (c *Coordinator) Check(_ context.Context, leagueKey string, lastSyncedAt time.Time) Decision {
	now := c.now()
	if !lastSyncedAt.IsZero() && now.Sub(lastSyncedAt) < c.cfg.TTL {
		return DecisionFresh
	}

	l := c.lookup(leagueKey)
	if l == nil {
		return DecisionSync
	}

	l.mu.Lock()
	lastAttempt := l.lastAttempt
	l.mu.Unlock()

	if !lastAttempt.IsZero() && now.Sub(lastAttempt) < c.cfg.Debounce {
		return DecisionDebounced
	}
	return DecisionSync
}

func (c *Coordinator) ShouldSync(ctx context.Context, leagueKey string, lastSyncedAt time.Time) bool {
	return c.Check(ctx, leagueKey, lastSyncedAt) == DecisionSync
}

// TryAcquire takes the league lock without waiting. It returns false when another
// holder owns a lease that has not expired yet.
func (c *Coordinator) TryAcquire(ctx context.Context, leagueKey string) (Lease, bool) {
	now := c.now()
	c.maybeSweep(ctx, now)

	for {
		l := c.lockFor(ctx, leagueKey, now)

		l.mu.Lock()
		if l.removed {
			l.mu.Unlock()
			continue
		}

		takeover := false
		previous := l.acquiredAt
		if l.held {
			if now.Sub(l.acquiredAt) < c.cfg.Lease {
				l.mu.Unlock()
				return Lease{}, false
			}
			takeover = true
		}

		lease := Lease{
			LeagueKey:  leagueKey,
			Token:      strconv.FormatUint(c.seq.Add(1), 10),
			AcquiredAt: now,
		}
		l.held = true
		l.token = lease.Token
		l.acquiredAt = now
		l.lastAttempt = now
		l.mu.Unlock()

		if takeover {
			c.logger.WarnContext(ctx, "sync lock lease expired, taking over",
				"league_key", leagueKey,
				"previous_acquired_at", previous,
				"lease", c.cfg.Lease,
			)
		}
		return lease, true
	}
}

// Release frees the lock held under lease. A lease that is no longer current,
// because it expired and was taken over or was already released, only logs a warning.
func (c *Coordinator) Release(ctx context.Context, lease Lease) {
	l := c.lookup(lease.LeagueKey)
	if l == nil {
		c.logger.WarnContext(ctx, "sync lock release without holder", "league_key", lease.LeagueKey, "reason", "unknown league")
		return
	}

	l.mu.Lock()
	held := l.held && !l.removed
	current := held && lease.Token != "" && l.token == lease.Token
	if current {
		l.held = false
		l.token = ""
	}
	l.mu.Unlock()

	switch {
	case current:
	case !held:
		c.logger.WarnContext(ctx, "sync lock release without holder", "league_key", lease.LeagueKey, "reason", "not held")
	default:
		c.logger.WarnContext(ctx, "sync lock release without holder", "league_key", lease.LeagueKey, "reason", "lease taken over")
	}
}

func (c *Coordinator) State(_ context.Context, leagueKey string) State {
	l := c.lookup(leagueKey)
	if l == nil {
		return State{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	out := State{LastAttemptAt: l.lastAttempt}
	if l.held && c.now().Sub(l.acquiredAt) < c.cfg.Lease {
		out.Held = true
		out.AcquiredAt = l.acquiredAt
		out.LeaseExpiresAt = l.acquiredAt.Add(c.cfg.Lease)
	}
	return out
}

// Sweep drops idle leagues whose last attempt is older than the idle retention.
func (c *Coordinator) Sweep(ctx context.Context) int {
	now := c.now()

	c.mu.Lock()
	removed := c.sweepLocked(now)
	c.lastSweep = now
	c.mu.Unlock()

	if removed > 0 {
		c.logger.DebugContext(ctx, "sync locks swept", "removed", removed)
	}
	return removed
}

// Len returns the number of tracked leagues.
func (c *Coordinator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.locks)
}

func (c *Coordinator) lookup(leagueKey string) *leagueLock {
	c.mu.RLock()
	l := c.locks[leagueKey]
	c.mu.RUnlock()
	return l
}

func (c *Coordinator) lockFor(ctx context.Context, leagueKey string, now time.Time) *leagueLock {
	if l := c.lookup(leagueKey); l != nil {
		return l
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.locks[leagueKey]; ok {
		return l
	}

	if len(c.locks) >= c.cfg.MaxEntries {
		c.sweepLocked(now)
		if len(c.locks) >= c.cfg.MaxEntries && !c.evictOldestLocked(now) {
			c.logger.WarnContext(ctx, "sync lock table over capacity, all entries busy",
				"entries", len(c.locks),
				"max_entries", c.cfg.MaxEntries,
			)
		}
	}

	l := &leagueLock{}
	c.locks[leagueKey] = l
	return l
}

func (c *Coordinator) maybeSweep(ctx context.Context, now time.Time) {
	c.mu.RLock()
	due := now.Sub(c.lastSweep) >= c.cfg.SweepInterval
	c.mu.RUnlock()
	if !due {
		return
	}

	c.mu.Lock()
	if now.Sub(c.lastSweep) < c.cfg.SweepInterval {
		c.mu.Unlock()
		return
	}
	removed := c.sweepLocked(now)
	c.lastSweep = now
	c.mu.Unlock()

	if removed > 0 {
		c.logger.DebugContext(ctx, "sync locks swept", "removed", removed)
	}
}

// sweepLocked requires c.mu held for writing.
func (c *Coordinator) sweepLocked(now time.Time) int {
	removed := 0
	for key, l := range c.locks {
		l.mu.Lock()
		if c.idleLocked(l, now) && now.Sub(l.lastAttempt) >= c.cfg.IdleRetention {
			l.removed = true
			delete(c.locks, key)
			removed++
		}
		l.mu.Unlock()
	}
	return removed
}

// evictOldestLocked drops the idle entry with the oldest attempt, skipping entries still
// inside their debounce window. It requires c.mu held for writing.
func (c *Coordinator) evictOldestLocked(now time.Time) bool {
	var (
		victimKey  string
		victim     *leagueLock
		victimSeen time.Time
	)
	for key, l := range c.locks {
		l.mu.Lock()
		evictable := c.evictableLocked(l, now)
		seen := l.lastAttempt
		l.mu.Unlock()
		if !evictable {
			continue
		}
		if victim == nil || seen.Before(victimSeen) {
			victimKey, victim, victimSeen = key, l, seen
		}
	}
	if victim == nil {
		return false
	}

	victim.mu.Lock()
	defer victim.mu.Unlock()
	if !c.evictableLocked(victim, now) {
		return false
	}
	victim.removed = true
	delete(c.locks, victimKey)
	return true
}

func (c *Coordinator) idleLocked(l *leagueLock, now time.Time) bool {
	return !l.held || now.Sub(l.acquiredAt) >= c.cfg.Lease
}

// evictableLocked keeps entries whose debounce window is still open, since dropping
// one would let the league sync again early.
func (c *Coordinator) evictableLocked(l *leagueLock, now time.Time) bool {
	if !c.idleLocked(l, now) {
		return false
	}
	return l.lastAttempt.IsZero() || now.Sub(l.lastAttempt) >= c.cfg.Debounce
}
