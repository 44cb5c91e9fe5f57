// Package redisgate implements the league sync gate on Redis so that several
// API replicas share one lock and one debounce window per league.
package redisgate

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	idgen "github.com/riskibarqy/fantasy-hoops/internal/platform/id"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/logging"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/syncgate"
)

const (
	defaultKeyPrefix = "fantasy-hoops:sync"
	releaseTimeout   = 2 * time.Second
)

// Deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Config struct {
	Gate      syncgate.Config
	KeyPrefix string
}

type Coordinator struct {
	client redis.UniversalClient
	cfg    syncgate.Config
	prefix string
	ids    idgen.Generator
	logger *logging.Logger
	now    func() time.Time
}

func NewCoordinator(client redis.UniversalClient, cfg Config, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Default()
	}
	prefix := strings.TrimRight(strings.TrimSpace(cfg.KeyPrefix), ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &Coordinator{
		client: client,
		cfg:    syncgate.NormalizeConfig(cfg.Gate),
		prefix: prefix,
		ids:    idgen.NewRandomGenerator(),
		logger: logger.Named("redisgate"),
		now:    time.Now,
	}
}

func (c *Coordinator) Config() syncgate.Config {
	return c.cfg
}

func (c *Coordinator) Check(ctx context.Context, leagueKey string, lastSyncedAt time.Time) syncgate.Decision {
	now := c.now()
	if !lastSyncedAt.IsZero() && now.Sub(lastSyncedAt) < c.cfg.TTL {
		return syncgate.DecisionFresh
	}

	lastAttempt, err := c.lastAttempt(ctx, leagueKey)
	if err != nil {
		// The lock still guards against overlap, so a lost debounce read only costs a redundant attempt.
		c.logger.WarnContext(ctx, "read sync attempt failed, skipping debounce", "league_key", leagueKey, "error", err)
		return syncgate.DecisionSync
	}
	if !lastAttempt.IsZero() && now.Sub(lastAttempt) < c.cfg.Debounce {
		return syncgate.DecisionDebounced
	}
	return syncgate.DecisionSync
}

func (c *Coordinator) ShouldSync(ctx context.Context, leagueKey string, lastSyncedAt time.Time) bool {
	return c.Check(ctx, leagueKey, lastSyncedAt) == syncgate.DecisionSync
}

// TryAcquire sets the lock key with NX and the lease as its expiry. The random
// value stored under the key is returned as the lease token. Redis errors are
// treated as "not acquired".
func (c *Coordinator) TryAcquire(ctx context.Context, leagueKey string) (syncgate.Lease, bool) {
	token, err := c.ids.NewID()
	if err != nil {
		c.logger.ErrorContext(ctx, "generate sync lock token failed", "league_key", leagueKey, "error", err)
		return syncgate.Lease{}, false
	}

	ok, err := c.client.SetNX(ctx, c.lockKey(leagueKey), token, c.cfg.Lease).Result()
	if err != nil {
		c.logger.ErrorContext(ctx, "acquire sync lock failed", "league_key", leagueKey, "error", err)
		return syncgate.Lease{}, false
	}
	if !ok {
		return syncgate.Lease{}, false
	}

	now := c.now()
	attempt := strconv.FormatInt(now.UnixMilli(), 10)
	if err := c.client.Set(ctx, c.attemptKey(leagueKey), attempt, c.cfg.IdleRetention).Err(); err != nil {
		c.logger.WarnContext(ctx, "record sync attempt failed", "league_key", leagueKey, "error", err)
	}
	return syncgate.Lease{LeagueKey: leagueKey, Token: token, AcquiredAt: now}, true
}

// Release deletes the lock key only while it still carries the lease token. It runs
// on a context detached from the caller's cancellation so that a sync ending on a
// cancelled request still frees its league.
func (c *Coordinator) Release(ctx context.Context, lease syncgate.Lease) {
	if lease.Token == "" {
		c.logger.WarnContext(ctx, "sync lock release without holder", "league_key", lease.LeagueKey, "reason", "not held")
		return
	}

	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	deleted, err := releaseScript.Run(releaseCtx, c.client, []string{c.lockKey(lease.LeagueKey)}, lease.Token).Int()
	if err != nil {
		c.logger.ErrorContext(ctx, "release sync lock failed", "league_key", lease.LeagueKey, "error", err)
		return
	}
	if deleted == 0 {
		c.logger.WarnContext(ctx, "sync lock release without holder", "league_key", lease.LeagueKey, "reason", "lease expired or taken over")
	}
}

func (c *Coordinator) State(ctx context.Context, leagueKey string) syncgate.State {
	var out syncgate.State

	ttl, err := c.client.PTTL(ctx, c.lockKey(leagueKey)).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "read sync lock ttl failed", "league_key", leagueKey, "error", err)
	} else if ttl > 0 {
		now := c.now()
		out.Held = true
		out.LeaseExpiresAt = now.Add(ttl)
		out.AcquiredAt = out.LeaseExpiresAt.Add(-c.cfg.Lease)
	}

	lastAttempt, err := c.lastAttempt(ctx, leagueKey)
	if err != nil {
		c.logger.WarnContext(ctx, "read sync attempt failed", "league_key", leagueKey, "error", err)
	}
	out.LastAttemptAt = lastAttempt
	return out
}

// Sweep has nothing to drop: lock and attempt keys carry their own expiry in Redis.
func (c *Coordinator) Sweep(_ context.Context) int {
	return 0
}

func (c *Coordinator) lastAttempt(ctx context.Context, leagueKey string) (time.Time, error) {
	raw, err := c.client.Get(ctx, c.attemptKey(leagueKey)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func (c *Coordinator) lockKey(leagueKey string) string {
	return c.prefix + ":lock:" + leagueKey
}

func (c *Coordinator) attemptKey(leagueKey string) string {
	return c.prefix + ":attempt:" + leagueKey
}
