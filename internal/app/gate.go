package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/fantasy-hoops/internal/config"
	"github.com/riskibarqy/fantasy-hoops/internal/infrastructure/syncgate/redisgate"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/syncgate"
	"github.com/riskibarqy/fantasy-hoops/internal/usecase"
)

const redisPingTimeout = 3 * time.Second

func gateConfig(cfg config.Config) syncgate.Config {
	return syncgate.Config{
		TTL:           cfg.SyncTTL,
		Debounce:      cfg.SyncDebounce,
		Lease:         cfg.SyncLease,
		IdleRetention: cfg.SyncIdleRetention,
		SweepInterval: cfg.SyncSweepInterval,
		MaxEntries:    cfg.SyncMaxEntries,
	}
}

// newGate picks the in-process coordinator for a single replica and Redis when replicas share leagues.
func (a *App) newGate(ctx context.Context) (usecase.SyncGate, error) {
	switch a.cfg.SyncGateBackend {
	case config.GateBackendMemory:
		return syncgate.NewCoordinator(gateConfig(a.cfg), a.logger), nil
	case config.GateBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", a.cfg.RedisAddr, err)
		}
		a.closers = append(a.closers, client.Close)

		return redisgate.NewCoordinator(client, redisgate.Config{
			Gate:      gateConfig(a.cfg),
			KeyPrefix: a.cfg.RedisKeyPrefix,
		}, a.logger), nil
	default:
		return nil, fmt.Errorf("unsupported sync gate backend %q", a.cfg.SyncGateBackend)
	}
}
