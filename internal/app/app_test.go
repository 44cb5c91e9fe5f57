package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/riskibarqy/fantasy-hoops/internal/config"
	"github.com/riskibarqy/fantasy-hoops/internal/infrastructure/syncgate/redisgate"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/logging"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/syncgate"
	"github.com/riskibarqy/fantasy-hoops/internal/usecase"
)

func testConfig() config.Config {
	return config.Config{
		HTTPAddr:              "127.0.0.1:0",
		ShutdownTimeout:       5 * time.Second,
		CORSAllowedOrigins:    []string{"*"},
		InternalJobToken:      "job-token",
		StorageBackend:        config.StorageBackendMemory,
		StaticYahooTokens:     map[string]string{"user-2": "tok-2", "user-1": "tok-1"},
		SyncTTL:               time.Hour,
		SyncDebounce:          30 * time.Second,
		SyncGateBackend:       config.GateBackendMemory,
		SyncCategoryWorkers:   2,
		SyncBackgroundTimeout: time.Minute,
		MetricsEnabled:        true,
	}
}

func TestNew_MemoryBackendServesHealthAndMetrics(t *testing.T) {
	a, err := New(context.Background(), testConfig(), logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

	if a.scheduler != nil {
		t.Fatalf("expected no scheduler when sweep cron is empty")
	}

	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		a.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d body=%s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestNew_RejectsUnknownBackends(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.StorageBackend = "sqlite"
	if _, err := New(context.Background(), cfg, logging.NewNop()); err == nil {
		t.Fatalf("expected error for unknown storage backend")
	}

	cfg = testConfig()
	cfg.SyncGateBackend = "etcd"
	if _, err := New(context.Background(), cfg, logging.NewNop()); err == nil {
		t.Fatalf("expected error for unknown gate backend")
	}

	cfg = testConfig()
	cfg.HTTPAddr = ""
	if _, err := New(context.Background(), cfg, logging.NewNop()); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestNewGate_Redis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.SyncGateBackend = config.GateBackendRedis
	cfg.RedisAddr = mr.Addr()
	cfg.RedisKeyPrefix = "test:sync"

	a := &App{cfg: cfg, logger: logging.NewNop()}
	gate, err := a.newGate(context.Background())
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	t.Cleanup(func() { _ = a.closeAll() })

	if _, ok := gate.(*redisgate.Coordinator); !ok {
		t.Fatalf("expected redis coordinator, got %T", gate)
	}
	if _, ok := gate.TryAcquire(context.Background(), "428.l.1"); !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if !mr.Exists("test:sync:lock:428.l.1") {
		t.Fatalf("expected lock key in redis, keys=%v", mr.Keys())
	}
}

func TestNewGate_RedisUnreachable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.SyncGateBackend = config.GateBackendRedis
	cfg.RedisAddr = addr

	a := &App{cfg: cfg, logger: logging.NewNop()}
	if _, err := a.newGate(context.Background()); err == nil {
		t.Fatalf("expected ping error")
	}
	if len(a.closers) != 0 {
		t.Fatalf("expected no closers registered on failure")
	}
}

func TestNewGate_MemoryUsesConfiguredThresholds(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.SyncTTL = 2 * time.Hour
	a := &App{cfg: cfg, logger: logging.NewNop()}
	gate, err := a.newGate(context.Background())
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	coordinator, ok := gate.(*syncgate.Coordinator)
	if !ok {
		t.Fatalf("expected in-process coordinator, got %T", gate)
	}
	if coordinator.Config().TTL != 2*time.Hour {
		t.Fatalf("unexpected ttl: %s", coordinator.Config().TTL)
	}
}

func TestStaticYahooTokens_SortedByUser(t *testing.T) {
	t.Parallel()

	tokens := staticYahooTokens(map[string]string{"b": "tb", "a": "ta"})
	if len(tokens) != 2 || tokens[0].UserID != "a" || tokens[1].AccessToken != "tb" {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}
	if tokens[0].Provider != "yahoo" || !tokens[0].ExpiresAt.IsZero() {
		t.Fatalf("unexpected seed token: %+v", tokens[0])
	}
}

func TestCircuitBreakerConfig_FillsDefaults(t *testing.T) {
	t.Parallel()

	got := circuitBreakerConfig(config.CircuitConfig{Enabled: true})
	if !got.Enabled || got.FailureThreshold < 1 || got.OpenTimeout <= 0 || got.HalfOpenMaxReq < 1 {
		t.Fatalf("unexpected breaker config: %+v", got)
	}
}

type fakeSweep struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSweep) Run(context.Context) (usecase.SyncSweepResult, error) {
	f.calls.Add(1)
	return usecase.SyncSweepResult{Considered: 1}, f.err
}

func TestNewSweepScheduler(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.SyncSweepCron = "not a schedule"
	if _, err := newSweepScheduler(cfg, &fakeSweep{}, logging.NewNop()); err == nil {
		t.Fatalf("expected invalid schedule error")
	}

	cfg.SyncSweepCron = "@every 1h"
	sweep := &fakeSweep{err: errors.New("boom")}
	c, err := newSweepScheduler(cfg, sweep, logging.NewNop())
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one sweep entry, got %d", len(entries))
	}

	entries[0].WrappedJob.Run()
	if sweep.calls.Load() != 1 {
		t.Fatalf("expected sweep to run once, got %d", sweep.calls.Load())
	}
}
