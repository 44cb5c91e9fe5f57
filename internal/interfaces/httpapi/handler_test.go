package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/league"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/leaguesync"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/user"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/logging"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/syncgate"
	"github.com/riskibarqy/fantasy-hoops/internal/usecase"
)

const testJobToken = "job-secret"

type fakeVerifier struct{}

func (fakeVerifier) VerifyAccessToken(_ context.Context, token string) (user.Principal, error) {
	if token != "good-token" {
		return user.Principal{}, fmt.Errorf("%w: token inactive", usecase.ErrUnauthorized)
	}
	return user.Principal{UserID: "user-1"}, nil
}

type fakeRegistry struct {
	registered []usecase.RegisterLeagueInput
}

func (f *fakeRegistry) ListByOwner(_ context.Context, userID string) ([]league.League, error) {
	return []league.League{{LeagueKey: "428.l.1", OwnerUserID: userID, Season: "2025"}}, nil
}

func (f *fakeRegistry) Register(_ context.Context, userID string, input usecase.RegisterLeagueInput) (league.League, error) {
	f.registered = append(f.registered, input)
	return league.League{LeagueKey: input.LeagueKey, OwnerUserID: userID, Name: input.Name, Season: input.Season}, nil
}

type fakeSyncer struct {
	inputs     []usecase.SyncLeagueInput
	triggered  bool
	triggerErr error
	runs       map[string]leaguesync.Run
}

func (f *fakeSyncer) SyncLeague(_ context.Context, input usecase.SyncLeagueInput) (usecase.SyncLeagueResult, error) {
	f.inputs = append(f.inputs, input)
	if input.LeagueKey == "999.l.9" {
		return usecase.SyncLeagueResult{}, fmt.Errorf("%w: league=%s", usecase.ErrNotFound, input.LeagueKey)
	}
	return usecase.SyncLeagueResult{LeagueKey: input.LeagueKey, Trigger: input.Trigger, Status: leaguesync.StatusSynced, SuccessCount: 6}, nil
}

func (f *fakeSyncer) TriggerBackgroundSync(_ context.Context, _ string, _ string) (bool, error) {
	return f.triggered, f.triggerErr
}

func (f *fakeSyncer) GetSyncStatus(_ context.Context, leagueKey, _ string) (usecase.SyncStatus, error) {
	return usecase.SyncStatus{
		LeagueKey:    leagueKey,
		LastSyncedAt: time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC),
		Fresh:        true,
		Decision:     syncgate.DecisionFresh,
	}, nil
}

func (f *fakeSyncer) GetRun(_ context.Context, runID string) (leaguesync.Run, error) {
	run, ok := f.runs[runID]
	if !ok {
		return leaguesync.Run{}, fmt.Errorf("%w: sync run=%s", usecase.ErrNotFound, runID)
	}
	return run, nil
}

type fakeSweeper struct {
	calls int
}

func (f *fakeSweeper) Run(context.Context) (usecase.SyncSweepResult, error) {
	f.calls++
	return usecase.SyncSweepResult{Considered: 3, Stale: 1, Synced: 1}, nil
}

type testServer struct {
	router   http.Handler
	registry *fakeRegistry
	syncer   *fakeSyncer
	sweeper  *fakeSweeper
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		registry: &fakeRegistry{},
		syncer:   &fakeSyncer{triggered: true, runs: map[string]leaguesync.Run{}},
		sweeper:  &fakeSweeper{},
	}
	handler := NewHandler(ts.registry, ts.syncer, ts.sweeper, logging.NewNop())
	ts.router = NewRouter(handler, fakeVerifier{}, logging.NewNop(), RouterConfig{
		InternalJobToken: testJobToken,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
	})
	return ts
}

func (ts *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

var authed = map[string]string{"Authorization": "Bearer good-token"}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v (%s)", err, rec.Body.String())
	}
	return body.Data
}

func TestRouter_HealthzAndMetrics(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	if rec := ts.do(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rec.Code)
	}
	rec := ts.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "# metrics") {
		t.Fatalf("metrics status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRouter_RequiresBearerToken(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	if rec := ts.do(http.MethodGet, "/v1/leagues", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header status=%d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/v1/leagues", "", map[string]string{"Authorization": "Basic abc"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("basic scheme status=%d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/v1/leagues", "", map[string]string{"Authorization": "Bearer stale"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("inactive token status=%d", rec.Code)
	}
	if rec := ts.do(http.MethodGet, "/v1/leagues", "", authed); rec.Code != http.StatusOK {
		t.Fatalf("authorized status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRegisterLeague_ValidatesBody(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(http.MethodPut, "/v1/leagues/428.l.12345", `{"name":"Hoops","season":"25"}`, authed)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short season, got %d", rec.Code)
	}
	rec = ts.do(http.MethodPut, "/v1/leagues/428.l.12345", `{"name":`, authed)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for broken JSON, got %d", rec.Code)
	}

	rec = ts.do(http.MethodPut, "/v1/leagues/428.l.12345", `{"name":"Hoops","season":"2025"}`, authed)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if len(ts.registry.registered) != 1 || ts.registry.registered[0].LeagueKey != "428.l.12345" {
		t.Fatalf("unexpected register calls: %+v", ts.registry.registered)
	}
	if got := decodeData(t, rec)["league_key"]; got != "428.l.12345" {
		t.Fatalf("unexpected league_key %v", got)
	}
}

func TestSyncLeague_PassesForceAndOwner(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/leagues/428.l.1/sync", `{"force":true}`, authed)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if len(ts.syncer.inputs) != 1 {
		t.Fatalf("expected one sync call, got %d", len(ts.syncer.inputs))
	}
	input := ts.syncer.inputs[0]
	if !input.Force || input.UserID != "user-1" || input.Trigger != leaguesync.TriggerManual {
		t.Fatalf("unexpected sync input: %+v", input)
	}
	if got := decodeData(t, rec)["status"]; got != "synced" {
		t.Fatalf("unexpected status %v", got)
	}

	rec = ts.do(http.MethodPost, "/v1/leagues/428.l.1/sync", "", authed)
	if rec.Code != http.StatusOK || ts.syncer.inputs[1].Force {
		t.Fatalf("empty body should sync without force: code=%d input=%+v", rec.Code, ts.syncer.inputs[1])
	}

	rec = ts.do(http.MethodPost, "/v1/leagues/999.l.9/sync", "", authed)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown league, got %d", rec.Code)
	}
}

func TestGetSyncStatus(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/v1/leagues/428.l.1/sync", "", authed)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeData(t, rec)
	if data["fresh"] != true || data["decision"] != "fresh" || data["last_synced_at"] != "2025-01-10T12:00:00Z" {
		t.Fatalf("unexpected status payload: %+v", data)
	}
}

func TestOpenChat_Accepted(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/leagues/428.l.1/chat/open", "", authed)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	data := decodeData(t, rec)
	if data["league_key"] != "428.l.1" || data["sync_triggered"] != true {
		t.Fatalf("unexpected payload: %+v", data)
	}

	ts.syncer.triggered = false
	rec = ts.do(http.MethodPost, "/v1/leagues/428.l.1/chat/open", "", authed)
	if rec.Code != http.StatusAccepted || decodeData(t, rec)["sync_triggered"] != false {
		t.Fatalf("fresh league should be accepted without a sync: %d %s", rec.Code, rec.Body.String())
	}

	ts.syncer.triggerErr = fmt.Errorf("%w: invalid league key", usecase.ErrInvalidInput)
	rec = ts.do(http.MethodPost, "/v1/leagues/nope/chat/open", "", authed)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestInternalJobs_RequireToken(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	if rec := ts.do(http.MethodPost, "/v1/internal/jobs/sync-sweep", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := ts.do(http.MethodPost, "/v1/internal/jobs/sync-sweep", "", authed); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bearer token must not open internal jobs, got %d", rec.Code)
	}

	rec := ts.do(http.MethodPost, "/v1/internal/jobs/sync-sweep", "", map[string]string{internalJobTokenHeader: testJobToken})
	if rec.Code != http.StatusOK || ts.sweeper.calls != 1 {
		t.Fatalf("expected sweep to run: code=%d calls=%d", rec.Code, ts.sweeper.calls)
	}
	if got := decodeData(t, rec)["considered"]; got != float64(3) {
		t.Fatalf("unexpected considered %v", got)
	}
}

func TestInternalJobs_TokenNotConfigured(t *testing.T) {
	t.Parallel()

	handler := NewHandler(&fakeRegistry{}, &fakeSyncer{}, &fakeSweeper{}, logging.NewNop())
	router := NewRouter(handler, fakeVerifier{}, logging.NewNop(), RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-sweep", nil)
	req.Header.Set(internalJobTokenHeader, "anything")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestGetSyncRun(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	started := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	ts.syncer.runs["run_1"] = leaguesync.Run{
		ID:         "run_1",
		LeagueKey:  "428.l.1",
		Trigger:    leaguesync.TriggerSweep,
		Status:     leaguesync.StatusPartial,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
	}
	headers := map[string]string{internalJobTokenHeader: testJobToken}

	rec := ts.do(http.MethodGet, "/v1/internal/sync/runs/run_1", "", headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeData(t, rec)
	if data["status"] != "partial" || data["duration_ms"] != float64(1500) {
		t.Fatalf("unexpected run payload: %+v", data)
	}
	if cats, ok := data["categories"].([]any); !ok || len(cats) != 0 {
		t.Fatalf("expected empty categories array, got %v", data["categories"])
	}

	if rec := ts.do(http.MethodGet, "/v1/internal/sync/runs/run_2", "", headers); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRecoverPanic(t *testing.T) {
	t.Parallel()

	handler := recoverPanic(logging.NewNop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/leagues", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRouter_SwaggerRoutes(t *testing.T) {
	t.Parallel()

	handler := NewHandler(&fakeRegistry{}, &fakeSyncer{}, &fakeSweeper{}, logging.NewNop())
	router := NewRouter(handler, fakeVerifier{}, logging.NewNop(), RouterConfig{SwaggerEnabled: true})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/v1/leagues/{leagueKey}/chat/open") {
		t.Fatalf("unexpected openapi response: %d", rec.Code)
	}

	disabled := NewRouter(handler, fakeVerifier{}, logging.NewNop(), RouterConfig{})
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("docs should be hidden when swagger is disabled, got %d", rec.Code)
	}
}
