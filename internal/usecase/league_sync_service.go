package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/league"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/leaguesync"
	"github.com/riskibarqy/fantasy-hoops/internal/domain/oauthtoken"
	idgen "github.com/riskibarqy/fantasy-hoops/internal/platform/id"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/logging"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/syncgate"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultCategoryWorkers   = 6
	defaultBackgroundTimeout = 5 * time.Minute
)

// SyncGate is the freshness/lock contract shared by the in-process and Redis coordinators.
type SyncGate interface {
	Check(ctx context.Context, leagueKey string, lastSyncedAt time.Time) syncgate.Decision
	ShouldSync(ctx context.Context, leagueKey string, lastSyncedAt time.Time) bool
	TryAcquire(ctx context.Context, leagueKey string) (syncgate.Lease, bool)
	Release(ctx context.Context, lease syncgate.Lease)
	State(ctx context.Context, leagueKey string) syncgate.State
	Sweep(ctx context.Context) int
}

// FantasyProvider returns raw provider JSON for one league.
type FantasyProvider interface {
	FetchSettings(ctx context.Context, accessToken, leagueKey string) ([]byte, error)
	FetchStandings(ctx context.Context, accessToken, leagueKey string) ([]byte, error)
	FetchScoreboard(ctx context.Context, accessToken, leagueKey string) ([]byte, error)
	FetchFreeAgents(ctx context.Context, accessToken, leagueKey string) ([]byte, error)
	FetchRosters(ctx context.Context, accessToken, leagueKey string) ([]byte, error)
}

type ScheduleProvider interface {
	FetchSchedule(ctx context.Context, season string) ([]byte, error)
}

type BlobUploader interface {
	Upload(ctx context.Context, blobName string, body []byte) error
}

type noopBlobUploader struct{}

func (noopBlobUploader) Upload(_ context.Context, _ string, _ []byte) error {
	return nil
}

func NewNoopBlobUploader() BlobUploader {
	return noopBlobUploader{}
}

// SyncRecorder receives sync outcomes for metrics.
type SyncRecorder interface {
	ObserveGateDecision(decision string)
	ObserveCategory(category, status string)
	ObserveRun(trigger, status string, duration time.Duration)
}

type noopSyncRecorder struct{}

func (noopSyncRecorder) ObserveGateDecision(string)               {}
func (noopSyncRecorder) ObserveCategory(string, string)           {}
func (noopSyncRecorder) ObserveRun(string, string, time.Duration) {}

type LeagueSyncConfig struct {
	CategoryWorkers   int
	BackgroundTimeout time.Duration
}

type SyncLeagueInput struct {
	LeagueKey string
	// UserID restricts the sync to leagues owned by this user. Empty skips the ownership check.
	UserID  string
	Trigger leaguesync.Trigger
	// Force bypasses the freshness and debounce check. The lock still applies.
	Force bool
}

type SyncLeagueResult struct {
	LeagueKey    string                      `json:"league_key"`
	RunID        string                      `json:"run_id,omitempty"`
	Trigger      leaguesync.Trigger          `json:"trigger"`
	Status       leaguesync.Status           `json:"status"`
	Reason       string                      `json:"reason,omitempty"`
	SuccessCount int                         `json:"success_count"`
	FailedCount  int                         `json:"failed_count"`
	Categories   []leaguesync.CategoryResult `json:"categories,omitempty"`
	StartedAt    time.Time                   `json:"started_at"`
	FinishedAt   time.Time                   `json:"finished_at"`
}

type SyncStatus struct {
	LeagueKey    string
	LastSyncedAt time.Time
	Fresh        bool
	Decision     syncgate.Decision
	Lock         syncgate.State
	LatestRun    *leaguesync.Run
}

// categoryEnvelope is the blob document written for each category.
type categoryEnvelope struct {
	LeagueKey string          `json:"league_key"`
	Category  string          `json:"category"`
	Season    string          `json:"season"`
	FetchedAt time.Time       `json:"fetched_at"`
	Data      json.RawMessage `json:"data"`
}

type LeagueSyncService struct {
	leagueRepo league.Repository
	runRepo    leaguesync.Repository
	tokenRepo  oauthtoken.Repository
	gate       SyncGate
	fantasy    FantasyProvider
	schedule   ScheduleProvider
	blobs      BlobUploader
	recorder   SyncRecorder
	ids        idgen.Generator
	cfg        LeagueSyncConfig
	logger     *logging.Logger
	now        func() time.Time

	background conc.WaitGroup
}

type LeagueSyncDeps struct {
	LeagueRepo league.Repository
	RunRepo    leaguesync.Repository
	TokenRepo  oauthtoken.Repository
	Gate       SyncGate
	Fantasy    FantasyProvider
	Schedule   ScheduleProvider
	Blobs      BlobUploader
	Recorder   SyncRecorder
	IDs        idgen.Generator
}

func NewLeagueSyncService(deps LeagueSyncDeps, cfg LeagueSyncConfig, logger *logging.Logger) *LeagueSyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if deps.Blobs == nil {
		deps.Blobs = NewNoopBlobUploader()
	}
	if deps.Recorder == nil {
		deps.Recorder = noopSyncRecorder{}
	}
	if deps.IDs == nil {
		deps.IDs = idgen.NewPrefixedGenerator("run_")
	}
	if cfg.CategoryWorkers <= 0 {
		cfg.CategoryWorkers = defaultCategoryWorkers
	}
	if cfg.BackgroundTimeout <= 0 {
		cfg.BackgroundTimeout = defaultBackgroundTimeout
	}

	return &LeagueSyncService{
		leagueRepo: deps.LeagueRepo,
		runRepo:    deps.RunRepo,
		tokenRepo:  deps.TokenRepo,
		gate:       deps.Gate,
		fantasy:    deps.Fantasy,
		schedule:   deps.Schedule,
		blobs:      deps.Blobs,
		recorder:   deps.Recorder,
		ids:        deps.IDs,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *LeagueSyncService) SyncLeague(ctx context.Context, input SyncLeagueInput) (SyncLeagueResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueSyncService.SyncLeague")
	defer span.End()

	if input.Trigger == "" {
		input.Trigger = leaguesync.TriggerManual
	}
	span.SetAttributes(
		attribute.String("league.key", input.LeagueKey),
		attribute.String("sync.trigger", string(input.Trigger)),
	)

	item, err := s.loadLeague(ctx, input.LeagueKey, input.UserID)
	if err != nil {
		return SyncLeagueResult{}, err
	}

	result := SyncLeagueResult{
		LeagueKey: item.LeagueKey,
		Trigger:   input.Trigger,
	}

	if !input.Force {
		decision := s.gate.Check(ctx, item.LeagueKey, item.LastSyncedAt)
		s.recorder.ObserveGateDecision(string(decision))
		if decision != syncgate.DecisionSync {
			result.Status = leaguesync.StatusSkipped
			result.Reason = string(decision)
			s.logger.DebugContext(ctx, "league sync skipped",
				"league_key", item.LeagueKey,
				"reason", decision,
				"trigger", input.Trigger,
			)
			return result, nil
		}
	}

	lease, acquired := s.gate.TryAcquire(ctx, item.LeagueKey)
	if !acquired {
		s.recorder.ObserveGateDecision("locked")
		result.Status = leaguesync.StatusAlreadyRunning
		s.logger.InfoContext(ctx, "league sync already running", "league_key", item.LeagueKey, "trigger", input.Trigger)
		return result, nil
	}
	// The lock must be freed even when the caller's context was cancelled mid-sync.
	defer s.gate.Release(context.WithoutCancel(ctx), lease)

	runID, err := s.ids.NewID()
	if err != nil {
		return SyncLeagueResult{}, fmt.Errorf("generate run id: %w", err)
	}
	result.RunID = runID
	result.StartedAt = s.now().UTC()

	accessToken, tokenErr := s.resolveAccessToken(ctx, item.OwnerUserID)
	categories, err := s.runCategories(ctx, item, accessToken, tokenErr)
	if err != nil {
		return SyncLeagueResult{}, err
	}

	result.FinishedAt = s.now().UTC()
	result.Categories = categories
	result.Status = leaguesync.StatusFor(categories)
	for _, row := range categories {
		if row.Status == leaguesync.CategorySuccess {
			result.SuccessCount++
		} else {
			result.FailedCount++
		}
	}

	if result.Status == leaguesync.StatusSynced {
		if err := s.leagueRepo.MarkSynced(ctx, item.LeagueKey, result.FinishedAt); err != nil {
			// Data reached the blobs; the next sweep simply repeats the work.
			s.logger.WarnContext(ctx, "mark league synced failed", "league_key", item.LeagueKey, "error", err)
		}
	}

	s.saveRun(ctx, leaguesync.Run{
		ID:         runID,
		LeagueKey:  item.LeagueKey,
		Trigger:    input.Trigger,
		Status:     result.Status,
		Categories: categories,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	})

	duration := result.FinishedAt.Sub(result.StartedAt)
	s.recorder.ObserveRun(string(input.Trigger), string(result.Status), duration)
	s.logger.InfoContext(ctx, "league sync finished",
		"league_key", item.LeagueKey,
		"run_id", runID,
		"trigger", input.Trigger,
		"status", result.Status,
		"success_count", result.SuccessCount,
		"failed_count", result.FailedCount,
		"duration", duration,
	)
	return result, nil
}

// TriggerBackgroundSync starts a sync detached from the request and reports
// whether a goroutine was started. Sync errors and panics are only logged.
func (s *LeagueSyncService) TriggerBackgroundSync(ctx context.Context, leagueKey, userID string) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueSyncService.TriggerBackgroundSync")
	defer span.End()

	item, err := s.loadLeague(ctx, leagueKey, userID)
	if err != nil {
		return false, err
	}
	if !s.gate.ShouldSync(ctx, item.LeagueKey, item.LastSyncedAt) {
		return false, nil
	}

	detached := context.WithoutCancel(ctx)
	s.background.Go(func() {
		runCtx, cancel := context.WithTimeout(detached, s.cfg.BackgroundTimeout)
		defer cancel()

		var catcher panics.Catcher
		catcher.Try(func() {
			_, err := s.SyncLeague(runCtx, SyncLeagueInput{
				LeagueKey: item.LeagueKey,
				UserID:    userID,
				Trigger:   leaguesync.TriggerBackground,
			})
			if err != nil {
				s.logger.WarnContext(runCtx, "background league sync failed", "league_key", item.LeagueKey, "error", err)
			}
		})
		if recovered := catcher.Recovered(); recovered != nil {
			s.logger.ErrorContext(runCtx, "background league sync panicked",
				"league_key", item.LeagueKey,
				"panic", recovered.String(),
			)
		}
	})
	return true, nil
}

// Wait blocks until every background sync has returned.
func (s *LeagueSyncService) Wait() {
	s.background.Wait()
}

func (s *LeagueSyncService) GetSyncStatus(ctx context.Context, leagueKey, userID string) (SyncStatus, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueSyncService.GetSyncStatus")
	defer span.End()

	item, err := s.loadLeague(ctx, leagueKey, userID)
	if err != nil {
		return SyncStatus{}, err
	}

	decision := s.gate.Check(ctx, item.LeagueKey, item.LastSyncedAt)
	out := SyncStatus{
		LeagueKey:    item.LeagueKey,
		LastSyncedAt: item.LastSyncedAt,
		Fresh:        decision == syncgate.DecisionFresh,
		Decision:     decision,
		Lock:         s.gate.State(ctx, item.LeagueKey),
	}

	if s.runRepo != nil {
		run, exists, err := s.runRepo.LatestByLeague(ctx, item.LeagueKey)
		if err != nil {
			return SyncStatus{}, fmt.Errorf("get latest sync run: %w", err)
		}
		if exists {
			out.LatestRun = &run
		}
	}
	return out, nil
}

func (s *LeagueSyncService) GetRun(ctx context.Context, runID string) (leaguesync.Run, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueSyncService.GetRun")
	defer span.End()

	runID = strings.TrimSpace(runID)
	if runID == "" {
		return leaguesync.Run{}, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}
	if s.runRepo == nil {
		return leaguesync.Run{}, fmt.Errorf("%w: sync run store is not configured", ErrDependencyUnavailable)
	}

	run, exists, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return leaguesync.Run{}, fmt.Errorf("get sync run: %w", err)
	}
	if !exists {
		return leaguesync.Run{}, fmt.Errorf("%w: sync run=%s", ErrNotFound, runID)
	}
	return run, nil
}

func (s *LeagueSyncService) loadLeague(ctx context.Context, leagueKey, userID string) (league.League, error) {
	leagueKey = strings.TrimSpace(leagueKey)
	if !league.ValidKey(leagueKey) {
		return league.League{}, fmt.Errorf("%w: invalid league key %q", ErrInvalidInput, leagueKey)
	}

	item, exists, err := s.leagueRepo.GetByKey(ctx, leagueKey)
	if err != nil {
		return league.League{}, fmt.Errorf("get league: %w", err)
	}
	if !exists || (userID != "" && !item.OwnedBy(userID)) {
		return league.League{}, fmt.Errorf("%w: league=%s", ErrNotFound, leagueKey)
	}
	return item, nil
}

func (s *LeagueSyncService) resolveAccessToken(ctx context.Context, userID string) (string, error) {
	if s.tokenRepo == nil {
		return "", fmt.Errorf("%w: token store is not configured", ErrUnauthorized)
	}

	token, exists, err := s.tokenRepo.GetByUser(ctx, userID, oauthtoken.ProviderYahoo)
	if err != nil {
		return "", fmt.Errorf("get yahoo token: %w", err)
	}
	if !exists || strings.TrimSpace(token.AccessToken) == "" {
		return "", fmt.Errorf("%w: no yahoo access token for user=%s", ErrUnauthorized, userID)
	}
	if token.Expired(s.now()) {
		return "", fmt.Errorf("%w: yahoo access token expired for user=%s", ErrUnauthorized, userID)
	}
	return token.AccessToken, nil
}

func (s *LeagueSyncService) runCategories(
	ctx context.Context,
	item league.League,
	accessToken string,
	tokenErr error,
) ([]leaguesync.CategoryResult, error) {
	categories := leaguesync.Categories()
	results := make(chan leaguesync.CategoryResult, len(categories))

	workerCount := s.cfg.CategoryWorkers
	if workerCount > len(categories) {
		workerCount = len(categories)
	}
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, category := range categories {
		category := category
		workers.Add(1)
		if err := pool.Submit(func() {
			start := time.Now()
			row := leaguesync.CategoryResult{Category: category, Status: leaguesync.CategoryFailed}
			defer func() {
				if recovered := recover(); recovered != nil {
					row.Status = leaguesync.CategoryFailed
					row.Message = fmt.Sprintf("panic: %v", recovered)
				}
				row.DurationMS = time.Since(start).Milliseconds()
				s.recorder.ObserveCategory(string(category), string(row.Status))
				results <- row
				workers.Done()
			}()

			// The schedule feed is public, but a run without the owner's token is still reported as failed.
			if tokenErr != nil {
				row.Message = tokenErr.Error()
				return
			}

			blobName, size, err := s.syncCategory(ctx, item, category, accessToken)
			if err != nil {
				row.Message = err.Error()
				s.logger.WarnContext(ctx, "league category sync failed",
					"league_key", item.LeagueKey,
					"category", category,
					"error", err,
				)
				return
			}
			row.Status = leaguesync.CategorySuccess
			row.BlobName = blobName
			row.Bytes = size
		}); err != nil {
			workers.Done()
			return nil, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	byCategory := make(map[leaguesync.Category]leaguesync.CategoryResult, len(categories))
	for row := range results {
		byCategory[row.Category] = row
	}
	out := make([]leaguesync.CategoryResult, 0, len(categories))
	for _, category := range categories {
		out = append(out, byCategory[category])
	}
	return out, nil
}

func (s *LeagueSyncService) syncCategory(
	ctx context.Context,
	item league.League,
	category leaguesync.Category,
	accessToken string,
) (string, int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueSyncService.syncCategory")
	defer span.End()
	span.SetAttributes(attribute.String("sync.category", string(category)))

	payload, err := s.fetchCategory(ctx, item, category, accessToken)
	if err != nil {
		return "", 0, fmt.Errorf("fetch %s: %w", category, err)
	}
	if !json.Valid(payload) {
		return "", 0, fmt.Errorf("fetch %s: provider returned invalid json", category)
	}

	body, err := sonic.Marshal(categoryEnvelope{
		LeagueKey: item.LeagueKey,
		Category:  string(category),
		Season:    item.Season,
		FetchedAt: s.now().UTC(),
		Data:      json.RawMessage(payload),
	})
	if err != nil {
		return "", 0, fmt.Errorf("encode %s envelope: %w", category, err)
	}

	blobName := CategoryBlobName(item.LeagueKey, category)
	if err := s.blobs.Upload(ctx, blobName, body); err != nil {
		return "", 0, fmt.Errorf("upload %s: %w", blobName, err)
	}
	return blobName, len(body), nil
}

func (s *LeagueSyncService) fetchCategory(
	ctx context.Context,
	item league.League,
	category leaguesync.Category,
	accessToken string,
) ([]byte, error) {
	if category == leaguesync.CategorySchedule {
		if s.schedule == nil {
			return nil, fmt.Errorf("%w: schedule provider is not configured", ErrDependencyUnavailable)
		}
		return s.schedule.FetchSchedule(ctx, item.Season)
	}
	if s.fantasy == nil {
		return nil, fmt.Errorf("%w: fantasy provider is not configured", ErrDependencyUnavailable)
	}

	switch category {
	case leaguesync.CategorySettings:
		return s.fantasy.FetchSettings(ctx, accessToken, item.LeagueKey)
	case leaguesync.CategoryStandings:
		return s.fantasy.FetchStandings(ctx, accessToken, item.LeagueKey)
	case leaguesync.CategoryMatchups:
		return s.fantasy.FetchScoreboard(ctx, accessToken, item.LeagueKey)
	case leaguesync.CategoryFreeAgents:
		return s.fantasy.FetchFreeAgents(ctx, accessToken, item.LeagueKey)
	case leaguesync.CategoryRosters:
		return s.fantasy.FetchRosters(ctx, accessToken, item.LeagueKey)
	default:
		return nil, errors.New("unsupported category")
	}
}

func (s *LeagueSyncService) saveRun(ctx context.Context, run leaguesync.Run) {
	if s.runRepo == nil {
		return
	}
	if err := s.runRepo.Save(ctx, run); err != nil {
		s.logger.WarnContext(ctx, "persist sync run failed", "league_key", run.LeagueKey, "run_id", run.ID, "error", err)
	}
}

// CategoryBlobName is the blob path a category is published under.
func CategoryBlobName(leagueKey string, category leaguesync.Category) string {
	return leagueKey + "/" + string(category) + ".json"
}
