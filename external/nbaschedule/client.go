// Package nbaschedule fetches the public NBA league schedule feed.
package nbaschedule

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/cache"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/logging"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/resilience"
	"github.com/riskibarqy/fantasy-hoops/internal/usecase"
)

const (
	defaultScheduleURL = "https://cdn.nba.com/static/json/staticData/scheduleLeagueV2.json"
	defaultCacheTTL    = 6 * time.Hour
	maxResponseBytes   = 32 << 20
)

var errScheduleTransient = crerr.New("nba schedule transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	ScheduleURL    string
	Timeout        time.Duration
	CacheTTL       time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client serves the schedule from an in-process cache keyed by season.
type Client struct {
	httpClient  *http.Client
	scheduleURL string
	logger      *logging.Logger
	breaker     *resilience.CircuitBreaker
	cache       *cache.Store[[]byte]
}

type scheduleFeed struct {
	LeagueSchedule struct {
		SeasonYear string `json:"seasonYear"`
	} `json:"leagueSchedule"`
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("nbaschedule")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}
	scheduleURL := strings.TrimSpace(cfg.ScheduleURL)
	if scheduleURL == "" {
		scheduleURL = defaultScheduleURL
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &Client{
		httpClient:  httpClient,
		scheduleURL: scheduleURL,
		logger:      logger,
		breaker: resilience.NewCircuitBreaker("nbaschedule", cfg.CircuitBreaker, func(name string, from, to resilience.CircuitState) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
		}),
		cache: cache.NewStore[[]byte](ttl),
	}
}

// FetchSchedule returns the raw feed. The feed only covers the current season, so a
// season that does not match is logged but still served.
func (c *Client) FetchSchedule(ctx context.Context, season string) ([]byte, error) {
	season = strings.TrimSpace(season)
	return c.cache.GetOrLoad(ctx, "schedule:"+season, func(ctx context.Context) ([]byte, error) {
		raw, err := c.download(ctx)
		if err != nil {
			return nil, err
		}

		var feed scheduleFeed
		if err := sonic.Unmarshal(raw, &feed); err != nil {
			return nil, fmt.Errorf("decode schedule feed: %w", err)
		}
		if season != "" && !strings.HasPrefix(feed.LeagueSchedule.SeasonYear, season) {
			c.logger.WarnContext(ctx, "schedule feed season mismatch", "requested", season, "feed", feed.LeagueSchedule.SeasonYear)
		}
		return raw, nil
	})
}

func (c *Client) download(ctx context.Context) ([]byte, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, fmt.Errorf("%w: nba schedule feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}

	raw, err := c.doRequest(ctx)
	if err != nil && (crerr.Is(err, errScheduleTransient) || stderrors.Is(err, context.DeadlineExceeded)) {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}
	return raw, err
}

func (c *Client) doRequest(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.scheduleURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", errScheduleTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", errScheduleTransient, err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: schedule status=%d", errScheduleTransient, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("schedule status=%d", resp.StatusCode)
	}
	return raw, nil
}
