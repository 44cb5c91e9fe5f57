// Package yahoo reads league data from the Yahoo Fantasy Sports v2 API.
package yahoo

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/logging"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/resilience"
	"github.com/riskibarqy/fantasy-hoops/internal/usecase"
)

const (
	defaultBaseURL        = "https://fantasysports.yahooapis.com/fantasy/v2"
	defaultFreeAgentLimit = 100
	freeAgentPageSize     = 25
	maxResponseBytes      = 8 << 20
)

var errYahooTransient = crerr.New("yahoo transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	FreeAgentLimit int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	// RetryBackoff is the base delay; attempt n waits n*RetryBackoff.
	RetryBackoff time.Duration
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	freeAgentLimit int
	retryBackoff   time.Duration
	flightTimeout  time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	flight         resilience.SingleFlight[[]byte]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("yahoo")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	limit := cfg.FreeAgentLimit
	if limit <= 0 {
		limit = defaultFreeAgentLimit
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	retries := max(cfg.MaxRetries, 0)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		maxRetries:     retries,
		freeAgentLimit: limit,
		retryBackoff:   backoff,
		// Every attempt at its full timeout plus the backoff waits between them.
		flightTimeout: time.Duration(retries+1)*httpClient.Timeout + time.Duration(retries*(retries+1)/2)*backoff,
		logger:         logger,
		breaker: resilience.NewCircuitBreaker("yahoo", cfg.CircuitBreaker, func(name string, from, to resilience.CircuitState) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
		}),
	}
}

func (c *Client) FetchSettings(ctx context.Context, accessToken, leagueKey string) ([]byte, error) {
	return c.get(ctx, accessToken, "/league/"+leagueKey+"/settings")
}

func (c *Client) FetchStandings(ctx context.Context, accessToken, leagueKey string) ([]byte, error) {
	return c.get(ctx, accessToken, "/league/"+leagueKey+"/standings")
}

func (c *Client) FetchScoreboard(ctx context.Context, accessToken, leagueKey string) ([]byte, error) {
	return c.get(ctx, accessToken, "/league/"+leagueKey+"/scoreboard")
}

func (c *Client) FetchRosters(ctx context.Context, accessToken, leagueKey string) ([]byte, error) {
	return c.get(ctx, accessToken, "/league/"+leagueKey+"/teams/roster")
}

// FetchFreeAgents pages through status=FA until a short page or the configured limit,
// and returns the pages as one JSON array.
func (c *Client) FetchFreeAgents(ctx context.Context, accessToken, leagueKey string) ([]byte, error) {
	pages := make([]byte, 0, 64<<10)
	pages = append(pages, '[')

	for start := 0; start < c.freeAgentLimit; start += freeAgentPageSize {
		count := min(freeAgentPageSize, c.freeAgentLimit-start)
		path := fmt.Sprintf("/league/%s/players;status=FA;start=%d;count=%d", leagueKey, start, count)
		raw, err := c.get(ctx, accessToken, path)
		if err != nil {
			return nil, fmt.Errorf("free agents start=%d: %w", start, err)
		}
		if start > 0 {
			pages = append(pages, ',')
		}
		pages = append(pages, raw...)

		if playersInPage(raw) < count {
			break
		}
	}

	return append(pages, ']'), nil
}

// playersInPage reads fantasy_content.league[1].players.count; Yahoo omits it on empty pages.
func playersInPage(raw []byte) int {
	node, err := sonic.Get(raw, "fantasy_content", "league", 1, "players", "count")
	if err != nil {
		return 0
	}
	n, err := node.Int64()
	if err != nil {
		return 0
	}
	return int(n)
}

func (c *Client) get(ctx context.Context, accessToken, path string) ([]byte, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, fmt.Errorf("%w: yahoo access token is required", usecase.ErrUnauthorized)
	}
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "yahoo circuit breaker rejected request", "state", c.breaker.State(), "path", path)
		return nil, fmt.Errorf("%w: yahoo fantasy api is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}

	fullURL := c.baseURL + path + "?" + url.Values{"format": []string{"json"}}.Encode()

	// Requests share a response only when they carry the same token. The shared
	// request runs detached from whichever caller started it, so one cancelled
	// caller does not fail the others.
	key := fullURL + "#" + accessToken
	results := c.flight.DoChan(key, func() ([]byte, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout)
		defer cancel()

		out, reqErr := c.executeRequest(flightCtx, fullURL, accessToken)
		if reqErr != nil && isCircuitFailure(reqErr) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
		return out, reqErr
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) executeRequest(ctx context.Context, fullURL, accessToken string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errYahooTransient, strings.ReplaceAll(err.Error(), accessToken, "REDACTED"))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()

			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errYahooTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusUnauthorized:
				return nil, fmt.Errorf("%w: yahoo rejected access token", usecase.ErrUnauthorized)
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: yahoo status=%d body=%s", errYahooTransient, resp.StatusCode, abbreviate(raw))
			default:
				return nil, fmt.Errorf("yahoo status=%d body=%s", resp.StatusCode, abbreviate(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "yahoo request failed", "url", fullURL, "attempts", c.maxRetries+1, "error", lastErr)
	return nil, lastErr
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	return crerr.Is(err, errYahooTransient) || stderrors.Is(err, context.DeadlineExceeded)
}

func abbreviate(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) <= limit {
		return body
	}
	return body[:limit] + "..."
}
