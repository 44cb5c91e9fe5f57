// Package azblob uploads sync payloads to Azure Blob Storage with the Put Blob REST call.
package azblob

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/logging"
	"github.com/riskibarqy/fantasy-hoops/internal/platform/resilience"
	"github.com/riskibarqy/fantasy-hoops/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
)

const (
	apiVersion     = "2023-11-03"
	defaultTimeout = 30 * time.Second
)

var errBlobTransient = crerr.New("azure blob transient failure")

type UploaderConfig struct {
	AccountURL     string
	Container      string
	SASToken       string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Uploader struct {
	client       *fasthttp.Client
	containerURL string
	sas          string
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
	logger       *logging.Logger
	breaker      *resilience.CircuitBreaker
	now          func() time.Time
}

func NewUploader(cfg UploaderConfig) (*Uploader, error) {
	accountURL := strings.TrimRight(strings.TrimSpace(cfg.AccountURL), "/")
	parsed, err := url.Parse(accountURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, crerr.Newf("invalid azure blob account url %q", cfg.AccountURL)
	}
	container := strings.Trim(strings.TrimSpace(cfg.Container), "/")
	if container == "" {
		return nil, crerr.New("azure blob container is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("azblob")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	return &Uploader{
		client: &fasthttp.Client{
			Name:                "fantasy-hoops",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
		containerURL: accountURL + "/" + url.PathEscape(container),
		sas:          strings.TrimPrefix(strings.TrimSpace(cfg.SASToken), "?"),
		timeout:      timeout,
		maxRetries:   max(cfg.MaxRetries, 0),
		retryBackoff: backoff,
		logger:       logger,
		breaker: resilience.NewCircuitBreaker("azblob", cfg.CircuitBreaker, func(name string, from, to resilience.CircuitState) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
		}),
		now: time.Now,
	}, nil
}

// Upload overwrites blobName with body as a block blob.
func (u *Uploader) Upload(ctx context.Context, blobName string, body []byte) error {
	blobURL, err := u.blobURL(blobName)
	if err != nil {
		return err
	}
	if err := u.breaker.Allow(); err != nil {
		u.logger.WarnContext(ctx, "azure blob circuit breaker rejected request", "state", u.breaker.State(), "blob", blobName)
		return fmt.Errorf("%w: azure blob storage is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}

	err = u.putWithRetry(ctx, blobURL, blobName, body)
	if err != nil && isCircuitFailure(err) {
		u.breaker.RecordFailure()
	} else {
		u.breaker.RecordSuccess()
	}
	return err
}

func (u *Uploader) blobURL(blobName string) (string, error) {
	blobName = strings.Trim(strings.TrimSpace(blobName), "/")
	if blobName == "" {
		return "", fmt.Errorf("%w: blob name is required", usecase.ErrInvalidInput)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString(u.containerURL)
	for _, segment := range strings.Split(blobName, "/") {
		_ = buf.WriteByte('/')
		_, _ = buf.WriteString(url.PathEscape(segment))
	}
	if u.sas != "" {
		_ = buf.WriteByte('?')
		_, _ = buf.WriteString(u.sas)
	}
	return buf.String(), nil
}

func (u *Uploader) putWithRetry(ctx context.Context, blobURL, blobName string, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= u.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = u.put(ctx, blobURL, body)
		if lastErr == nil || !crerr.Is(lastErr, errBlobTransient) {
			return lastErr
		}
		if attempt == u.maxRetries {
			break
		}

		timer := time.NewTimer(time.Duration(attempt+1) * u.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	u.logger.WarnContext(ctx, "azure blob upload failed", "blob", blobName, "attempts", u.maxRetries+1, "error", lastErr)
	return lastErr
}

func (u *Uploader) put(ctx context.Context, blobURL string, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(blobURL)
	req.Header.SetMethod(fasthttp.MethodPut)
	req.Header.SetContentType("application/json")
	req.Header.Set("x-ms-blob-type", "BlockBlob")
	req.Header.Set("x-ms-version", apiVersion)
	req.Header.Set("x-ms-date", u.now().UTC().Format(http.TimeFormat))
	req.SetBodyRaw(body)

	deadline := time.Now().Add(u.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := u.client.DoDeadline(req, resp, deadline); err != nil {
		if stderrors.Is(err, fasthttp.ErrTimeout) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: put blob: %v", errBlobTransient, redactSAS(err.Error()))
	}

	status := resp.StatusCode()
	switch {
	case status == fasthttp.StatusCreated || status == fasthttp.StatusOK:
		return nil
	case status == fasthttp.StatusForbidden || status == fasthttp.StatusUnauthorized:
		return fmt.Errorf("%w: azure blob rejected credentials status=%d", usecase.ErrUnauthorized, status)
	case status == fasthttp.StatusRequestTimeout || status == fasthttp.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: put blob status=%d body=%s", errBlobTransient, status, abbreviate(resp.Body()))
	default:
		return fmt.Errorf("put blob status=%d body=%s", status, abbreviate(resp.Body()))
	}
}

func isCircuitFailure(err error) bool {
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	return crerr.Is(err, errBlobTransient) || stderrors.Is(err, context.DeadlineExceeded)
}

func redactSAS(msg string) string {
	if idx := strings.Index(msg, "?"); idx >= 0 {
		end := strings.IndexAny(msg[idx:], " \"'")
		if end < 0 {
			return msg[:idx] + "?REDACTED"
		}
		return msg[:idx] + "?REDACTED" + msg[idx+end:]
	}
	return msg
}

func abbreviate(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) <= limit {
		return body
	}
	return body[:limit] + "..."
}
