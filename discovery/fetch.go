package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies the crawler to the publisher.
const DefaultUserAgent = "cei6/1.0 (+https://github.com/agentx56431/cei-archive-engine-6)"

// Fetcher retrieves a page and reports the URL it was finally served from.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (body, finalURL string, err error)
}

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s (%s)", e.Code, http.StatusText(e.Code), e.URL)
}

// retryableStatus lists the codes retried with backoff. 403 is handled
// separately and retried only once.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// FetcherConfig controls timeouts, retries and pacing.
type FetcherConfig struct {
	UserAgent      string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MinInterval is the minimum spacing between requests. Zero disables
	// pacing.
	MinInterval   time.Duration
	RespectRobots bool
}

// DefaultFetcherConfig returns the settings used when nothing is configured.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		UserAgent:      DefaultUserAgent,
		Timeout:        30 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     8 * time.Second,
		MinInterval:    500 * time.Millisecond,
		RespectRobots:  true,
	}
}

// HTTPFetcher fetches pages over HTTP with bounded retries.
type HTTPFetcher struct {
	client  *http.Client
	config  FetcherConfig
	limiter *rate.Limiter
	robots  *RobotsPolicy
	logger  *zap.Logger
}

// NewHTTPFetcher wraps a caller-owned client. The fetcher never builds its
// own client.
func NewHTTPFetcher(client *http.Client, config FetcherConfig, logger *zap.Logger) (*HTTPFetcher, error) {
	if client == nil {
		return nil, errors.New("http client is required")
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if config.MinInterval > 0 {
		limit = rate.Every(config.MinInterval)
	}

	f := &HTTPFetcher{
		client:  client,
		config:  config,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
	if config.RespectRobots {
		f.robots = NewRobotsPolicy(client, config.UserAgent, config.Timeout, f.limiter)
	}
	return f, nil
}

// Fetch performs a GET with the configured user agent. Timeouts, network
// errors and 429/5xx responses are retried with exponential backoff up to
// MaxAttempts; the first 403 earns one extra attempt on top of that budget.
// Other non-2xx responses fail immediately with a *StatusError.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, string, error) {
	if f.robots != nil {
		allowed, err := f.robots.Allowed(ctx, pageURL)
		if err != nil {
			return "", "", err
		}
		if !allowed {
			return "", "", fmt.Errorf("%w: %s", ErrDisallowedByRobots, pageURL)
		}
	}

	var body, finalURL string
	forbiddenSeen := false
	attempt := 0

	op := func() error {
		attempt++
		var err error
		body, finalURL, err = f.fetchOnce(ctx, pageURL)
		if err == nil {
			return nil
		}

		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		var se *StatusError
		if errors.As(err, &se) {
			switch {
			case se.Code == http.StatusForbidden && !forbiddenSeen:
				forbiddenSeen = true
				return err
			case !retryableStatus[se.Code]:
				return backoff.Permanent(err)
			}
		}

		var ue *url.Error
		if errors.As(err, &ue) && ue.Op == "parse" {
			return backoff.Permanent(err)
		}

		budget := f.config.MaxAttempts
		if forbiddenSeen {
			budget++
		}
		if attempt >= budget {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		f.logger.Debug("retrying fetch",
			zap.String("url", pageURL),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, f.backoff(ctx), notify); err != nil {
		return "", "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	return body, finalURL, nil
}

func (f *HTTPFetcher) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if f.config.InitialBackoff > 0 {
		b.InitialInterval = f.config.InitialBackoff
	}
	if f.config.MaxBackoff > 0 {
		b.MaxInterval = f.config.MaxBackoff
	}
	b.MaxElapsedTime = 0
	b.Reset()

	// One retry beyond MaxAttempts-1 is reserved for a 403; Fetch enforces
	// the budget for everything else.
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.config.MaxAttempts)), ctx)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, pageURL string) (string, string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", "", err
	}

	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", "", &StatusError{URL: pageURL, Code: resp.StatusCode}
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", "", fmt.Errorf("failed to decode body: %w", err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to read body: %w", err)
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return string(data), finalURL, nil
}
