package discovery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

// ErrDisallowedByRobots is returned when robots.txt forbids a page.
var ErrDisallowedByRobots = errors.New("disallowed by robots.txt")

// RobotsPolicy caches robots.txt per host. A robots file that cannot be
// fetched or parsed allows everything.
type RobotsPolicy struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter

	mu    sync.Mutex
	hosts map[string]*robotstxt.RobotsData
}

// NewRobotsPolicy creates a policy that fetches robots files with client.
// Each fetch is bounded by timeout when positive and paced by limiter when
// non-nil.
func NewRobotsPolicy(client *http.Client, userAgent string, timeout time.Duration, limiter *rate.Limiter) *RobotsPolicy {
	return &RobotsPolicy{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		limiter:   limiter,
		hosts:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether the user agent may fetch pageURL.
func (p *RobotsPolicy) Allowed(ctx context.Context, pageURL string) (bool, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false, err
	}
	root := u.Scheme + "://" + u.Host

	p.mu.Lock()
	data, cached := p.hosts[root]
	p.mu.Unlock()

	if !cached {
		data, err = p.load(ctx, root)
		if err != nil {
			return false, err
		}
		p.mu.Lock()
		p.hosts[root] = data
		p.mu.Unlock()
	}

	if data == nil {
		return true, nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, p.userAgent), nil
}

// load fetches and parses root's robots.txt. Only cancellation of ctx is an
// error; any other failure yields nil, which allows everything.
func (p *RobotsPolicy) load(ctx context.Context, root string) (*robotstxt.RobotsData, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	fetchCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, root+"/robots.txt", http.NoBody)
	if err != nil {
		return nil, nil
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, ctx.Err()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, ctx.Err()
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, nil
	}
	return data, nil
}
