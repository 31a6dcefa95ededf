// Package fetcher provides the rate-limited HTTP client the collector uses
// for every platform API call. Each hostname carries its own backoff value:
// 429 responses double it (up to a cap) and successful requests decay it back
// toward the base delay, so bursts of rate limiting slow the scanner down
// without stalling it permanently.
package fetcher

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures the HTTP client.
type Options struct {
	UserAgent   string
	Timeout     time.Duration
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// RotateUserAgents enables the only anti-detection behavior this client
	// implements: cycling through browser user-agent strings. Off by default.
	RotateUserAgents bool
}

// browserUserAgents is the rotation pool used when RotateUserAgents is set.
var browserUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// Client is a backoff-aware HTTP GET wrapper with per-hostname state.
type Client struct {
	client *http.Client
	opts   Options

	mu          sync.Mutex
	backoffs    map[string]time.Duration
	lastRequest time.Time
	limiters    map[string]*rate.Limiter
	uaIndex     int

	// sleep is replaceable in tests so backoff behavior can be observed
	// without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client with the given options.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseBackoff == 0 {
		opts.BaseBackoff = time.Second
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "leakwatch/1.0"
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		backoffs: make(map[string]time.Duration),
		limiters: make(map[string]*rate.Limiter),
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// BackoffFor returns the current backoff delay for a hostname.
func (c *Client) BackoffFor(host string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.backoffs[host]; ok {
		return d
	}
	return c.opts.BaseBackoff
}

// limiterFor returns the per-host request gate, creating it on first use.
// Public platform APIs tolerate roughly one request per second sustained.
func (c *Client) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(1, 5)
		c.limiters[host] = lim
	}
	return lim
}

// throttle enforces the per-host backoff: if less time than the host's
// current backoff has passed since the last request to any host, sleep the
// difference.
func (c *Client) throttle(ctx context.Context, host string) error {
	c.mu.Lock()
	backoff := c.backoffs[host]
	if backoff == 0 {
		backoff = c.opts.BaseBackoff
	}
	elapsed := time.Since(c.lastRequest)
	c.mu.Unlock()

	if elapsed < backoff {
		if err := c.sleep(ctx, backoff-elapsed); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.lastRequest = time.Now()
	c.mu.Unlock()
	return nil
}

// onRateLimited doubles the host's backoff, capped at MaxBackoff, and returns
// the new value.
func (c *Client) onRateLimited(host string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.backoffs[host]
	if cur == 0 {
		cur = c.opts.BaseBackoff
	}
	next := cur * 2
	if next > c.opts.MaxBackoff {
		next = c.opts.MaxBackoff
	}
	c.backoffs[host] = next
	return next
}

// onSuccess decays the host's backoff toward the base delay.
func (c *Client) onSuccess(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.backoffs[host]
	if !ok {
		return
	}
	next := time.Duration(float64(cur) * 0.8)
	if next < c.opts.BaseBackoff {
		next = c.opts.BaseBackoff
	}
	c.backoffs[host] = next
}

func (c *Client) userAgent() string {
	if !c.opts.RotateUserAgents {
		return c.opts.UserAgent
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ua := browserUserAgents[c.uaIndex%len(browserUserAgents)]
	c.uaIndex++
	return ua
}

// retryBackoff sleeps an exponentially growing, jittered delay for transient
// failures (transport errors and 5xx).
func (c *Client) retryBackoff(ctx context.Context, attempt int) {
	d := time.Duration(float64(c.opts.BaseBackoff) * math.Pow(2, float64(attempt)))
	if d > c.opts.MaxBackoff {
		d = c.opts.MaxBackoff
	}
	d += time.Duration(rand.Int64N(int64(d)/2 + 1))
	_ = c.sleep(ctx, d)
}

// Get fetches rawURL and returns the response body. Transient failures (429,
// 5xx, transport errors) are retried up to MaxRetries; other 4xx responses
// fail immediately as permanent errors.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %s", rawURL)
	}
	host := u.Host

	var lastErr error
	for attempt := range c.opts.MaxRetries {
		if err := c.limiterFor(host).Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}
		if err := c.throttle(ctx, host); err != nil {
			return nil, eris.Wrap(err, "fetcher: throttle")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: create request")
		}
		req.Header.Set("User-Agent", c.userAgent())
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			zap.L().Warn("http request failed, retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			c.retryBackoff(ctx, attempt)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			_ = resp.Body.Close()
			backoff := c.onRateLimited(host)
			lastErr = &StatusError{Code: resp.StatusCode, URL: rawURL}
			zap.L().Warn("rate limited (429), backing off",
				zap.String("host", host),
				zap.Duration("backoff", backoff),
				zap.Int("attempt", attempt+1),
			)
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, eris.Wrap(err, "fetcher: backoff sleep")
			}
			continue

		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = &StatusError{Code: resp.StatusCode, URL: rawURL}
			zap.L().Warn("server error, retrying",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			c.retryBackoff(ctx, attempt)
			continue

		case resp.StatusCode >= 400:
			// Permanent client error: no retry.
			_ = resp.Body.Close()
			return nil, &StatusError{Code: resp.StatusCode, URL: rawURL}
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			c.retryBackoff(ctx, attempt)
			continue
		}

		c.onSuccess(host)
		return body, nil
	}

	return nil, eris.Wrapf(lastErr, "fetcher: retries exhausted for %s", rawURL)
}
