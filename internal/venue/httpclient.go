package venue

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"arbitrage/pkg/ratelimit"
)

// HTTPClientConfig tunes the transport every CEX adapter shares. Defaults
// favour low latency over throughput: short idle timeouts, HTTP/2, no
// response compression.
type HTTPClientConfig struct {
	ConnectTimeout      time.Duration
	ReadTimeout         time.Duration
	TotalTimeout        time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
}

// DefaultHTTPClientConfig returns the shared baseline for venue REST calls.
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		ConnectTimeout:      5 * time.Second,
		ReadTimeout:         10 * time.Second,
		TotalTimeout:        15 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
}

// RESTClient wraps an *http.Client with a per-venue token bucket. Rate
// limiting is the one form of self-throttling adapters apply — they
// never retry — guarding against the venue's own rate-limit rejections
// rather than papering over failures.
type RESTClient struct {
	client  *http.Client
	limiter *ratelimit.RateLimiter
}

// NewRESTClient builds a client for one venue. rate/burst are requests per
// second; pass the venue's documented REST limit.
func NewRESTClient(cfg HTTPClientConfig, rate, burst float64) *RESTClient {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		DisableCompression:    true,
		ForceAttemptHTTP2:     true,
		ResponseHeaderTimeout: cfg.ReadTimeout,
	}

	return &RESTClient{
		client:  &http.Client{Transport: transport, Timeout: cfg.TotalTimeout},
		limiter: ratelimit.NewRateLimiter(rate, burst),
	}
}

// Do waits for a rate-limit token, then issues req. The wait respects
// req's context, so a caller-side deadline still aborts promptly.
func (c *RESTClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// Close releases idle connections. Call on adapter shutdown.
func (c *RESTClient) Close() {
	if t, ok := c.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

// newRequestCtx derives a context with a fixed total timeout for one
// request. No adapter in this package calls it.
func newRequestCtx(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}
