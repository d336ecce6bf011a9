// Package registry implements the Registry port against the openFDA device API.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

// maxResponseBytes bounds a single registry response body.
const maxResponseBytes = 32 << 20

// Request outcomes reported to metrics.
const (
	outcomeOK          = "ok"
	outcomeRateLimited = "rate_limited"
	outcomeServerError = "server_error"
	outcomeNetwork     = "network"
	outcomeNotFound    = "not_found"
	outcomeRejected    = "rejected"
	outcomeMalformed   = "malformed"
)

// Client implements ports.Registry with a cache in front of a rate limited,
// retrying HTTP client.
type Client struct {
	cfg        *domain.Config
	httpClient *http.Client
	cache      ports.CacheStore
	limiter    ports.RateLimiter
	logger     ports.Logger
	metrics    ports.Metrics
	group      singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// New creates a registry client.
func New(
	cfg *domain.Config,
	cache ports.CacheStore,
	limiter ports.RateLimiter,
	logger ports.Logger,
	metrics ports.Metrics,
	opts ...Option,
) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.API.Timeout},
		cache:      cache,
		limiter:    limiter,
		logger:     logger,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the response for q. A fresh cached body is served without
// network access. When every attempt fails, an expired cached body is served
// as a degraded response if one exists. Concurrent calls for the same query
// share one lookup and one network round trip.
func (c *Client) Fetch(ctx context.Context, q domain.Query) (*domain.Response, error) {
	key := q.Key()
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.fetch(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	resp, ok := v.(*domain.Response)
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrMalformedResponse, "unexpected result"), "key", key)
	}
	shared := *resp
	return &shared, nil
}

func (c *Client) fetch(ctx context.Context, q domain.Query) (*domain.Response, error) {
	key := q.Key()
	class := q.Class()
	cached := c.lookup(key, class)
	if cached != nil && cached.Fresh {
		return &domain.Response{Body: cached.Payload, Source: domain.SourceCache}, nil
	}

	body, err := c.fetchNetwork(ctx, q)
	if err == nil {
		if putErr := c.cache.Put(key, body, c.cfg.TTL(class)); putErr != nil {
			c.logger.Error(putErr)
		}
		return &domain.Response{Body: body, Source: domain.SourceNetwork}, nil
	}

	degradable := errors.Is(err, domain.ErrRetriesExhausted) || errors.Is(err, domain.ErrRateLimitTimeout)
	if degradable && cached != nil {
		c.logger.Warn("registry unavailable, serving stale " + key)
		return &domain.Response{Body: cached.Payload, Source: domain.SourceDegraded, Stale: true}, nil
	}
	return nil, err
}

// lookup reads key from the cache. A corrupted entry has already been
// quarantined by the store and counts as a miss.
func (c *Client) lookup(key string, class domain.DataClass) *domain.CacheEntry {
	entry, err := c.cache.Get(key)
	switch {
	case err != nil:
		c.logger.Warn("ignoring cached " + key + ": " + err.Error())
		c.metrics.ObserveCache(class, "error")
		return nil
	case entry == nil:
		c.metrics.ObserveCache(class, "miss")
		return nil
	case !entry.Fresh:
		c.metrics.ObserveCache(class, "stale")
	default:
		c.metrics.ObserveCache(class, "hit")
	}
	return entry
}

// fetchNetwork issues q with one limiter token per attempt, retrying
// transient failures with exponential backoff.
func (c *Client) fetchNetwork(ctx context.Context, q domain.Query) ([]byte, error) {
	attempts := 0
	op := func() ([]byte, error) {
		attempts++
		if err := c.limiter.Acquire(ctx, 1); err != nil {
			return nil, backoff.Permanent(err)
		}
		body, err := c.do(ctx, q)
		c.metrics.ObserveRequest(q.Endpoint, outcome(err))
		if err != nil && !domain.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}

	body, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.backoffPolicy()),
		backoff.WithMaxTries(uint(max(c.cfg.Retry.MaxAttempts, 1))), //nolint:gosec // bounded by config validation
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("registry " + q.Endpoint + " request failed, retrying in " + next.String() + ": " + err.Error())
		}),
	)
	if err == nil {
		return body, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		timeoutErr := zerr.With(zerr.Wrap(domain.ErrTimeout, "registry request abandoned"), "endpoint", q.Endpoint)
		return nil, zerr.With(timeoutErr, "reason", ctxErr.Error())
	}
	if domain.IsTransient(err) {
		exhausted := zerr.With(zerr.Wrap(domain.ErrRetriesExhausted, "registry request failed"), "endpoint", q.Endpoint)
		exhausted = zerr.With(exhausted, "attempts", attempts)
		return nil, zerr.With(exhausted, "last_error", err.Error())
	}
	return nil, err
}

func (c *Client) backoffPolicy() *backoff.ExponentialBackOff {
	r := c.cfg.Retry
	return &backoff.ExponentialBackOff{
		InitialInterval:     r.BaseDelay,
		RandomizationFactor: r.Jitter,
		Multiplier:          r.Multiplier,
		MaxInterval:         r.MaxDelay,
	}
}

// do performs a single GET and classifies the result.
func (c *Client) do(ctx context.Context, q domain.Query) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(q), http.NoBody)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrTerminal, "invalid request"), "endpoint", q.Endpoint)
	}
	req.Header.Set("Accept", "application/json")
	if ua := c.cfg.API.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error embeds the request URL, which carries the API key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		netErr := zerr.With(zerr.Wrap(domain.ErrNetwork, "registry request failed"), "endpoint", q.Endpoint)
		return nil, zerr.With(netErr, "cause", err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		netErr := zerr.With(zerr.Wrap(domain.ErrNetwork, "failed to read registry response"), "endpoint", q.Endpoint)
		return nil, zerr.With(netErr, "cause", err.Error())
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, statusError(domain.ErrRateLimitExceeded, q, resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, statusError(domain.ErrUpstreamUnavailable, q, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, statusError(domain.ErrNotFound, q, resp.StatusCode)
	default:
		return nil, statusError(domain.ErrTerminal, q, resp.StatusCode)
	}

	if err := validateEnvelope(body); err != nil {
		return nil, zerr.With(err, "endpoint", q.Endpoint)
	}
	return body, nil
}

func (c *Client) requestURL(q domain.Query) string {
	values := url.Values{}
	for k, v := range q.Params {
		values.Set(k, v)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Skip > 0 {
		values.Set("skip", strconv.Itoa(q.Skip))
	}
	if c.cfg.API.Key != "" {
		values.Set("api_key", c.cfg.API.Key)
	}
	return c.cfg.API.BaseURL + "/" + q.Endpoint + ".json?" + values.Encode()
}

func statusError(sentinel error, q domain.Query, status int) error {
	err := zerr.With(zerr.Wrap(sentinel, "registry answered "+strconv.Itoa(status)), "endpoint", q.Endpoint)
	return zerr.With(err, "status_code", status)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return outcomeRateLimited
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return outcomeServerError
	case errors.Is(err, domain.ErrNetwork):
		return outcomeNetwork
	case errors.Is(err, domain.ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, domain.ErrMalformedResponse):
		return outcomeMalformed
	default:
		return outcomeRejected
	}
}

// validateEnvelope checks that body is an openFDA result envelope.
func validateEnvelope(body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrMalformedResponse, "response is not json"), "cause", err.Error())
	}
	if env.Meta == nil && env.Results == nil {
		return zerr.Wrap(domain.ErrMalformedResponse, "response has neither meta nor results")
	}
	return nil
}
