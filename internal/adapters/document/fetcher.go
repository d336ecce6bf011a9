// Package document implements the DocumentFetcher port over plain HTTP.
package document

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

const metricsEndpoint = "document"

// Fetcher downloads decision documents from an ordered list of URL templates.
// Concurrent requests for one identifier share a single download.
type Fetcher struct {
	cfg        *domain.Config
	httpClient *http.Client
	cache      ports.CacheStore
	limiter    ports.RateLimiter
	logger     ports.Logger
	metrics    ports.Metrics
	group      singleflight.Group
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = c }
}

// New creates a document fetcher.
func New(
	cfg *domain.Config,
	cache ports.CacheStore,
	limiter ports.RateLimiter,
	logger ports.Logger,
	metrics ports.Metrics,
	opts ...Option,
) *Fetcher {
	f := &Fetcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.API.Timeout},
		cache:      cache,
		limiter:    limiter,
		logger:     logger,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchDocument returns the decision document for id.
func (f *Fetcher) FetchDocument(ctx context.Context, id string) (*domain.Document, error) {
	id, err := domain.ParseDeviceID(id)
	if err != nil {
		return nil, err
	}

	v, err, _ := f.group.Do(id, func() (any, error) {
		return f.fetch(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	doc, ok := v.(*domain.Document)
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrDocumentUnavailable, "unexpected result"), "id", id)
	}
	return doc, nil
}

func (f *Fetcher) fetch(ctx context.Context, id string) (*domain.Document, error) {
	key := domain.DocumentKey(id)
	cached := f.lookup(key)
	if cached != nil && cached.Fresh {
		return &domain.Document{ID: id, Body: cached.Payload, Source: domain.SourceCache}, nil
	}

	var failures []string
	for _, tmpl := range f.cfg.Documents.URLTemplates {
		target := ExpandTemplate(tmpl, id)
		body, err := f.download(ctx, target)
		if err == nil {
			if putErr := f.cache.Put(key, body, f.cfg.TTL(domain.ClassDocument)); putErr != nil {
				f.logger.Error(putErr)
			}
			return &domain.Document{ID: id, URL: target, Body: body, Source: domain.SourceNetwork}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			timeoutErr := zerr.With(zerr.Wrap(domain.ErrTimeout, "document download abandoned"), "id", id)
			return nil, zerr.With(timeoutErr, "reason", ctxErr.Error())
		}
		failures = append(failures, err.Error())
		if errors.Is(err, domain.ErrRateLimitTimeout) {
			break
		}
	}

	if cached != nil {
		f.logger.Warn("document sources unavailable, serving stale " + key)
		return &domain.Document{ID: id, Body: cached.Payload, Source: domain.SourceDegraded}, nil
	}

	unavailable := zerr.With(zerr.Wrap(domain.ErrDocumentUnavailable, "no document source succeeded"), "id", id)
	unavailable = zerr.With(unavailable, "attempts", len(failures))
	return nil, zerr.With(unavailable, "failures", strings.Join(failures, "; "))
}

func (f *Fetcher) lookup(key string) *domain.CacheEntry {
	entry, err := f.cache.Get(key)
	switch {
	case err != nil:
		f.logger.Warn("ignoring cached " + key + ": " + err.Error())
		f.metrics.ObserveCache(domain.ClassDocument, "error")
		return nil
	case entry == nil:
		f.metrics.ObserveCache(domain.ClassDocument, "miss")
	case !entry.Fresh:
		f.metrics.ObserveCache(domain.ClassDocument, "stale")
	default:
		f.metrics.ObserveCache(domain.ClassDocument, "hit")
	}
	return entry
}

// download fetches one candidate URL under the shared rate limit.
func (f *Fetcher) download(ctx context.Context, target string) ([]byte, error) {
	if err := f.limiter.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "invalid document url"), "url", target)
	}
	if ua := f.cfg.API.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.metrics.ObserveRequest(metricsEndpoint, "network")
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrNetwork.Error()), "url", target)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		f.metrics.ObserveRequest(metricsEndpoint, "status_"+strconv.Itoa(resp.StatusCode))
		return nil, zerr.With(zerr.New("document source answered "+strconv.Itoa(resp.StatusCode)), "url", target)
	}

	limit := f.cfg.Documents.MaxBytes
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		f.metrics.ObserveRequest(metricsEndpoint, "network")
		return nil, zerr.With(zerr.Wrap(err, domain.ErrNetwork.Error()), "url", target)
	}
	if int64(len(body)) > limit {
		f.metrics.ObserveRequest(metricsEndpoint, "too_large")
		return nil, zerr.With(zerr.Wrap(domain.ErrDocumentTooLarge, "document rejected"), "url", target)
	}
	if len(body) == 0 {
		f.metrics.ObserveRequest(metricsEndpoint, "empty")
		return nil, zerr.With(zerr.New("document source returned an empty body"), "url", target)
	}

	f.metrics.ObserveRequest(metricsEndpoint, "ok")
	return body, nil
}

// ExpandTemplate substitutes the {id}, {yy} and {prefix} placeholders of a URL template.
func ExpandTemplate(tmpl, id string) string {
	return strings.NewReplacer(
		"{id}", id,
		"{yy}", domain.DeviceYear(id),
		"{prefix}", domain.DevicePrefix(id),
	).Replace(tmpl)
}
