package registry_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/predicate/internal/adapters/cache"
	"go.trai.ch/predicate/internal/adapters/metrics"
	"go.trai.ch/predicate/internal/adapters/ratelimit"
	"go.trai.ch/predicate/internal/adapters/registry"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const testAPIKey = "s3cr3t-key"

// MockRoundTripper is a helper to mock http.Client behavior.
type MockRoundTripper struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
	calls         atomic.Int32
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.calls.Add(1)
	return m.RoundTripFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	client *registry.Client
	store  *cache.Store
	rt     *MockRoundTripper
	clock  *clock
	cfg    *domain.Config
}

func newFixture(t *testing.T, handler func(req *http.Request) (*http.Response, error)) *fixture {
	t.Helper()

	cfg := domain.DefaultConfig()
	cfg.API.BaseURL = "https://registry.test/device"
	cfg.API.Key = testAPIKey
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 2 * time.Millisecond
	cfg.Retry.MaxAttempts = 5

	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store, err := cache.NewStore(t.TempDir(), 0, cache.WithClock(clk.Now))
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	rt := &MockRoundTripper{RoundTripFunc: handler}
	client := registry.New(&cfg, store, ratelimit.NewMemoryLimiter(cfg.RateLimit), log, metrics.New(),
		registry.WithHTTPClient(&http.Client{Transport: rt}))

	return &fixture{client: client, store: store, rt: rt, clock: clk, cfg: &cfg}
}

var clearanceQuery = domain.Query{
	Endpoint: domain.EndpointClearance,
	Params:   map[string]string{"search": `product_code:"DQY"`},
	Limit:    10,
}

const okBody = `{"meta":{"results":{"skip":0,"limit":10,"total":1}},"results":[{"k_number":"K201234"}]}`

func TestFetch_RetriesRateLimitThenCaches(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, func(_ *http.Request) (*http.Response, error) {
		if calls.Add(1) <= 3 {
			return jsonResponse(http.StatusTooManyRequests, `{"error":{"code":"TOO_MANY"}}`), nil
		}
		return jsonResponse(http.StatusOK, okBody), nil
	})

	resp, err := f.client.Fetch(t.Context(), clearanceQuery)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceNetwork, resp.Source)
	assert.JSONEq(t, okBody, string(resp.Body))
	assert.Equal(t, int32(4), f.rt.calls.Load())

	entry, err := f.store.Get(clearanceQuery.Key())
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Fresh)
	assert.Equal(t, domain.Checksum(entry.Payload), entry.Checksum)
	assert.Equal(t, okBody, string(entry.Payload))
}

func TestFetch_FreshHitSkipsNetwork(t *testing.T) {
	f := newFixture(t, func(_ *http.Request) (*http.Response, error) {
		return nil, errors.New("network must not be used")
	})
	require.NoError(t, f.store.Put(clearanceQuery.Key(), []byte(okBody), time.Hour))

	resp, err := f.client.Fetch(t.Context(), clearanceQuery)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCache, resp.Source)
	assert.Zero(t, f.rt.calls.Load())
}

func TestFetch_ConcurrentCallersShareRoundTrip(t *testing.T) {
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	f := newFixture(t, func(_ *http.Request) (*http.Response, error) {
		entered <- struct{}{}
		<-release
		return jsonResponse(http.StatusOK, okBody), nil
	})

	var wg sync.WaitGroup
	bodies := make([]string, 2)
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.client.Fetch(t.Context(), clearanceQuery)
			errs[i] = err
			if err == nil {
				bodies[i] = string(resp.Body)
			}
		}()
	}

	<-entered
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range 2 {
		require.NoError(t, errs[i])
		assert.JSONEq(t, okBody, bodies[i])
	}
	assert.Equal(t, int32(1), f.rt.calls.Load())
}

func TestFetch_ExpiredEntryIsRefetched(t *testing.T) {
	f := newFixture(t, func(_ *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, okBody), nil
	})
	require.NoError(t, f.store.Put(clearanceQuery.Key(), []byte(`{"results":[]}`), time.Hour))
	f.clock.Advance(2 * time.Hour)

	resp, err := f.client.Fetch(t.Context(), clearanceQuery)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceNetwork, resp.Source)
	assert.Equal(t, int32(1), f.rt.calls.Load())
}

func TestFetch_TerminalErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"BadRequest", http.StatusBadRequest, `{"error":{}}`, domain.ErrTerminal},
		{"Forbidden", http.StatusForbidden, `{"error":{}}`, domain.ErrTerminal},
		{"NotFound", http.StatusNotFound, `{"error":{"code":"NOT_FOUND"}}`, domain.ErrNotFound},
		{"Malformed", http.StatusOK, `<html>maintenance</html>`, domain.ErrMalformedResponse},
		{"EmptyObject", http.StatusOK, `{}`, domain.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(tt.status, tt.body), nil
			})

			_, err := f.client.Fetch(t.Context(), clearanceQuery)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), f.rt.calls.Load())

			entry, getErr := f.store.Get(clearanceQuery.Key())
			require.NoError(t, getErr)
			assert.Nil(t, entry)
		})
	}
}

func TestFetch_ExhaustedServesDegradedStaleEntry(t *testing.T) {
	f := newFixture(t, func(_ *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusServiceUnavailable, ""), nil
	})
	require.NoError(t, f.store.Put(clearanceQuery.Key(), []byte(okBody), time.Hour))
	f.clock.Advance(48 * time.Hour)

	resp, err := f.client.Fetch(t.Context(), clearanceQuery)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceDegraded, resp.Source)
	assert.True(t, resp.Stale)
	assert.Equal(t, okBody, string(resp.Body))
	assert.Equal(t, int32(f.cfg.Retry.MaxAttempts), f.rt.calls.Load())
}

func TestFetch_ExhaustedWithoutCache(t *testing.T) {
	f := newFixture(t, func(_ *http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset by peer")
	})

	_, err := f.client.Fetch(t.Context(), clearanceQuery)
	require.ErrorIs(t, err, domain.ErrRetriesExhausted)
	assert.Equal(t, int32(f.cfg.Retry.MaxAttempts), f.rt.calls.Load())
	assert.NotContains(t, err.Error(), testAPIKey)
}

func TestFetch_DeadlineIsReportedAsTimeout(t *testing.T) {
	f := newFixture(t, func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := f.client.Fetch(ctx, clearanceQuery)
	require.ErrorIs(t, err, domain.ErrTimeout)
}

func TestFetch_RequestCarriesCredentialsAndParams(t *testing.T) {
	var seen string
	f := newFixture(t, func(req *http.Request) (*http.Response, error) {
		seen = req.URL.String()
		return jsonResponse(http.StatusOK, okBody), nil
	})

	_, err := f.client.Fetch(t.Context(), clearanceQuery)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(seen, "https://registry.test/device/510k.json?"))
	assert.Contains(t, seen, "api_key="+testAPIKey)
	assert.Contains(t, seen, "limit=10")
	assert.Contains(t, seen, "search=product_code")
}

func TestFetch_CorruptedEntryIsRefetched(t *testing.T) {
	f := newFixture(t, func(_ *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, okBody), nil
	})
	key := clearanceQuery.Key()
	require.NoError(t, f.store.Put(key, []byte(okBody), time.Hour))
	corruptEntry(t, f.store, key)

	resp, err := f.client.Fetch(t.Context(), clearanceQuery)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceNetwork, resp.Source)

	entry, err := f.store.Get(key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, okBody, string(entry.Payload))
}
