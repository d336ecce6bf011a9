package metrics_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/predicate/internal/adapters/metrics"
	"go.trai.ch/predicate/internal/core/domain"
)

func TestPrometheus_Counters(t *testing.T) {
	m := metrics.New()

	m.ObserveRequest("510k", "ok")
	m.ObserveRequest("510k", "ok")
	m.ObserveRequest("510k", "rate_limited")
	m.ObserveCache(domain.ClassClearance, "hit")
	m.ObserveCitations(3)
	m.ObserveRateLimitWait(200 * time.Millisecond)

	count, err := testutil.GatherAndCount(m.Gatherer(), "pred_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per label combination")

	count, err = testutil.GatherAndCount(m.Gatherer(), "pred_ratelimit_wait_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrometheus_WriteTextfile(t *testing.T) {
	m := metrics.New()
	m.ObserveCitations(2)

	path := filepath.Join(t.TempDir(), "pred.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pred_citations_extracted_total 2")
}
