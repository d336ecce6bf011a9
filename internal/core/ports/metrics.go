package ports

import (
	"time"

	"go.trai.ch/predicate/internal/core/domain"
)

// Metrics records pipeline counters.
type Metrics interface {
	// ObserveRequest counts a registry or document request by outcome.
	ObserveRequest(endpoint, outcome string)
	// ObserveCache counts a cache lookup by data class and result.
	ObserveCache(class domain.DataClass, result string)
	// ObserveRateLimitWait records time spent waiting for tokens.
	ObserveRateLimitWait(d time.Duration)
	// ObserveCitations counts citations extracted from one document.
	ObserveCitations(n int)
}
