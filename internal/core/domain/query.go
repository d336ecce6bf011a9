package domain

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Registry endpoints.
const (
	EndpointClearance = "510k"
	EndpointApproval  = "pma"
	EndpointRecall    = "recall"
	EndpointEvent     = "event"
)

// Query is a single request against the registry.
type Query struct {
	Endpoint string
	// Params are the search parameters, excluding credentials and paging.
	Params map[string]string
	Limit  int
	Skip   int
	// CacheKey overrides the derived key so per-device lookups can be invalidated by id.
	CacheKey string
}

// Canonical renders the query in a stable form, parameters sorted by name.
func (q Query) Canonical() string {
	var b strings.Builder
	b.WriteString(q.Endpoint)
	for _, k := range slices.Sorted(maps.Keys(q.Params)) {
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(q.Params[k])
	}
	b.WriteByte(0)
	b.WriteString("limit=" + strconv.Itoa(q.Limit))
	b.WriteByte(0)
	b.WriteString("skip=" + strconv.Itoa(q.Skip))
	return b.String()
}

// Key returns the cache key for the query.
func (q Query) Key() string {
	if q.CacheKey != "" {
		return q.CacheKey
	}
	return QueryKey(strconv.FormatUint(xxhash.Sum64String(q.Canonical()), 16))
}

// Class returns the data class governing the query's TTL.
func (q Query) Class() DataClass {
	if q.CacheKey != "" {
		return ClassForKey(q.CacheKey)
	}
	switch q.Endpoint {
	case EndpointRecall, EndpointEvent:
		return ClassSafety
	case EndpointClearance, EndpointApproval:
		return ClassClearance
	default:
		return ClassQuery
	}
}

// Source tells where a response body came from.
type Source string

const (
	// SourceNetwork means the body was fetched from the registry during this call.
	SourceNetwork Source = "network"
	// SourceCache means a fresh cached body was served without network access.
	SourceCache Source = "cache"
	// SourceDegraded means the registry failed and an expired cached body was served.
	SourceDegraded Source = "degraded"
)

// Response is a registry response body with its provenance.
type Response struct {
	Body   []byte
	Source Source
	// Stale is set when the body is past its TTL.
	Stale bool
}
