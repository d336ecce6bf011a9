package domain

import (
	"errors"

	"go.trai.ch/zerr"
)

var (
	// ErrEntryCorrupted is returned when a cache entry fails its integrity check.
	// The entry is quarantined before this error is returned.
	ErrEntryCorrupted = zerr.New("cache entry corrupted")

	// ErrSchemaUnsupported is returned when a cache entry was written by a newer schema.
	ErrSchemaUnsupported = zerr.New("cache entry schema is not supported")

	// ErrManifestUnavailable is returned when neither the manifest nor its backup can be read.
	ErrManifestUnavailable = zerr.New("manifest unavailable")

	// ErrCacheCreateFailed is returned when the cache directories cannot be created.
	ErrCacheCreateFailed = zerr.New("failed to create cache directory")

	// ErrCacheReadFailed is returned when a cache entry cannot be read.
	ErrCacheReadFailed = zerr.New("failed to read cache entry")

	// ErrCacheWriteFailed is returned when a cache entry cannot be written.
	ErrCacheWriteFailed = zerr.New("failed to write cache entry")

	// ErrCacheDeleteFailed is returned when a cache entry cannot be removed.
	ErrCacheDeleteFailed = zerr.New("failed to delete cache entry")

	// ErrManifestWriteFailed is returned when the manifest cannot be persisted.
	ErrManifestWriteFailed = zerr.New("failed to write manifest")

	// ErrLockFailed is returned when an advisory file lock cannot be taken.
	ErrLockFailed = zerr.New("failed to acquire file lock")

	// ErrRateLimitTimeout is returned when tokens could not be acquired before the deadline.
	ErrRateLimitTimeout = zerr.New("rate limit wait exceeded deadline")

	// ErrInvalidTokenRequest is returned when more tokens are requested than the bucket can hold.
	ErrInvalidTokenRequest = zerr.New("invalid token request")

	// ErrRateLimitStateFailed is returned when the shared limiter state cannot be read or written.
	ErrRateLimitStateFailed = zerr.New("failed to access rate limiter state")

	// ErrNetwork is returned when the transport fails before a response is received.
	ErrNetwork = zerr.New("network error")

	// ErrRateLimitExceeded is returned when the registry answers with HTTP 429.
	ErrRateLimitExceeded = zerr.New("registry rate limit exceeded")

	// ErrUpstreamUnavailable is returned when the registry answers with a server error.
	ErrUpstreamUnavailable = zerr.New("registry unavailable")

	// ErrTerminal is returned for client errors that retrying cannot fix.
	ErrTerminal = zerr.New("registry rejected request")

	// ErrNotFound is returned when the registry has no record for the request.
	ErrNotFound = zerr.New("not found")

	// ErrMalformedResponse is returned when a registry response cannot be decoded.
	ErrMalformedResponse = zerr.New("malformed registry response")

	// ErrRetriesExhausted is returned when every attempt failed and no cached data exists.
	ErrRetriesExhausted = zerr.New("retries exhausted")

	// ErrTimeout is returned when the caller's deadline expires during a request.
	ErrTimeout = zerr.New("request timed out")

	// ErrDocumentUnavailable is returned when no document source yields a document.
	ErrDocumentUnavailable = zerr.New("document unavailable")

	// ErrDocumentTooLarge is returned when a document exceeds the configured size limit.
	ErrDocumentTooLarge = zerr.New("document exceeds size limit")

	// ErrUnsupportedFormat is returned when document bytes match no known format.
	ErrUnsupportedFormat = zerr.New("unsupported document format")

	// ErrExtractFailed is returned when a document parser fails.
	ErrExtractFailed = zerr.New("failed to extract text")

	// ErrLowConfidence is returned when extracted text is too short to be trusted.
	ErrLowConfidence = zerr.New("extracted text has low confidence")

	// ErrCycleDetected is returned when the citation graph contains a cycle.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrInvalidDeviceID is returned when an identifier does not match the registry grammar.
	ErrInvalidDeviceID = zerr.New("invalid device identifier")

	// ErrNoCandidates is returned when a ranking request has nothing to rank.
	ErrNoCandidates = zerr.New("no candidates to rank")

	// ErrNoDevicesSpecified is returned when a command needs at least one identifier.
	ErrNoDevicesSpecified = zerr.New("no device identifiers specified")

	// ErrUnsupportedExportFormat is returned for an unknown graph export format.
	ErrUnsupportedExportFormat = zerr.New("unsupported graph export format")

	// ErrGraphStoreFailed is returned when the graph database cannot be accessed.
	ErrGraphStoreFailed = zerr.New("graph store operation failed")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigEnvFailed is returned when environment overrides are malformed.
	ErrConfigEnvFailed = zerr.New("failed to parse environment overrides")

	// ErrInvalidConfig is returned when a loaded configuration fails validation.
	ErrInvalidConfig = zerr.New("invalid configuration")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrRateLimitExceeded) ||
		errors.Is(err, ErrUpstreamUnavailable)
}
