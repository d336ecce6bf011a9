package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"time"
)

// CurrentSchemaVersion is the cache entry and manifest schema written by this build.
const CurrentSchemaVersion = 2

// DataClass groups cache entries that share a time-to-live policy.
type DataClass string

const (
	// ClassClearance covers clearance decision records.
	ClassClearance DataClass = "clearance"
	// ClassSafety covers recall and adverse event signals.
	ClassSafety DataClass = "safety"
	// ClassDocument covers raw decision documents.
	ClassDocument DataClass = "document"
	// ClassText covers text extracted from documents.
	ClassText DataClass = "text"
	// ClassQuery covers generic registry search responses.
	ClassQuery DataClass = "query"
	// ClassRanking covers cached ranking results.
	ClassRanking DataClass = "ranking"
	// ClassFingerprint covers freshness baselines.
	ClassFingerprint DataClass = "fingerprint"
)

// Key prefixes, one namespace per kind of cached data.
const (
	recordPrefix      = "record/"
	safetyPrefix      = "safety/"
	documentPrefix    = "document/"
	textPrefix        = "text/"
	fingerprintPrefix = "fingerprint/"
	queryPrefix       = "query/"
	rankingPrefix     = "ranking/"
)

// Manifest record names.
const (
	ManifestDevices   = "devices"
	ManifestSafety    = "safety"
	ManifestDocuments = "documents"
	ManifestTexts     = "texts"
	ManifestQueries   = "queries"
	ManifestRankings  = "rankings"
	ManifestBaselines = "baselines"
)

// ManifestNameFor returns the manifest record that tracks entries of class.
func ManifestNameFor(class DataClass) string {
	switch class {
	case ClassClearance:
		return ManifestDevices
	case ClassSafety:
		return ManifestSafety
	case ClassDocument:
		return ManifestDocuments
	case ClassText:
		return ManifestTexts
	case ClassRanking:
		return ManifestRankings
	case ClassFingerprint:
		return ManifestBaselines
	default:
		return ManifestQueries
	}
}

// RecordKey is the cache key of a device's clearance record.
func RecordKey(id string) string { return recordPrefix + id }

// SafetyKey is the cache key of a device's safety signals.
func SafetyKey(id string) string { return safetyPrefix + id }

// DocumentKey is the cache key of a device's decision document.
func DocumentKey(id string) string { return documentPrefix + id }

// TextKey is the cache key of the text extracted from a device's document.
func TextKey(id string) string { return textPrefix + id }

// FingerprintKey is the cache key of a device's freshness baseline.
func FingerprintKey(id string) string { return fingerprintPrefix + id }

// QueryKey is the cache key of a generic registry query.
func QueryKey(hash string) string { return queryPrefix + hash }

// RankingKey is the cache key of a ranking result.
func RankingKey(hash string) string { return rankingPrefix + hash }

// DeviceKeys lists the cache keys holding data derived from one device.
// The freshness baseline is excluded because it is replaced, not invalidated.
func DeviceKeys(id string) []string {
	return []string{RecordKey(id), SafetyKey(id), DocumentKey(id), TextKey(id)}
}

// ClassForKey derives the data class from a key's namespace.
func ClassForKey(key string) DataClass {
	switch {
	case strings.HasPrefix(key, recordPrefix):
		return ClassClearance
	case strings.HasPrefix(key, safetyPrefix):
		return ClassSafety
	case strings.HasPrefix(key, documentPrefix):
		return ClassDocument
	case strings.HasPrefix(key, textPrefix):
		return ClassText
	case strings.HasPrefix(key, fingerprintPrefix):
		return ClassFingerprint
	case strings.HasPrefix(key, rankingPrefix):
		return ClassRanking
	default:
		return ClassQuery
	}
}

// CacheEntry is a single cached payload together with its integrity metadata.
type CacheEntry struct {
	Key           string
	Payload       []byte
	Checksum      string
	CreatedAt     time.Time
	TTL           time.Duration
	SchemaVersion int
	Class         DataClass
	// Fresh is false once CreatedAt+TTL has passed. Expired entries are still
	// returned so callers can fall back to them.
	Fresh bool
	Size  int64
}

// Checksum computes the integrity checksum stored with a payload.
func Checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// IsFresh reports whether an entry created at createdAt with ttl is still fresh at now.
func IsFresh(createdAt time.Time, ttl time.Duration, now time.Time) bool {
	if ttl == 0 {
		return true
	}
	return now.Before(createdAt.Add(ttl))
}

// Manifest indexes cached data by logical record name.
type Manifest struct {
	SchemaVersion int                       `json:"schema_version"`
	UpdatedAt     time.Time                 `json:"updated_at"`
	Records       map[string]ManifestRecord `json:"records"`
	Checksum      string                    `json:"checksum,omitempty"`
}

// ManifestRecord lists the cache keys that back one logical record.
type ManifestRecord struct {
	Keys        []string  `json:"keys"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// NewManifest returns an empty manifest at the current schema version.
func NewManifest() *Manifest {
	return &Manifest{
		SchemaVersion: CurrentSchemaVersion,
		Records:       make(map[string]ManifestRecord),
	}
}

// Track adds key to the named record and stamps it with at.
func (m *Manifest) Track(name, key string, at time.Time) {
	if m.Records == nil {
		m.Records = make(map[string]ManifestRecord)
	}
	rec := m.Records[name]
	if !slices.Contains(rec.Keys, key) {
		rec.Keys = append(rec.Keys, key)
		slices.Sort(rec.Keys)
	}
	rec.RefreshedAt = at
	m.Records[name] = rec
}

// Untrack removes keys from every record.
func (m *Manifest) Untrack(keys ...string) {
	for name, rec := range m.Records {
		rec.Keys = slices.DeleteFunc(rec.Keys, func(k string) bool {
			return slices.Contains(keys, k)
		})
		m.Records[name] = rec
	}
}

// ComputeChecksum hashes the manifest's records in canonical order.
func (m *Manifest) ComputeChecksum() string {
	type canonical struct {
		Name   string         `json:"name"`
		Record ManifestRecord `json:"record"`
	}
	names := slices.Sorted(maps.Keys(m.Records))
	recs := make([]canonical, 0, len(names))
	for _, name := range names {
		recs = append(recs, canonical{Name: name, Record: m.Records[name]})
	}
	data, _ := json.Marshal(recs) //nolint:errchkjson // plain struct slice always marshals
	return Checksum(data)
}
