package domain

import (
	"math"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// Config holds every tunable of the pipeline. It is built once at startup
// and passed explicitly to each component.
type Config struct {
	CacheDir  string
	StateDir  string
	GraphDir  string
	API       APIConfig
	RateLimit RateLimitConfig
	Retry     RetryConfig
	Documents DocumentConfig
	Cache     CacheConfig
	Extract   ExtractConfig
	Pipeline  PipelineConfig
	Ranking   RankingConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

// APIConfig describes the upstream registry.
type APIConfig struct {
	BaseURL   string
	Key       string
	UserAgent string
	Timeout   time.Duration
}

// RateLimitConfig describes the shared token bucket.
type RateLimitConfig struct {
	// Requests is the bucket capacity, refilled evenly over Window.
	Requests int
	Window   time.Duration
	// AcquireTimeout bounds a wait when the caller's context has no deadline.
	AcquireTimeout time.Duration
}

// RetryConfig describes the exponential backoff used for transient failures.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      float64
}

// DocumentConfig describes where decision documents live.
type DocumentConfig struct {
	// URLTemplates are tried in order. Supported placeholders are {id}, {yy} and {prefix}.
	URLTemplates []string
	MaxBytes     int64
}

// CacheConfig describes the local cache.
type CacheConfig struct {
	MaxBytes int64
	TTL      map[DataClass]time.Duration
}

// ExtractConfig describes the text extraction thresholds.
type ExtractConfig struct {
	MinChars int
}

// PipelineConfig describes the worker pool and lineage expansion.
type PipelineConfig struct {
	Workers     int
	ExpandDepth int
	MaxNodes    int
}

// RankingConfig describes the scoring weights.
type RankingConfig struct {
	Weights         Weights
	RecencyHalfLife time.Duration
	// Material is the weighted contribution a factor needs to appear in a rationale.
	Material float64
	// TieBreak orders candidates that tie on score, in-degree and date.
	TieBreak TieBreak
}

// TieBreak is the final ordering of fully tied candidates.
type TieBreak string

const (
	// TieBreakIDAsc orders tied candidates by ascending identifier.
	TieBreakIDAsc TieBreak = "id_asc"
	// TieBreakIDDesc orders tied candidates by descending identifier.
	TieBreakIDDesc TieBreak = "id_desc"
)

// Weights are the relative importance of each ranking factor.
type Weights struct {
	InDegree   float64
	Recency    float64
	Depth      float64
	Similarity float64
}

// LogConfig describes the log output.
type LogConfig struct {
	JSON bool
}

// TelemetryConfig describes optional trace and metric exports.
type TelemetryConfig struct {
	OTLPEndpoint string
	MetricsFile  string
}

const (
	day  = 24 * time.Hour
	year = 365 * day
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		CacheDir: DefaultCachePath(),
		StateDir: DefaultStatePath(),
		GraphDir: DefaultGraphPath(),
		API: APIConfig{
			BaseURL:   "https://api.fda.gov/device",
			UserAgent: "pred",
			Timeout:   30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Requests:       240,
			Window:         time.Minute,
			AcquireTimeout: 30 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    30 * time.Second,
			Multiplier:  2,
			Jitter:      0.5,
		},
		Documents: DocumentConfig{
			URLTemplates: []string{
				"https://www.accessdata.fda.gov/cdrh_docs/pdf{yy}/{id}.pdf",
				"https://www.accessdata.fda.gov/cdrh_docs/reviews/{id}.pdf",
			},
			MaxBytes: 64 << 20,
		},
		Cache: CacheConfig{
			MaxBytes: 512 << 20,
			TTL: map[DataClass]time.Duration{
				ClassClearance:   90 * day,
				ClassSafety:      day,
				ClassDocument:    year,
				ClassText:        year,
				ClassQuery:       7 * day,
				ClassRanking:     6 * time.Hour,
				ClassFingerprint: 0,
			},
		},
		Extract: ExtractConfig{
			MinChars: 200,
		},
		Pipeline: PipelineConfig{
			Workers:     4,
			ExpandDepth: 1,
			MaxNodes:    200,
		},
		Ranking: RankingConfig{
			Weights: Weights{
				InDegree:   0.35,
				Recency:    0.25,
				Depth:      0.15,
				Similarity: 0.25,
			},
			RecencyHalfLife: 5 * year,
			Material:        0.05,
			TieBreak:        TieBreakIDAsc,
		},
	}
}

// TTL returns the time-to-live for a data class. Zero means the entry never expires.
func (c *Config) TTL(class DataClass) time.Duration {
	return c.Cache.TTL[class]
}

// Validate checks that the configuration can drive the pipeline.
func (c *Config) Validate() error {
	var problems []string

	if c.API.BaseURL == "" {
		problems = append(problems, "api base url is empty")
	}
	if c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0 {
		problems = append(problems, "rate limit must allow at least one request per positive window")
	}
	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, "retry max attempts must be at least 1")
	}
	if len(c.Documents.URLTemplates) == 0 {
		problems = append(problems, "at least one document url template is required")
	}
	for _, tmpl := range c.Documents.URLTemplates {
		if !strings.Contains(tmpl, "{id}") {
			problems = append(problems, "document url template without {id}: "+tmpl)
		}
	}
	if c.Pipeline.Workers < 1 {
		problems = append(problems, "pipeline workers must be at least 1")
	}
	for class, ttl := range c.Cache.TTL {
		if ttl < 0 {
			problems = append(problems, "negative ttl for class "+string(class))
		}
	}

	w := c.Ranking.Weights
	for _, v := range []float64{w.InDegree, w.Recency, w.Depth, w.Similarity} {
		if v < 0 || math.IsNaN(v) {
			problems = append(problems, "ranking weights must be non-negative")
			break
		}
	}
	if w.InDegree+w.Recency+w.Depth+w.Similarity == 0 {
		problems = append(problems, "at least one ranking weight must be positive")
	}

	switch c.Ranking.TieBreak {
	case TieBreakIDAsc, TieBreakIDDesc:
	default:
		problems = append(problems, "unknown tie break "+string(c.Ranking.TieBreak))
	}

	if len(problems) > 0 {
		return zerr.With(zerr.Wrap(ErrInvalidConfig, "configuration rejected"), "problems", strings.Join(problems, "; "))
	}
	return nil
}
