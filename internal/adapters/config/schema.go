package config

import (
	"strconv"
	"strings"
	"time"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Predfile represents the structure of the pred.yaml configuration file.
// Every field is optional; unset fields keep their defaults.
type Predfile struct {
	CacheDir  string        `yaml:"cache_dir"`
	StateDir  string        `yaml:"state_dir"`
	GraphDir  string        `yaml:"graph_dir"`
	API       *APIDTO       `yaml:"api"`
	RateLimit *RateLimitDTO `yaml:"rate_limit"`
	Retry     *RetryDTO     `yaml:"retry"`
	Documents *DocumentsDTO `yaml:"documents"`
	Cache     *CacheDTO     `yaml:"cache"`
	Extract   *ExtractDTO   `yaml:"extract"`
	Pipeline  *PipelineDTO  `yaml:"pipeline"`
	Ranking   *RankingDTO   `yaml:"ranking"`
	Log       *LogDTO       `yaml:"log"`
	Telemetry *TelemetryDTO `yaml:"telemetry"`
}

// APIDTO configures the registry client. The API key is never read from the file.
type APIDTO struct {
	BaseURL   string   `yaml:"base_url"`
	UserAgent string   `yaml:"user_agent"`
	Timeout   Duration `yaml:"timeout"`
}

// RateLimitDTO configures the token bucket.
type RateLimitDTO struct {
	Requests       int      `yaml:"requests"`
	Window         Duration `yaml:"window"`
	AcquireTimeout Duration `yaml:"acquire_timeout"`
}

// RetryDTO configures backoff.
type RetryDTO struct {
	MaxAttempts int      `yaml:"max_attempts"`
	BaseDelay   Duration `yaml:"base_delay"`
	MaxDelay    Duration `yaml:"max_delay"`
	Multiplier  float64  `yaml:"multiplier"`
	Jitter      *float64 `yaml:"jitter"`
}

// DocumentsDTO configures document sources.
type DocumentsDTO struct {
	URLTemplates []string `yaml:"url_templates"`
	MaxBytes     int64    `yaml:"max_bytes"`
}

// CacheDTO configures the cache ceiling and per class TTLs.
type CacheDTO struct {
	MaxBytes int64               `yaml:"max_bytes"`
	TTL      map[string]Duration `yaml:"ttl"`
}

// ExtractDTO configures text extraction.
type ExtractDTO struct {
	MinChars int `yaml:"min_chars"`
}

// PipelineDTO configures the worker pool.
type PipelineDTO struct {
	Workers     int  `yaml:"workers"`
	ExpandDepth *int `yaml:"expand_depth"`
	MaxNodes    int  `yaml:"max_nodes"`
}

// RankingDTO configures scoring.
type RankingDTO struct {
	Weights         *WeightsDTO `yaml:"weights"`
	RecencyHalfLife Duration    `yaml:"recency_half_life"`
	Material        *float64    `yaml:"material"`
	TieBreak        string      `yaml:"tie_break"`
}

// WeightsDTO holds the four ranking weights.
type WeightsDTO struct {
	InDegree   float64 `yaml:"in_degree"`
	Recency    float64 `yaml:"recency"`
	Depth      float64 `yaml:"depth"`
	Similarity float64 `yaml:"similarity"`
}

// LogDTO configures log output.
type LogDTO struct {
	JSON bool `yaml:"json"`
}

// TelemetryDTO configures exports.
type TelemetryDTO struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	MetricsFile  string `yaml:"metrics_file"`
}

// Duration is a time.Duration that also accepts a day suffix, e.g. "90d".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseDuration(node.Value)
	if err != nil {
		return zerr.With(err, "line", node.Line)
	}
	*d = Duration(parsed)
	return nil
}

// ParseDuration parses a Go duration or a whole number of days such as "90d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, zerr.With(zerr.New("invalid duration"), "value", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "invalid duration"), "value", s)
	}
	return d, nil
}
