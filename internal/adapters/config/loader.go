// Package config provides the configuration loader for pred.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "PRED_"

// envOverrides are applied after the file. The API key is only accepted here.
type envOverrides struct {
	APIKey            string        `env:"API_KEY"`
	APIBaseURL        string        `env:"API_BASE_URL"`
	CacheDir          string        `env:"CACHE_DIR"`
	StateDir          string        `env:"STATE_DIR"`
	GraphDir          string        `env:"GRAPH_DIR"`
	CacheMaxBytes     int64         `env:"CACHE_MAX_BYTES"`
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW"`
	Workers           int           `env:"WORKERS"`
	LogJSON           *bool         `env:"LOG_JSON"`
	OTLPEndpoint      string        `env:"OTLP_ENDPOINT"`
	MetricsFile       string        `env:"METRICS_FILE"`
}

// Loader implements ports.ConfigLoader using pred.yaml and PRED_* variables.
type Loader struct {
	// Environ replaces the process environment when set. Used for testing.
	Environ map[string]string
}

// NewLoader creates a new Loader reading the process environment.
func NewLoader() *Loader {
	return &Loader{}
}

// Load builds the configuration: defaults, then the nearest pred.yaml at or
// above cwd, then environment overrides. Relative directories resolve against
// the directory holding pred.yaml, or cwd when there is none.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	cfg := domain.DefaultConfig()
	base := cwd

	path, err := findConfigFile(cwd)
	if err != nil {
		return nil, err
	}
	if path != "" {
		var file Predfile
		if err := readAndUnmarshalYAML(path, &file); err != nil {
			return nil, err
		}
		if err := applyFile(&cfg, &file); err != nil {
			return nil, zerr.With(err, "path", path)
		}
		base = filepath.Dir(path)
	}

	if err := l.applyEnv(&cfg); err != nil {
		return nil, err
	}

	cfg.CacheDir = resolve(base, cfg.CacheDir)
	cfg.StateDir = resolve(base, cfg.StateDir)
	cfg.GraphDir = resolve(base, cfg.GraphDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findConfigFile(cwd string) (string, error) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", candidate)
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return "", nil
		}
		currentDir = parentDir
	}
}

func readAndUnmarshalYAML(path string, out any) error {
	// #nosec G304 -- path is discovered by walking up from the working directory
	data, err := os.ReadFile(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "path", path)
	}
	return nil
}

//nolint:gocognit,cyclop // flat field mapping
func applyFile(cfg *domain.Config, f *Predfile) error {
	setString(&cfg.CacheDir, f.CacheDir)
	setString(&cfg.StateDir, f.StateDir)
	setString(&cfg.GraphDir, f.GraphDir)

	if a := f.API; a != nil {
		setString(&cfg.API.BaseURL, a.BaseURL)
		setString(&cfg.API.UserAgent, a.UserAgent)
		setDuration(&cfg.API.Timeout, a.Timeout)
	}
	if r := f.RateLimit; r != nil {
		setInt(&cfg.RateLimit.Requests, r.Requests)
		setDuration(&cfg.RateLimit.Window, r.Window)
		setDuration(&cfg.RateLimit.AcquireTimeout, r.AcquireTimeout)
	}
	if r := f.Retry; r != nil {
		setInt(&cfg.Retry.MaxAttempts, r.MaxAttempts)
		setDuration(&cfg.Retry.BaseDelay, r.BaseDelay)
		setDuration(&cfg.Retry.MaxDelay, r.MaxDelay)
		if r.Multiplier > 0 {
			cfg.Retry.Multiplier = r.Multiplier
		}
		if r.Jitter != nil {
			cfg.Retry.Jitter = *r.Jitter
		}
	}
	if d := f.Documents; d != nil {
		if len(d.URLTemplates) > 0 {
			cfg.Documents.URLTemplates = d.URLTemplates
		}
		if d.MaxBytes > 0 {
			cfg.Documents.MaxBytes = d.MaxBytes
		}
	}
	if c := f.Cache; c != nil {
		if c.MaxBytes > 0 {
			cfg.Cache.MaxBytes = c.MaxBytes
		}
		for name, ttl := range c.TTL {
			class := domain.DataClass(name)
			if _, known := cfg.Cache.TTL[class]; !known {
				return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "unknown data class in cache.ttl"), "class", name)
			}
			cfg.Cache.TTL[class] = time.Duration(ttl)
		}
	}
	if e := f.Extract; e != nil {
		setInt(&cfg.Extract.MinChars, e.MinChars)
	}
	if p := f.Pipeline; p != nil {
		setInt(&cfg.Pipeline.Workers, p.Workers)
		setInt(&cfg.Pipeline.MaxNodes, p.MaxNodes)
		if p.ExpandDepth != nil {
			cfg.Pipeline.ExpandDepth = *p.ExpandDepth
		}
	}
	if r := f.Ranking; r != nil {
		if w := r.Weights; w != nil {
			cfg.Ranking.Weights = domain.Weights{
				InDegree:   w.InDegree,
				Recency:    w.Recency,
				Depth:      w.Depth,
				Similarity: w.Similarity,
			}
		}
		setDuration(&cfg.Ranking.RecencyHalfLife, r.RecencyHalfLife)
		if r.Material != nil {
			cfg.Ranking.Material = *r.Material
		}
		if r.TieBreak != "" {
			cfg.Ranking.TieBreak = domain.TieBreak(r.TieBreak)
		}
	}
	if lg := f.Log; lg != nil {
		cfg.Log.JSON = lg.JSON
	}
	if t := f.Telemetry; t != nil {
		setString(&cfg.Telemetry.OTLPEndpoint, t.OTLPEndpoint)
		setString(&cfg.Telemetry.MetricsFile, t.MetricsFile)
	}
	return nil
}

func (l *Loader) applyEnv(cfg *domain.Config) error {
	var o envOverrides
	opts := env.Options{Prefix: EnvPrefix, Environment: l.Environ}
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return zerr.Wrap(err, domain.ErrConfigEnvFailed.Error())
	}

	setString(&cfg.API.Key, o.APIKey)
	setString(&cfg.API.BaseURL, o.APIBaseURL)
	setString(&cfg.CacheDir, o.CacheDir)
	setString(&cfg.StateDir, o.StateDir)
	setString(&cfg.GraphDir, o.GraphDir)
	setString(&cfg.Telemetry.OTLPEndpoint, o.OTLPEndpoint)
	setString(&cfg.Telemetry.MetricsFile, o.MetricsFile)
	setInt(&cfg.RateLimit.Requests, o.RateLimitRequests)
	setInt(&cfg.Pipeline.Workers, o.Workers)
	if o.RateLimitWindow > 0 {
		cfg.RateLimit.Window = o.RateLimitWindow
	}
	if o.CacheMaxBytes > 0 {
		cfg.Cache.MaxBytes = o.CacheMaxBytes
	}
	if o.LogJSON != nil {
		cfg.Log.JSON = *o.LogJSON
	}
	return nil
}

func resolve(base, dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(base, dir)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v Duration) {
	if v > 0 {
		*dst = time.Duration(v)
	}
}
