package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/predicate/internal/adapters/config"
	"go.trai.ch/predicate/internal/core/domain"
)

func writeFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ConfigFileName), []byte(content), domain.PrivateFilePerm))
}

func TestLoader_DefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	l := &config.Loader{Environ: map[string]string{}}

	cfg, err := l.Load(dir)
	require.NoError(t, err)

	def := domain.DefaultConfig()
	assert.Equal(t, def.API.BaseURL, cfg.API.BaseURL)
	assert.Equal(t, filepath.Join(dir, domain.DefaultCachePath()), cfg.CacheDir)
	assert.Equal(t, def.Ranking.Weights, cfg.Ranking.Weights)
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, `
cache_dir: /var/cache/pred
rate_limit:
  requests: 40
  window: 1m
cache:
  ttl:
    clearance: 30d
    safety: 12h
pipeline:
  workers: 8
  expand_depth: 0
ranking:
  weights:
    in_degree: 1
    recency: 0
    depth: 0
    similarity: 0
  tie_break: id_desc
documents:
  url_templates:
    - https://example.test/{id}.pdf
`)
	sub := filepath.Join(root, "nested", "deeper")
	require.NoError(t, os.MkdirAll(sub, domain.DirPerm))

	cfg, err := (&config.Loader{Environ: map[string]string{}}).Load(sub)
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/pred", cfg.CacheDir)
	assert.Equal(t, filepath.Join(root, domain.DefaultStatePath()), cfg.StateDir, "relative paths resolve against the file")
	assert.Equal(t, 40, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 30*24*time.Hour, cfg.TTL(domain.ClassClearance))
	assert.Equal(t, 12*time.Hour, cfg.TTL(domain.ClassSafety))
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 0, cfg.Pipeline.ExpandDepth)
	assert.Equal(t, domain.Weights{InDegree: 1}, cfg.Ranking.Weights)
	assert.Equal(t, domain.TieBreakIDDesc, cfg.Ranking.TieBreak)
	assert.Equal(t, []string{"https://example.test/{id}.pdf"}, cfg.Documents.URLTemplates)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pipeline:\n  workers: 8\n")

	l := &config.Loader{Environ: map[string]string{
		"PRED_API_KEY":           "secret",
		"PRED_WORKERS":           "2",
		"PRED_LOG_JSON":          "true",
		"PRED_RATE_LIMIT_WINDOW": "30s",
	}}
	cfg, err := l.Load(root)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.API.Key)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		want    error
	}{
		{"MalformedYAML", "pipeline: [", nil, domain.ErrConfigParseFailed},
		{"BadDuration", "rate_limit:\n  window: soon\n", nil, domain.ErrConfigParseFailed},
		{"UnknownClass", "cache:\n  ttl:\n    bogus: 1h\n", nil, domain.ErrInvalidConfig},
		{"InvalidTieBreak", "ranking:\n  tie_break: random\n", nil, domain.ErrInvalidConfig},
		{"BadEnv", "", map[string]string{"PRED_WORKERS": "many"}, domain.ErrConfigEnvFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			if tt.content != "" {
				writeFile(t, root, tt.content)
			}
			env := tt.env
			if env == nil {
				env = map[string]string{}
			}
			_, err := (&config.Loader{Environ: env}).Load(root)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want.Error())
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := config.ParseDuration("90d")
	require.NoError(t, err)
	assert.Equal(t, 90*24*time.Hour, d)

	d, err = config.ParseDuration("1h30m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	_, err = config.ParseDuration("xd")
	assert.Error(t, err)

	_, err = config.ParseDuration("-1d")
	assert.Error(t, err)
}
