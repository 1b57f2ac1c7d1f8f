package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/corpus"
	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/embedding/gemini"
	"github.com/spigell/resume-matcher/internal/feedback"
	"github.com/spigell/resume-matcher/internal/matching"
)

func withViper(t *testing.T, values map[string]any) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	for k, v := range values {
		viper.Set(k, v)
	}
}

func TestGetConfig(t *testing.T) {
	withViper(t, map[string]any{
		"corpus-file":                        "jobs.json.gz",
		"embedding.cache-ttl":                "30m",
		"embedding.rate":                     2.5,
		"pipeline.exclude-companies":         []string{"Acme"},
		"server.rate-limit.window":           "2m",
		"server.rate-limit.requests":         5,
		"server.rate-limit.cleanup-interval": "10m",
	})

	config, err := getConfig()
	require.NoError(t, err)

	assert.Equal(t, "jobs.json.gz", config.CorpusFile)
	assert.Equal(t, 30*time.Minute, config.Embedding.CacheTTL)
	assert.Equal(t, 2.5, config.Embedding.Rate)
	assert.Equal(t, []string{"Acme"}, config.Pipeline.ExcludeCompanies)
	assert.Equal(t, 2*time.Minute, config.Server.RateLimit.Window)

	srv := serverConfig(config)
	assert.Equal(t, 5, srv.RateLimit.Requests)
	assert.Equal(t, 10*time.Minute, srv.RateLimit.CleanupInterval)
}

func TestGetConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
	}{
		{name: "missing corpus", values: map[string]any{}},
		{name: "threshold above one", values: map[string]any{"corpus-file": "jobs.json", "pipeline.quality-threshold": 1.5}},
		{name: "unknown provider", values: map[string]any{"corpus-file": "jobs.json", "embedding.provider": "openai"}},
		{name: "negative dimensions", values: map[string]any{"corpus-file": "jobs.json", "embedding.dimensions": -1}},
		{name: "overlap below minus one", values: map[string]any{"corpus-file": "jobs.json", "embedding.chunk-overlap": -2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withViper(t, tt.values)
			_, err := getConfig()
			require.Error(t, err)
		})
	}
}

func TestGetConfigDisabledOverlap(t *testing.T) {
	withViper(t, map[string]any{
		"corpus-file":             "jobs.json",
		"embedding.chunk-overlap": -1,
	})

	config, err := getConfig()
	require.NoError(t, err)
	assert.Equal(t, -1, matcherConfig(config).ChunkOverlap)
}

func TestMatcherConfig(t *testing.T) {
	t.Parallel()

	config := &Config{CorpusFile: "jobs.json"}
	config.defaults()
	config.Pipeline.CandidatePool = 20
	config.Pipeline.Seed = 42
	config.Embedding.ChunkSize = 100

	mc := matcherConfig(config)
	assert.Equal(t, 20, mc.CandidatePool)
	assert.Equal(t, int64(42), mc.Seed)
	assert.Equal(t, 100, mc.ChunkSize)
	assert.Equal(t, embedding.DefaultDimensions, mc.Dimensions)
}

func TestConfiguredModel(t *testing.T) {
	t.Parallel()

	config := &Config{}
	config.defaults()
	assert.Equal(t, gemini.DefaultModel, configuredModel(config))

	config.Embedding.Model = "gemini-embedding-001"
	assert.Equal(t, "gemini-embedding-001", configuredModel(config))

	config.Embedding.Provider = "random"
	assert.Equal(t, providerRandom, configuredModel(config))
}

func TestDisabledFilters(t *testing.T) {
	withViper(t, map[string]any{
		"corpus-file":                "jobs.json",
		"pipeline.disable":           []string{"companies"},
		"pipeline.no-quality-filter": true,
		"pipeline.pca-iterations":    30,
	})

	config, err := getConfig()
	require.NoError(t, err)

	mc := matcherConfig(config)
	assert.Equal(t, []string{"companies", "quality"}, mc.Disable)
	assert.Equal(t, 30, mc.PCAIterations)

	withViper(t, map[string]any{"corpus-file": "jobs.json", "pipeline.disable": []string{"salary"}})
	_, err = getConfig()
	require.Error(t, err)
}

func TestRedacted(t *testing.T) {
	t.Parallel()

	config := &Config{}
	config.defaults()
	config.Embedding.APIKey = "secret"

	assert.Equal(t, "***", config.redacted().Embedding.APIKey)
	assert.Equal(t, "secret", config.Embedding.APIKey)
}

func TestNewEmbedderFallsBackToRandom(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	config := &Config{}
	config.defaults()
	config.Embedding.Dimensions = 8

	e, err := newEmbedder(context.Background(), config, zap.NewNop())
	require.NoError(t, err)

	vector, err := e.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, vector, 8)
	assert.Equal(t, providerRandom, e.model)
	assert.EqualValues(t, 1, e.cache.Stats().Misses)

	config.Embedding.Provider = "unknown"
	_, err = newEmbedder(context.Background(), config, zap.NewNop())
	require.Error(t, err)
}

func TestReadResume(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "cv.txt")
	require.NoError(t, os.WriteFile(path, []byte("Go developer\n\nKubernetes"), 0o600))

	text, err := readResume(path, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "Go developer")

	_, err = readResume(path, 4)
	require.Error(t, err)

	_, err = readResume(filepath.Join(dir, "missing.txt"), 0)
	require.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	t.Parallel()

	result := &matching.Result{
		Matches: []*matching.RankedJob{{
			Posting:    corpus.Posting{ID: "job_1", Title: "Go Engineer", Company: "Acme"},
			Score:      0.912,
			Similarity: 0.8,
		}},
		Feedback:   feedback.Feedback{OverallScore: 85, Grade: "A"},
		Candidates: 12,
	}

	var table bytes.Buffer
	require.NoError(t, printResult(&table, OutputTable, result))
	assert.Contains(t, table.String(), "Go Engineer")
	assert.Contains(t, table.String(), "0.912")
	assert.Contains(t, table.String(), "candidates: 12")
	assert.Contains(t, table.String(), "85/100 (A)")

	var js bytes.Buffer
	require.NoError(t, printResult(&js, OutputJSON, result))
	assert.Contains(t, js.String(), `"id": "job_1"`)
}
