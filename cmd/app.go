package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/corpus"
	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/embedding/gemini"
	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/secrets"
	"github.com/spigell/resume-matcher/internal/skills"
)

const (
	providerGemini = "gemini"
	providerRandom = "random"
)

// setup builds the logger and reads the config. Both failures end the process.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err),
			zap.String("hint", "set corpus-file in the config, --corpus or RESUME_MATCHER_CORPUS"),
		)
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config.redacted(), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func (c *Config) redacted() *Config {
	out := *c
	emb := *c.Embedding
	if emb.APIKey != "" {
		emb.APIKey = "***"
	}
	out.Embedding = &emb
	return &out
}

func loadCorpus(config *Config, logger *zap.Logger) (*corpus.Jobs, error) {
	started := time.Now()
	jobs, err := corpus.Load(config.CorpusFile)
	if err != nil {
		return nil, err
	}
	logger.Info("job corpus loaded",
		zap.String("file", config.CorpusFile),
		zap.Int("count", jobs.Len()),
		zap.Duration("took", time.Since(started)),
	)
	return jobs, nil
}

func loadTaxonomy(config *Config) (*skills.Taxonomy, error) {
	if strings.TrimSpace(config.TaxonomyFile) == "" {
		return skills.DefaultTaxonomy(), nil
	}
	return skills.LoadTaxonomy(config.TaxonomyFile)
}

func dimensions(config *Config) int {
	if config.Embedding.Dimensions > 0 {
		return config.Embedding.Dimensions
	}
	return embedding.DefaultDimensions
}

// embedder is the configured embedding chain together with what produced it.
type embedder struct {
	embedding.Embedder
	model string
	cache *embedding.Cached
}

// configuredModel names the model the configuration asks for, without building a client.
func configuredModel(config *Config) string {
	cfg := config.Embedding
	if strings.EqualFold(strings.TrimSpace(cfg.Provider), providerRandom) {
		return providerRandom
	}
	if model := strings.TrimSpace(cfg.Model); model != "" {
		return model
	}
	return gemini.DefaultModel
}

// newEmbedder wires provider, throttling, caching and the dimension check. Without an
// API key it falls back to random vectors so the pipeline still runs end to end.
func newEmbedder(ctx context.Context, config *Config, logger *zap.Logger) (*embedder, error) {
	cfg := config.Embedding
	dim := dimensions(config)

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = providerGemini
	}

	var (
		base  embedding.Embedder
		model string
	)
	switch provider {
	case providerRandom:
		logger.Warn("using random embeddings", zap.String("reason", "configured provider"))
		base, model = embedding.NewRandom(dim, rand.New(rand.NewSource(time.Now().UnixNano()))), providerRandom
	case providerGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.APIKey,
			File:  cfg.APIKeyFile,
			Env:   []string{"GEMINI_API_KEY"},
		})
		if errors.Is(err, secrets.ErrNotConfigured) {
			logger.Warn("using random embeddings",
				zap.String("reason", "gemini api key is not configured"),
				zap.String("hint", "set GEMINI_API_KEY, GEMINI_API_KEY_FILE or embedding.api-key-file"),
			)
			base, model = embedding.NewRandom(dim, rand.New(rand.NewSource(time.Now().UnixNano()))), providerRandom
			break
		}
		if err != nil {
			return nil, err
		}

		client, err := gemini.NewEmbedder(ctx, apiKey, gemini.Options{
			Model:      cfg.Model,
			Dimensions: dim,
			MaxRetries: cfg.MaxRetries,
		}, logger)
		if err != nil {
			return nil, err
		}
		base, model = embedding.NewThrottled(client, cfg.Rate, 1), client.Model()
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = embedding.DefaultCacheSize
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = embedding.DefaultCacheTTL
	}

	cached := embedding.NewCached(base, cacheSize, ttl, logger.Named("cache"))
	return &embedder{
		Embedder: embedding.Checked(cached, dim),
		model:    model,
		cache:    cached,
	}, nil
}

// foreignModels lists the corpus embedding models other than model. Cosine similarity
// between vectors of different models carries no meaning.
func foreignModels(jobs *corpus.Jobs, model string) []string {
	var foreign []string
	for name := range jobs.EmbeddingModels() {
		if name != model {
			foreign = append(foreign, name)
		}
	}
	sort.Strings(foreign)
	return foreign
}

// disabledFilters merges pipeline.disable with the no-quality-filter switch.
func disabledFilters(config *Config) []string {
	disabled := append([]string(nil), config.Pipeline.Disable...)
	if config.Pipeline.NoQualityFilter && !slices.Contains(disabled, filtering.QualityFilter) {
		disabled = append(disabled, filtering.QualityFilter)
	}
	return disabled
}

func matcherConfig(config *Config) matching.Config {
	return matching.Config{
		CandidatePool:    config.Pipeline.CandidatePool,
		PlotLimit:        config.Pipeline.PlotLimit,
		EnrichLimit:      config.Pipeline.EnrichLimit,
		QualityThreshold: config.Pipeline.QualityThreshold,
		ExcludeCompanies: config.Pipeline.ExcludeCompanies,
		Dimensions:       dimensions(config),
		ChunkSize:        config.Embedding.ChunkSize,
		ChunkOverlap:     config.Embedding.ChunkOverlap,
		Seed:             config.Pipeline.Seed,
		PCAIterations:    config.Pipeline.PCAIterations,
		Disable:          disabledFilters(config),
	}
}

// newMatcher loads everything the pipeline needs. The embedder is returned so callers
// can report on its cache.
func newMatcher(ctx context.Context, config *Config, logger *zap.Logger) (*matching.Matcher, *embedder, error) {
	jobs, err := loadCorpus(config, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("loading corpus: %w", err)
	}

	taxonomy, err := loadTaxonomy(config)
	if err != nil {
		return nil, nil, fmt.Errorf("loading taxonomy: %w", err)
	}

	emb, err := newEmbedder(ctx, config, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	if foreign := foreignModels(jobs, emb.model); len(foreign) > 0 {
		logger.Warn("corpus was embedded with another model, rankings will be meaningless",
			zap.String("model", emb.model),
			zap.Strings("corpus_models", foreign),
			zap.String("hint", "re-embed the corpus with the embed-corpus command"),
		)
	}

	matcher, err := matching.New(matcherConfig(config), jobs, taxonomy, emb, logger)
	if err != nil {
		return nil, nil, err
	}

	for _, f := range matcher.Filters() {
		logger.Debug("filter configured",
			zap.String("name", f.Name),
			zap.Bool("enabled", f.Enabled),
			zap.String("reason", f.Reason),
			zap.Any("details", f.Details),
		)
	}

	return matcher, emb, nil
}
