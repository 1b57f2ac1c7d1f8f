package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "resume-matcher"
)

type Config struct {
	CorpusFile   string           `mapstructure:"corpus-file" validate:"required"`
	TaxonomyFile string           `mapstructure:"taxonomy-file"`
	Embedding    *EmbeddingConfig `mapstructure:"embedding"`
	Pipeline     *PipelineConfig  `mapstructure:"pipeline"`
	Server       *ServerConfig    `mapstructure:"server"`
}

type EmbeddingConfig struct {
	Provider     string        `mapstructure:"provider" validate:"omitempty,oneof=gemini random"`
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	Dimensions   int           `mapstructure:"dimensions" validate:"gte=0"`
	MaxRetries   int           `mapstructure:"max-retries" validate:"gte=0"`
	ChunkSize    int           `mapstructure:"chunk-size" validate:"gte=0"`
	ChunkOverlap int           `mapstructure:"chunk-overlap" validate:"gte=-1"`
	CacheSize    int           `mapstructure:"cache-size" validate:"gte=0"`
	CacheTTL     time.Duration `mapstructure:"cache-ttl" validate:"gte=0"`
	// Requests per second sent to the provider, unlimited when zero.
	Rate         float64       `mapstructure:"rate" validate:"gte=0"`
}

type PipelineConfig struct {
	CandidatePool    int      `mapstructure:"candidate-pool" validate:"gte=0"`
	QualityThreshold float64  `mapstructure:"quality-threshold" validate:"gte=0,lte=1"`
	PlotLimit        int      `mapstructure:"plot-limit" validate:"gte=0"`
	EnrichLimit      int      `mapstructure:"enrich-limit" validate:"gte=0"`
	ExcludeCompanies []string `mapstructure:"exclude-companies"`
	Seed             int64    `mapstructure:"seed"`
	PCAIterations    int      `mapstructure:"pca-iterations" validate:"gte=0"`
	// Filter steps to skip: dimension, quality or companies.
	Disable          []string `mapstructure:"disable" validate:"dive,oneof=dimension quality companies"`
	NoQualityFilter  bool     `mapstructure:"no-quality-filter"`
}

type ServerConfig struct {
	Listen         string          `mapstructure:"listen"`
	MaxUploadBytes int64           `mapstructure:"max-upload-bytes" validate:"gte=0"`
	RateLimit      RateLimitConfig `mapstructure:"rate-limit"`
}

type RateLimitConfig struct {
	Requests        int           `mapstructure:"requests" validate:"gte=0"`
	Window          time.Duration `mapstructure:"window" validate:"gte=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup-interval" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-matcher ranks a job corpus against a resume using embeddings",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string][]string{
		"corpus-file":            {"RESUME_MATCHER_CORPUS"},
		"embedding.api-key-file": {"GEMINI_API_KEY_FILE"},
		"embedding.api-key":      {"GEMINI_API_KEY"},
	}
	for key, names := range envs {
		if err := viper.BindEnv(append([]string{key}, names...)...); err != nil {
			log.Fatalf("binding %v environment variables: %v", names, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("corpus", "", "path to the job corpus (.json or .json.gz)")
	rootCmd.PersistentFlags().Bool("no-quality-filter", false, "keep low-quality postings in the results")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("corpus-file", rootCmd.PersistentFlags().Lookup("corpus"))
	viper.BindPFlag("pipeline.no-quality-filter", rootCmd.PersistentFlags().Lookup("no-quality-filter"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
		viper.SetConfigType("yaml")
	}

	// The config file is optional: flags and environment are enough to run.
	// A file that exists but does not parse is still fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	config.defaults()

	if err := validate.Struct(config); err != nil {
		return config, err
	}

	return config, nil
}

var validate = validator.New()

func (c *Config) defaults() {
	if c.Embedding == nil {
		c.Embedding = &EmbeddingConfig{}
	}
	if c.Pipeline == nil {
		c.Pipeline = &PipelineConfig{}
	}
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
}
