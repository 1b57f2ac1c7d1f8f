package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/corpus"
	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/quality"
	"github.com/spigell/resume-matcher/internal/skills"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the job corpus and skill taxonomy and report skill coverage",
	Run: func(cmd *cobra.Command, _ []string) {
		validateCorpus(cmd)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().Bool("strict", false, "exit with an error if any job has problems")
	validateCmd.Flags().Bool("by-company", false, "list the postings of every company in the report")
}

type validationReport struct {
	Corpus          string                         `json:"corpus"`
	Jobs            int                            `json:"jobs"`
	SchemaErrors    []string                       `json:"schemaErrors,omitempty"`
	Problems        []corpus.Problem               `json:"problems,omitempty"`
	LowQuality      int                            `json:"lowQuality"`
	EmbeddingModels map[string]int                 `json:"embeddingModels"`
	ConfiguredModel string                         `json:"configuredModel"`
	ForeignModels   []string                       `json:"foreignModels,omitempty"`
	Duplicates      []skills.Duplicate             `json:"taxonomyDuplicates,omitempty"`
	Coverage        skills.CoverageReport          `json:"coverage"`
	Filters         []filtering.Status             `json:"filters"`
	Companies       map[string][]map[string]string `json:"companies,omitempty"`
}

func validateCorpus(cmd *cobra.Command) {
	logger, config := setup()

	data, err := corpus.ReadFile(config.CorpusFile)
	if err != nil {
		logger.Fatal("reading corpus", zap.Error(err))
	}

	report := validationReport{Corpus: config.CorpusFile}

	report.SchemaErrors, err = corpus.CheckSchema(data)
	if err != nil {
		logger.Fatal("checking corpus schema", zap.Error(err))
	}

	jobs, err := corpus.Decode(bytes.NewReader(data))
	if err != nil {
		logger.Fatal("decoding corpus", zap.Error(err))
	}
	report.Jobs = jobs.Len()

	taxonomy, err := loadTaxonomy(config)
	if err != nil {
		logger.Fatal("loading taxonomy", zap.Error(err))
	}

	mc := matcherConfig(config)
	threshold := mc.QualityThreshold
	if threshold == 0 {
		threshold = quality.Threshold
	}

	report.Problems = corpus.Validate(jobs, mc.Dimensions)
	for _, job := range jobs.Items {
		if job != nil && quality.ScoreJob(&job.Posting).Score < threshold {
			report.LowQuality++
		}
	}
	report.EmbeddingModels = jobs.EmbeddingModels()
	report.ConfiguredModel = configuredModel(config)
	report.ForeignModels = foreignModels(jobs, report.ConfiguredModel)
	if len(report.ForeignModels) > 0 {
		logger.Warn("corpus embedding model differs from the configured one",
			zap.String("configured", report.ConfiguredModel),
			zap.Strings("corpus_models", report.ForeignModels),
			zap.String("hint", "re-embed the corpus with the embed-corpus command"),
		)
	}

	report.Duplicates = taxonomy.Duplicates()
	report.Coverage = taxonomy.Coverage(jobs.Items)

	filters := filtering.Default(mc.Dimensions, threshold, mc.ExcludeCompanies)
	for _, name := range mc.Disable {
		filtering.DisableByName(filters, name, "disabled by configuration")
	}
	report.Filters = filtering.Describe(filters)

	if byCompany, _ := cmd.Flags().GetBool("by-company"); byCompany {
		report.Companies = jobs.ReportByCompany()
	}

	pretty, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Fatal("encoding report", zap.Error(err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))

	logger.Info("corpus validated",
		zap.Int("jobs", report.Jobs),
		zap.Int("schema_errors", len(report.SchemaErrors)),
		zap.Int("problems", len(report.Problems)),
		zap.Int("low_quality", report.LowQuality),
		zap.Int("taxonomy_duplicates", len(report.Duplicates)),
	)

	strict, _ := cmd.Flags().GetBool("strict")
	if strict && (len(report.SchemaErrors) > 0 || len(report.Problems) > 0) {
		logger.Fatal("corpus has problems")
	}
}
