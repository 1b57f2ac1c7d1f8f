package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-matcher/internal/corpus"
	"github.com/spigell/resume-matcher/internal/embedding"
)

const defaultEmbedConcurrency = 4

var embedCorpusCmd = &cobra.Command{
	Use:   "embed-corpus",
	Short: "Embed every job of the corpus with the configured model and write the result",
	Long: `Embeds "<title>. <description>" of each job with the configured embedding provider
and records the model next to every vector, so the corpus and resumes share one
embedding space. Without --output the corpus is written to a temporary file.`,
	Run: func(cmd *cobra.Command, _ []string) {
		embedCorpus(cmd)
	},
}

func init() {
	rootCmd.AddCommand(embedCorpusCmd)

	embedCorpusCmd.Flags().StringP("output", "o", "", "where to write the embedded corpus (.json or .json.gz)")
	embedCorpusCmd.Flags().StringSlice("job", nil, "embed only the jobs with these ids, keeping the others as they are")
	embedCorpusCmd.Flags().Int("limit", 0, "embed and keep only the first n jobs, zero means all")
	embedCorpusCmd.Flags().IntP("concurrency", "c", defaultEmbedConcurrency, "how many jobs to embed at once")
}

func embedCorpus(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()

	jobs, err := loadCorpus(config, logger)
	if err != nil {
		logger.Fatal("loading corpus", zap.Error(err))
	}

	ids, _ := cmd.Flags().GetStringSlice("job")
	limit, _ := cmd.Flags().GetInt("limit")
	selected, err := selectJobs(jobs, ids, limit)
	if err != nil {
		logger.Fatal("selecting jobs", zap.Error(err))
	}

	emb, err := newEmbedder(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating embedder", zap.Error(err))
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	started := time.Now()
	if err := embedJobs(ctx, emb, emb.model, selected, concurrency, logger); err != nil {
		logger.Fatal("embedding corpus", zap.Error(err))
	}

	if limit > 0 && len(ids) == 0 {
		jobs.Items = selected
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output, err = jobs.DumpToTmpFile()
	} else {
		err = corpus.Save(output, jobs)
	}
	if err != nil {
		logger.Fatal("writing corpus", zap.Error(err))
	}

	logger.Info("corpus embedded",
		zap.String("file", output),
		zap.String("model", emb.model),
		zap.Int("embedded", len(selected)),
		zap.Int("jobs", jobs.Len()),
		zap.Any("cache", emb.cache.Stats()),
		zap.Duration("took", time.Since(started)),
	)
}

// selectJobs picks the jobs to embed: the listed ids when given, otherwise the first
// limit jobs (all when limit is zero).
func selectJobs(jobs *corpus.Jobs, ids []string, limit int) ([]*corpus.Job, error) {
	if len(ids) > 0 {
		selected := make([]*corpus.Job, 0, len(ids))
		for _, id := range ids {
			job := jobs.FindByID(strings.TrimSpace(id))
			if job == nil {
				return nil, fmt.Errorf("job %q is not in the corpus", id)
			}
			selected = append(selected, job)
		}
		return selected, nil
	}

	if limit > 0 && limit < jobs.Len() {
		return jobs.Items[:limit], nil
	}
	return jobs.Items, nil
}

func jobText(job *corpus.Job) string {
	return job.Title + ". " + job.Description
}

// embedJobs replaces the embedding of every job in place and stamps it with model.
// The first failure cancels the remaining work.
func embedJobs(ctx context.Context, emb embedding.Embedder, model string, jobs []*corpus.Job, concurrency int, logger *zap.Logger) error {
	if concurrency <= 0 {
		concurrency = defaultEmbedConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var done atomic.Int64
	for _, job := range jobs {
		if job == nil {
			continue
		}
		g.Go(func() error {
			vector, err := emb.Embed(ctx, jobText(job))
			if err != nil {
				return fmt.Errorf("job %s: %w", job.ID, err)
			}
			job.Embedding = vector
			job.EmbeddingModel = model

			logger.Debug("job embedded",
				zap.String("id", job.ID),
				zap.Int64("done", done.Add(1)),
				zap.Int("total", len(jobs)),
			)
			return nil
		})
	}
	return g.Wait()
}
