// Package matching runs a resume through the whole pipeline: embedding, ranking,
// filtering, per-job enrichment, ensemble scoring and the 2-D projection.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-matcher/internal/corpus"
	"github.com/spigell/resume-matcher/internal/embedding"
	"github.com/spigell/resume-matcher/internal/experience"
	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/feedback"
	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/pca"
	"github.com/spigell/resume-matcher/internal/quality"
	"github.com/spigell/resume-matcher/internal/ranking"
	"github.com/spigell/resume-matcher/internal/scoring"
	"github.com/spigell/resume-matcher/internal/skills"
	"github.com/spigell/resume-matcher/internal/utils"
)

const (
	DefaultCandidatePool = 100
	DefaultPlotLimit     = 50
	DefaultEnrichLimit   = 10
	DefaultChunkSize     = 200
	DefaultChunkOverlap  = 50
	DefaultConcurrency   = 4

	previewLength  = 200
	topSkillsLimit = 10
)

type Config struct {
	CandidatePool    int
	PlotLimit        int
	EnrichLimit      int
	QualityThreshold float64
	ExcludeCompanies []string
	Dimensions       int
	ChunkSize        int
	// ChunkOverlap is in words. Negative disables overlap.
	ChunkOverlap     int
	Concurrency      int
	// Seed makes the projection reproducible. Zero draws fresh start vectors per request.
	Seed             int64
	// PCAIterations is the number of power iterations per projected axis.
	PCAIterations    int
	// Disable names filter steps to skip, e.g. "quality".
	Disable          []string
}

func (c Config) withDefaults() Config {
	if c.CandidatePool <= 0 {
		c.CandidatePool = DefaultCandidatePool
	}
	if c.PlotLimit <= 0 {
		c.PlotLimit = DefaultPlotLimit
	}
	if c.EnrichLimit <= 0 {
		c.EnrichLimit = DefaultEnrichLimit
	}
	if c.EnrichLimit > c.PlotLimit {
		c.EnrichLimit = c.PlotLimit
	}
	if c.QualityThreshold == 0 {
		c.QualityThreshold = quality.Threshold
	}
	if c.Dimensions <= 0 {
		c.Dimensions = embedding.DefaultDimensions
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	switch {
	case c.ChunkOverlap == 0:
		c.ChunkOverlap = DefaultChunkOverlap
	case c.ChunkOverlap < 0:
		c.ChunkOverlap = 0
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

type Matcher struct {
	cfg      Config
	jobs     *corpus.Jobs
	taxonomy *skills.Taxonomy
	embedder embedding.Embedder
	filters  []filtering.Filter
	logger   *zap.Logger
}

func New(cfg Config, jobs *corpus.Jobs, taxonomy *skills.Taxonomy, embedder embedding.Embedder, logger *zap.Logger) (*Matcher, error) {
	if jobs == nil || jobs.Len() == 0 {
		return nil, corpus.ErrEmptyCorpus
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if taxonomy == nil {
		taxonomy = skills.DefaultTaxonomy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg = cfg.withDefaults()

	filters := filtering.Default(cfg.Dimensions, cfg.QualityThreshold, cfg.ExcludeCompanies)
	for _, name := range cfg.Disable {
		if !filtering.DisableByName(filters, name, "disabled by configuration") {
			return nil, fmt.Errorf("unknown filter %q", name)
		}
	}

	return &Matcher{
		cfg:      cfg,
		jobs:     jobs,
		taxonomy: taxonomy,
		embedder: embedder,
		filters:  filters,
		logger:   logger,
	}, nil
}

// Filters reports the configured filter steps.
func (m *Matcher) Filters() []filtering.Status {
	return filtering.Describe(m.filters)
}

func (m *Matcher) Config() Config {
	return m.cfg
}

type Request struct {
	// Text is the plain text extracted from the resume.
	Text string
	// Logger overrides the matcher logger for this request.
	Logger *zap.Logger
}

// Analysis explains the score of one enriched job.
type Analysis struct {
	skills.Gap
	SectionScores     scoring.SectionScores `json:"sectionScores"`
	ScoringStrategy   scoring.Strategy      `json:"scoringStrategy"`
	AvailableSections []scoring.Section     `json:"availableSections"`
	SemanticScore     float64               `json:"semanticScore"`
	LevelMatch        float64               `json:"levelMatch"`
	CandidateLevel    experience.Level      `json:"candidateLevel"`
}

type RankedJob struct {
	corpus.Posting
	Score      float64  `json:"score"`
	Similarity float64  `json:"similarity"`
	Analysis   Analysis `json:"analysis"`
}

type PlotPoint struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Company    string  `json:"company"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Score      float64 `json:"score"`
	IsTopMatch bool    `json:"isTopMatch"`
}

type Visualization struct {
	User pca.Point   `json:"user"`
	Jobs []PlotPoint `json:"jobs"`
}

type Result struct {
	Matches       []*RankedJob        `json:"matches"`
	Visualization Visualization       `json:"visualization"`
	Experience    experience.Analysis `json:"experience"`
	Skills        skills.Analysis     `json:"skills"`
	Feedback      feedback.Feedback   `json:"feedback"`
	ResumePreview string              `json:"resumePreview"`
	Candidates    int                 `json:"candidates"`
}

// Recommend ranks the corpus against the resume. The rank, filter, plot and enrich
// stages narrow the candidate set so the per-job analysis only runs on the best few.
func (m *Matcher) Recommend(ctx context.Context, req Request) (*Result, error) {
	logger := req.Logger
	if logger == nil {
		logger = m.logger
	}

	cleaned := extraction.CleanText(req.Text)
	if cleaned == "" {
		return nil, extraction.ErrEmptyText
	}

	chunks := extraction.Chunk(cleaned, m.cfg.ChunkSize, m.cfg.ChunkOverlap)
	resumeVector, err := embedding.EmbedChunks(ctx, m.embedder, chunks, m.cfg.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("embed resume: %w", err)
	}
	logger.Debug("resume embedded", zap.Int("chunks", len(chunks)), zap.Int("dimensions", len(resumeVector)))

	sections := extraction.ExtractSections(req.Text)
	sectionVectors := m.embedSections(ctx, logger, sections.Usable())

	candidates := ranking.Rank(resumeVector, m.jobs.Items, m.cfg.CandidatePool)
	ranked := candidates.Len()

	candidates, err = filtering.Run(ctx, logger, m.filters, candidates)
	if err != nil {
		return nil, fmt.Errorf("filter candidates: %w", err)
	}

	plotted := candidates.Head(m.cfg.PlotLimit)
	enrichCount := min(m.cfg.EnrichLimit, len(plotted))

	resumeSkills := m.taxonomy.Extract(req.Text)
	exp := experience.Detect(req.Text)

	matches := make([]*RankedJob, 0, enrichCount)
	jobSkills := make([][]string, 0, enrichCount)
	for _, match := range plotted[:enrichCount] {
		required := m.taxonomy.JobSkills(&match.Posting)
		jobSkills = append(jobSkills, required)
		matches = append(matches, enrich(match, required, resumeSkills, sectionVectors, exp.Level))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	logger.Info("resume matched",
		zap.Int("ranked", ranked),
		zap.Int("filtered", candidates.Len()),
		zap.Int("plotted", len(plotted)),
		zap.Int("enriched", len(matches)),
		zap.String("candidate_level", string(exp.Level)),
	)

	return &Result{
		Matches:       matches,
		Visualization: m.project(resumeVector, plotted, enrichCount),
		Experience:    exp,
		Skills:        resumeSkills,
		Feedback:      feedback.Generate(req.Text, sections, resumeSkills, exp, skills.TopSkills(jobSkills, topSkillsLimit)),
		ResumePreview: utils.Preview(cleaned, previewLength),
		Candidates:    candidates.Len(),
	}, nil
}

func enrich(match *ranking.Match, required []string, resume skills.Analysis, sections scoring.SectionEmbeddings, level experience.Level) *RankedJob {
	gap := skills.AnalyzeGap(resume.Found, required)
	weighted := scoring.ComputeWeighted(sections, match.Embedding, match.Score)
	levelScore := experience.Match(level, match.Level)

	return &RankedJob{
		Posting:    match.Posting,
		Score:      scoring.Ensemble(weighted, gap.MatchPercentage, scoring.LevelMatches(levelScore)),
		Similarity: match.Score,
		Analysis: Analysis{
			Gap:               gap,
			SectionScores:     weighted.SectionScores,
			ScoringStrategy:   weighted.Strategy,
			AvailableSections: weighted.AvailableSections,
			SemanticScore:     weighted.FinalScore,
			LevelMatch:        levelScore,
			CandidateLevel:    level,
		},
	}
}

// embedSections embeds the usable resume sections concurrently. A section whose
// embedding fails is left out; the weighted scorer then works with what remains.
func (m *Matcher) embedSections(ctx context.Context, logger *zap.Logger, sections extraction.Sections) scoring.SectionEmbeddings {
	var (
		mu     sync.Mutex
		result scoring.SectionEmbeddings
	)

	targets := []struct {
		name scoring.Section
		text string
		dst  *[]float64
	}{
		{scoring.SectionExperience, sections.Experience, &result.Experience},
		{scoring.SectionSkills, sections.Skills, &result.Skills},
		{scoring.SectionEducation, sections.Education, &result.Education},
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)

	for _, target := range targets {
		if target.text == "" {
			continue
		}
		g.Go(func() error {
			chunks := extraction.Chunk(extraction.CleanText(target.text), m.cfg.ChunkSize, m.cfg.ChunkOverlap)
			vector, err := embedding.EmbedChunks(gCtx, m.embedder, chunks, 1)
			if err != nil {
				logger.Warn("section embedding failed", zap.String("section", string(target.name)), zap.Error(err))
				return nil
			}

			mu.Lock()
			*target.dst = vector
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	return result
}

// project places the resume and every plotted job on a plane. The first enrichCount
// plotted jobs are flagged as top matches.
func (m *Matcher) project(resume []float64, plotted []*ranking.Match, enrichCount int) Visualization {
	matrix := make([][]float64, 0, len(plotted)+1)
	matrix = append(matrix, resume)
	for _, match := range plotted {
		matrix = append(matrix, match.Embedding)
	}

	var opts []pca.Option
	if m.cfg.Seed != 0 {
		opts = append(opts, pca.WithSeed(m.cfg.Seed))
	}
	if m.cfg.PCAIterations > 0 {
		opts = append(opts, pca.WithIterations(m.cfg.PCAIterations))
	}

	points := pca.Compute(matrix, opts...)

	vis := Visualization{User: points[0], Jobs: make([]PlotPoint, 0, len(plotted))}
	for i, match := range plotted {
		p := points[i+1]
		vis.Jobs = append(vis.Jobs, PlotPoint{
			ID:         match.ID,
			Title:      match.Title,
			Company:    match.Company,
			X:          p.X,
			Y:          p.Y,
			Score:      match.Score,
			IsTopMatch: i < enrichCount,
		})
	}
	return vis
}
