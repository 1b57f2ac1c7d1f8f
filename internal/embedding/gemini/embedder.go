// Package gemini embeds text with the Gemini embedding models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/utils"
)

const (
	Provider     = "gemini"
	// DefaultModel is used when Options.Model is empty.
	DefaultModel = "text-embedding-004"

	defaultMaxRetries = 3
	defaultDimensions = 384
	retryBase         = 500 * time.Millisecond
	retryLimit        = 8 * time.Second
	// Quota errors asking for a longer pause than this fail fast.
	maxQuotaDelay = 10 * time.Second
)

var (
	wait = utils.WaitFor

	retryAfterRe = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)
)

// contentEmbedder is the part of genai.Models used here.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type Options struct {
	Model      string
	Dimensions int
	MaxRetries int
	TaskType   string
}

// Embedder calls the Gemini API and converts the result to float64 vectors.
type Embedder struct {
	models     contentEmbedder
	model      string
	dimensions int
	taskType   string
	maxRetries int
	logger     *zap.Logger
}

// NewEmbedder creates a client for the Gemini API backend.
func NewEmbedder(ctx context.Context, apiKey string, opts Options, log *zap.Logger) (*Embedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, opts, log), nil
}

func newEmbedder(models contentEmbedder, opts Options, log *zap.Logger) *Embedder {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	dims := opts.Dimensions
	if dims <= 0 {
		dims = defaultDimensions
	}
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	taskType := opts.TaskType
	if taskType == "" {
		taskType = "SEMANTIC_SIMILARITY"
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Embedder{
		models:     models,
		model:      model,
		dimensions: dims,
		taskType:   taskType,
		maxRetries: retries,
		logger:     logger.WithCommonFields(log, Provider, model),
	}
}

// Model is the name of the model the vectors come from.
func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}

// Embed returns the embedding of text. Server errors and short quota pauses are retried
// up to maxRetries attempts in total.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if e == nil || e.models == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text must not be empty")
	}

	dims := int32(e.dimensions)
	cfg := &genai.EmbedContentConfig{
		TaskType:             e.taskType,
		OutputDimensionality: &dims,
	}
	contents := genai.Text(text)

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		resp, err := e.models.EmbedContent(ctx, e.model, contents, cfg)
		if err == nil {
			return e.vector(resp)
		}
		lastErr = err

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == e.maxRetries {
			break
		}

		e.logger.Warn("embedding request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := wait(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("embed content: %w", lastErr)
}

func (e *Embedder) vector(resp *genai.EmbedContentResponse) ([]float64, error) {
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini api returned no embeddings")
	}

	values := resp.Embeddings[0].Values
	if len(values) == 0 {
		return nil, errors.New("gemini api returned an empty embedding")
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}

	e.logger.Debug("embedding received", zap.Int("dimensions", len(out)))
	return out, nil
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

// retryDelay reports whether err is worth another attempt and how long to wait first.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	apiErr, ok := asAPIError(err)
	if !ok {
		return 0, false
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		if m := retryAfterRe.FindStringSubmatch(apiErr.Message); m != nil {
			seconds, perr := strconv.ParseFloat(m[1], 64)
			if perr == nil {
				d := time.Duration(seconds * float64(time.Second))
				if d > maxQuotaDelay {
					return 0, false
				}
				return d, true
			}
		}
		return utils.Backoff(attempt, retryBase, retryLimit), true
	case apiErr.Code >= http.StatusInternalServerError:
		return utils.Backoff(attempt, retryBase, retryLimit), true
	default:
		return 0, false
	}
}
