package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/resume-matcher/internal/corpus"
	"github.com/spigell/resume-matcher/internal/quality"
	"github.com/spigell/resume-matcher/internal/ranking"
)

type dimensionFilter struct {
	toggle
	dim int
}

// NewDimension creates a filter that removes matches whose embedding length differs from dim.
func NewDimension(dim int) Filter {
	return &dimensionFilter{dim: dim}
}

func (f *dimensionFilter) Name() string { return DimensionFilter }

func (f *dimensionFilter) Validate() error {
	if f.dim <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", f.dim)
	}
	return nil
}

func (f *dimensionFilter) Apply(_ context.Context, m *ranking.Matches) (*ranking.Matches, Step, error) {
	initial := m.Len()
	dropped := m.Keep(func(match *ranking.Match) bool {
		return len(match.Embedding) == f.dim
	})
	return m, Step{Initial: initial, Dropped: len(dropped), Left: m.Len()}, nil
}

func (f *dimensionFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"dimension": strconv.Itoa(f.dim)},
	}
}

type qualityFilter struct {
	toggle
	threshold float64
}

// NewQuality creates a filter that removes postings scoring below threshold.
// Rank order of the survivors is kept.
func NewQuality(threshold float64) Filter {
	return &qualityFilter{threshold: threshold}
}

func (f *qualityFilter) Name() string { return QualityFilter }

func (f *qualityFilter) Validate() error {
	if f.threshold < 0 || f.threshold > 1 {
		return fmt.Errorf("quality threshold must be within [0, 1], got %v", f.threshold)
	}
	return nil
}

func (f *qualityFilter) Apply(_ context.Context, m *ranking.Matches) (*ranking.Matches, Step, error) {
	initial := m.Len()
	dropped := m.Keep(func(match *ranking.Match) bool {
		return quality.ScoreJob(&match.Posting).Score >= f.threshold
	})
	return m, Step{Initial: initial, Dropped: len(dropped), Left: m.Len()}, nil
}

func (f *qualityFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"threshold": strconv.FormatFloat(f.threshold, 'f', 2, 64)},
	}
}

type companiesFilter struct {
	toggle
	companies []string
}

// NewExcludedCompanies creates a filter that removes postings by the listed companies.
func NewExcludedCompanies(companies []string) Filter {
	return &companiesFilter{companies: companies}
}

func (f *companiesFilter) Name() string { return CompaniesFilter }

func (f *companiesFilter) Validate() error { return nil }

func (f *companiesFilter) Apply(_ context.Context, m *ranking.Matches) (*ranking.Matches, Step, error) {
	initial := m.Len()
	if len(f.companies) == 0 {
		return m, Step{Initial: initial, Dropped: 0, Left: m.Len()}, nil
	}

	excluded := m.Exclude(corpus.JobCompanyField, f.companies)

	return m, Step{Initial: initial, Dropped: len(excluded), Left: m.Len()}, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.companies) > 0 {
		details["companies"] = strings.Join(f.companies, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
