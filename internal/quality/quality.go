// Package quality scores how descriptive a job posting is so thin postings can be
// dropped before the expensive per-job analysis.
package quality

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/spigell/resume-matcher/internal/corpus"
)

// Threshold is the minimum total score of a valid posting.
const Threshold = 0.4

const (
	specificityStep = 0.05
	specificityCap  = 0.20
)

var (
	seniorityPattern = regexp.MustCompile(`(?i)\b(junior|mid|senior|lead|principal|staff|entry|intern|associate)\b`)

	specificityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d+\s*years?`),
		regexp.MustCompile(`\$[\d,]+`),
		regexp.MustCompile(`(?i)remote|hybrid|on-?site`),
		regexp.MustCompile(`(?i)bachelor|master|phd|degree`),
		regexp.MustCompile(`(?i)team of \d+`),
	}
)

type Breakdown struct {
	DescriptionLength float64 `json:"descriptionLength"`
	SkillsList        float64 `json:"hasSkillsList"`
	Seniority         float64 `json:"hasSeniority"`
	Company           float64 `json:"hasCompany"`
	Specificity       float64 `json:"specificity"`
}

func (b Breakdown) total() float64 {
	return b.DescriptionLength + b.SkillsList + b.Seniority + b.Company + b.Specificity
}

type Score struct {
	Score     float64   `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
	IsValid   bool      `json:"isValid"`
}

// ScoreJob rates a posting between 0 and 1. Tiered sub-scores take the value of the
// highest tier reached; they do not accumulate.
func ScoreJob(p *corpus.Posting) Score {
	var b Breakdown

	words := len(strings.Fields(p.Description))
	switch {
	case words >= 350:
		b.DescriptionLength = 0.30
	case words >= 200:
		b.DescriptionLength = 0.25
	case words >= 100:
		b.DescriptionLength = 0.15
	}

	switch skills := len(p.Skills); {
	case skills >= 5:
		b.SkillsList = 0.25
	case skills >= 3:
		b.SkillsList = 0.15
	}

	if p.Level != "" || seniorityPattern.MatchString(p.Title) {
		b.Seniority = 0.15
	}

	// Presence checks look at the raw values; padding counts.
	if len(p.Company) > 2 && !strings.EqualFold(p.Company, "unknown") {
		b.Company = 0.10
	}

	matches := 0
	for _, pattern := range specificityPatterns {
		if pattern.MatchString(p.Description) {
			matches++
		}
	}
	b.Specificity = math.Min(float64(matches)*specificityStep, specificityCap)

	score := math.Min(b.total(), 1)

	return Score{
		Score:     score,
		Breakdown: b,
		IsValid:   score >= Threshold,
	}
}

// Annotated pairs a posting with its quality score.
type Annotated struct {
	Job     *corpus.Job
	Quality Score
}

// Annotate scores every job without filtering.
func Annotate(jobs []*corpus.Job) []Annotated {
	annotated := make([]Annotated, 0, len(jobs))
	for _, job := range jobs {
		annotated = append(annotated, Annotated{Job: job, Quality: ScoreJob(&job.Posting)})
	}
	return annotated
}

// FilterHighQuality keeps jobs scoring at least threshold, best first.
func FilterHighQuality(jobs []*corpus.Job, threshold float64) []*corpus.Job {
	annotated := Annotate(jobs)

	kept := annotated[:0]
	for _, a := range annotated {
		if a.Quality.Score >= threshold {
			kept = append(kept, a)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Quality.Score > kept[j].Quality.Score
	})

	result := make([]*corpus.Job, 0, len(kept))
	for _, a := range kept {
		result = append(result, a.Job)
	}
	return result
}
