// Package ranking orders corpus jobs by cosine similarity to a query embedding.
package ranking

import (
	"sort"

	"github.com/spigell/resume-matcher/internal/corpus"
	"github.com/spigell/resume-matcher/internal/vectormath"
)

// Match is a ranked job. The embedding is kept for projection but never serialized.
type Match struct {
	corpus.Posting
	Score     float64   `json:"score"`
	Embedding []float64 `json:"-"`
}

type Matches struct {
	Items []*Match
}

func (m *Matches) Len() int {
	return len(m.Items)
}

// Head returns the first n matches; a negative n or one beyond the length returns all.
func (m *Matches) Head(n int) []*Match {
	if n < 0 || n > len(m.Items) {
		return m.Items
	}
	return m.Items[:n]
}

// Exclude drops matches whose field equals one of the targets (case-insensitive)
// and returns the dropped IDs.
func (m *Matches) Exclude(field string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	jobs := &corpus.Jobs{Items: make([]*corpus.Job, 0, len(m.Items))}
	byJob := make(map[*corpus.Job]*Match, len(m.Items))
	for _, match := range m.Items {
		job := &corpus.Job{Posting: match.Posting}
		byJob[job] = match
		jobs.Items = append(jobs.Items, job)
	}

	excluded := jobs.Exclude(field, targets)

	kept := make([]*Match, 0, jobs.Len())
	for _, job := range jobs.Items {
		kept = append(kept, byJob[job])
	}
	m.Items = kept

	return excluded
}

// Keep retains the matches for which keep returns true, preserving order.
func (m *Matches) Keep(keep func(*Match) bool) (dropped []string) {
	kept := m.Items[:0]
	for _, match := range m.Items {
		if keep(match) {
			kept = append(kept, match)
			continue
		}
		dropped = append(dropped, match.ID)
	}
	m.Items = kept
	return dropped
}

// Rank scores every job against query and returns the best topK, highest first.
// Ties keep corpus order. Jobs whose embedding length differs from the query are
// skipped and a zero-magnitude embedding scores 0. A negative topK returns every
// comparable job.
func Rank(query []float64, jobs []*corpus.Job, topK int) *Matches {
	items := make([]*Match, 0, len(jobs))
	for _, job := range jobs {
		if job == nil || len(job.Embedding) != len(query) {
			continue
		}
		items = append(items, &Match{
			Posting:   job.Posting,
			Score:     vectormath.OrZero(vectormath.CosineSimilarity(query, job.Embedding)),
			Embedding: job.Embedding,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})

	if topK >= 0 && topK < len(items) {
		items = items[:topK]
	}

	return &Matches{Items: items}
}
