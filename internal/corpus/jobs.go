package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	JobIDField      = "ID"
	JobCompanyField = "Company"

	UnrecordedModel = "unrecorded"
)

// Posting is the descriptive part of a job record. It is what leaves the service;
// the embedding stays on Job.
type Posting struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Description string   `json:"description,omitempty"`
	Skills      []string `json:"skills,omitempty"`
	Level       string   `json:"level,omitempty"`
	Category    string   `json:"category,omitempty"`
	PostedDate  string   `json:"postedDate,omitempty"`
	OriginalURL string   `json:"originalUrl,omitempty"`
}

// Job is a posting from the static corpus together with its embedding.
type Job struct {
	Posting
	Embedding      []float64 `json:"embedding,omitempty"`
	// EmbeddingModel names the model that produced Embedding. Empty for corpora
	// embedded before models were recorded.
	EmbeddingModel string    `json:"embeddingModel,omitempty"`
}

type Jobs struct {
	Items []*Job
}

func (p *Posting) GetStringField(name string) string {
	switch name {
	case JobIDField:
		return p.ID
	case JobCompanyField:
		return p.Company
	default:
		return ""
	}
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

func (j *Jobs) FindByID(id string) *Job {
	for _, job := range j.Items {
		if job != nil && job.ID == id {
			return job
		}
	}
	return nil
}

// Exclude drops jobs whose field equals one of the targets (case-insensitive)
// and returns the dropped IDs. Order of the remaining jobs is preserved.
func (j *Jobs) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	var excluded []string
	kept := j.Items[:0]
	for _, job := range j.Items {
		if _, ok := set[strings.ToLower(job.GetStringField(name))]; ok {
			excluded = append(excluded, job.ID)
			continue
		}
		kept = append(kept, job)
	}
	j.Items = kept

	return excluded
}

// ReportByCompany groups postings by company for a quick overview.
func (j *Jobs) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, job := range j.Items {
		company := job.Company
		if strings.TrimSpace(company) == "" {
			company = "unknown"
		}
		report[company] = append(report[company], map[string]string{
			"id":       job.ID,
			"title":    job.Title,
			"level":    job.Level,
			"category": job.Category,
			"url":      job.OriginalURL,
		})
	}
	return report
}

// EmbeddingModels counts jobs per recorded embedding model. Jobs without a record
// are counted under UnrecordedModel.
func (j *Jobs) EmbeddingModels() map[string]int {
	models := make(map[string]int)
	for _, job := range j.Items {
		if job == nil {
			continue
		}
		model := job.EmbeddingModel
		if model == "" {
			model = UnrecordedModel
		}
		models[model]++
	}
	return models
}

// DumpToTmpFile writes the jobs as a corpus JSON array to a temporary file.
func (j *Jobs) DumpToTmpFile() (string, error) {
	return dumpToTmpFile("jobs_*.json", j.Items)
}

func dumpToTmpFile(pattern string, v any) (string, error) {
	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode %s: %w", file.Name(), err)
	}
	return file.Name(), nil
}

// DumpToTmpFile writes any JSON-serializable value to a temporary file and returns its name.
func DumpToTmpFile(pattern string, v any) (string, error) {
	return dumpToTmpFile(pattern, v)
}
