// Package corpus loads the static job corpus the matcher ranks against.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/klauspost/compress/gzip"
	"github.com/mitchellh/mapstructure"

	"github.com/spigell/resume-matcher/internal/vectormath"
)

var ErrEmptyCorpus = errors.New("job corpus is empty")

type Item any

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	gzErr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return gzErr
}

// Open opens a corpus file, transparently decompressing paths ending in .gz.
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return file, nil
	}

	zr, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("open gzip corpus %s: %w", path, err)
	}
	return &gzipFile{Reader: zr, file: file}, nil
}

// ReadFile returns the raw, decompressed corpus bytes.
func ReadFile(path string) ([]byte, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// Save writes jobs to path as a JSON array, gzip-compressed when path ends in .gz.
func Save(path string, jobs *Jobs) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = file
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		zw := gzip.NewWriter(file)
		defer func() {
			if cerr := zw.Close(); err == nil {
				err = cerr
			}
		}()
		w = zw
	}

	if err := json.NewEncoder(w).Encode(jobs.Items); err != nil {
		return fmt.Errorf("encode corpus %s: %w", path, err)
	}
	return nil
}

// Load reads a JSON array of jobs from path.
func Load(path string) (*Jobs, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	jobs, err := Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode corpus %s: %w", path, err)
	}
	return jobs, nil
}

// Decode reads raw items first and maps them onto Job with mapstructure so loosely
// typed corpora (numeric ids, numbers as strings) still load.
func Decode(r io.Reader) (*Jobs, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, ErrEmptyCorpus
	}

	var jobs []*Job
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           &jobs,
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(items); err != nil {
		return nil, err
	}

	for _, job := range jobs {
		if job != nil && looksLikeHTML(job.Description) {
			job.Description = htmlToText(job.Description)
		}
	}

	return &Jobs{Items: jobs}, nil
}

func looksLikeHTML(s string) bool {
	open := strings.IndexByte(s, '<')
	return open >= 0 && strings.IndexByte(s[open:], '>') > 0
}

// htmlToText flattens scraped HTML descriptions. Block elements become word breaks.
func htmlToText(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}

	doc.Find("script, style").Remove()
	doc.Find("p, li, br, div, tr, h1, h2, h3, h4, h5, h6").AfterHtml("\n")

	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Problem describes a corpus entry that will not take part in ranking as-is.
type Problem struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Validate reports jobs with missing metadata or an embedding of unexpected length
// or zero magnitude.
func Validate(jobs *Jobs, dim int) []Problem {
	var problems []Problem
	for idx, job := range jobs.Items {
		if job == nil {
			problems = append(problems, Problem{Index: idx, Reason: "null entry"})
			continue
		}
		if strings.TrimSpace(job.Title) == "" || strings.TrimSpace(job.Description) == "" {
			problems = append(problems, Problem{Index: idx, ID: job.ID, Reason: "missing title or description"})
		}
		switch {
		case len(job.Embedding) != dim:
			problems = append(problems, Problem{
				Index:  idx,
				ID:     job.ID,
				Reason: fmt.Sprintf("embedding has %d dimensions, want %d", len(job.Embedding), dim),
			})
		case vectormath.Norm(job.Embedding) == 0:
			// cosine similarity against a zero vector is undefined
			problems = append(problems, Problem{Index: idx, ID: job.ID, Reason: "embedding has zero magnitude"})
		}
	}
	return problems
}
