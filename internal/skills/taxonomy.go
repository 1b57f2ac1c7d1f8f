// Package skills finds known technical skills in free text and compares the skills of
// a resume with the skills a job asks for.
package skills

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

//go:embed taxonomy.json
var defaultTaxonomy []byte

// Skills matched as plain substrings because \b does not work around their symbols.
var relaxedSkills = map[string]bool{
	"c++":  true,
	"c#":   true,
	".net": true,
}

type document struct {
	Categories map[string][]string `json:"categories"`
}

type entry struct {
	name     string
	category string
	pattern  *regexp.Regexp
}

// Taxonomy is an immutable skill dictionary. It is safe for concurrent use.
type Taxonomy struct {
	categories []string
	// Ordered by category name, then by position inside the category.
	entries []entry
	// Normalized skill name to its entry.
	index map[string]int
	// Names that showed up in more than one place of the source document.
	duplicates []Duplicate
}

// Duplicate is a skill that was listed again after its first occurrence.
type Duplicate struct {
	Skill    string `json:"skill"`
	Category string `json:"category"`
	FirstIn  string `json:"firstIn"`
}

func normalize(skill string) string {
	return strings.ToLower(strings.TrimSpace(skill))
}

// NewTaxonomy builds a taxonomy from category names to skill display names. The first
// occurrence of a skill wins; later ones are recorded as duplicates.
func NewTaxonomy(categories map[string][]string) (*Taxonomy, error) {
	t := &Taxonomy{index: make(map[string]int)}

	for category := range categories {
		t.categories = append(t.categories, category)
	}
	sort.Strings(t.categories)

	for _, category := range t.categories {
		for _, skill := range categories[category] {
			key := normalize(skill)
			if key == "" {
				continue
			}

			if idx, ok := t.index[key]; ok {
				t.duplicates = append(t.duplicates, Duplicate{
					Skill:    strings.TrimSpace(skill),
					Category: category,
					FirstIn:  t.entries[idx].category,
				})
				continue
			}

			pattern, err := compile(key)
			if err != nil {
				return nil, fmt.Errorf("skill %q: %w", skill, err)
			}

			t.index[key] = len(t.entries)
			t.entries = append(t.entries, entry{
				name:     strings.TrimSpace(skill),
				category: category,
				pattern:  pattern,
			})
		}
	}

	return t, nil
}

func compile(key string) (*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(key)
	if relaxedSkills[key] {
		return regexp.Compile(`(?i)` + escaped)
	}
	return regexp.Compile(`(?i)\b` + escaped + `\b`)
}

// ParseTaxonomy reads a {"categories": {...}} document.
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}
	if len(doc.Categories) == 0 {
		return nil, fmt.Errorf("taxonomy has no categories")
	}
	return NewTaxonomy(doc.Categories)
}

// LoadTaxonomy reads a taxonomy file.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	t, err := ParseTaxonomy(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// DefaultTaxonomy returns the taxonomy compiled into the binary.
func DefaultTaxonomy() *Taxonomy {
	t, err := ParseTaxonomy(defaultTaxonomy)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
	}
	return t
}

func (t *Taxonomy) Categories() []string {
	return append([]string(nil), t.categories...)
}

// Len returns the number of distinct skills.
func (t *Taxonomy) Len() int {
	return len(t.entries)
}

// Category returns the category of a skill in any casing.
func (t *Taxonomy) Category(skill string) (string, bool) {
	idx, ok := t.index[normalize(skill)]
	if !ok {
		return "", false
	}
	return t.entries[idx].category, true
}

// Canonical returns the display name of a skill in any casing.
func (t *Taxonomy) Canonical(skill string) (string, bool) {
	idx, ok := t.index[normalize(skill)]
	if !ok {
		return "", false
	}
	return t.entries[idx].name, true
}

func (t *Taxonomy) Duplicates() []Duplicate {
	return append([]Duplicate(nil), t.duplicates...)
}
