package skills

import (
	"sort"
	"strings"

	"github.com/spigell/resume-matcher/internal/corpus"
)

type Analysis struct {
	Found      []string            `json:"found"`
	ByCategory map[string][]string `json:"byCategory"`
	TotalCount int                 `json:"totalCount"`
}

// Extract lists the taxonomy skills mentioned in text using their display names.
func (t *Taxonomy) Extract(text string) Analysis {
	analysis := Analysis{
		Found:      []string{},
		ByCategory: make(map[string][]string, len(t.categories)),
	}
	for _, category := range t.categories {
		analysis.ByCategory[category] = []string{}
	}

	for _, e := range t.entries {
		if !e.pattern.MatchString(text) {
			continue
		}
		analysis.Found = append(analysis.Found, e.name)
		analysis.ByCategory[e.category] = append(analysis.ByCategory[e.category], e.name)
	}

	analysis.TotalCount = len(analysis.Found)
	return analysis
}

// JobSkills returns the skills of a posting. Listed skills are mapped onto display names
// where the taxonomy knows them; without a list the title and description are scanned.
func (t *Taxonomy) JobSkills(p *corpus.Posting) []string {
	if len(p.Skills) == 0 {
		return t.Extract(p.Title + " " + p.Description).Found
	}

	seen := make(map[string]struct{}, len(p.Skills))
	list := make([]string, 0, len(p.Skills))
	for _, skill := range p.Skills {
		name := strings.TrimSpace(skill)
		if canonical, ok := t.Canonical(name); ok {
			name = canonical
		}
		if name == "" {
			continue
		}
		if _, ok := seen[normalize(name)]; ok {
			continue
		}
		seen[normalize(name)] = struct{}{}
		list = append(list, name)
	}
	return list
}

type Gap struct {
	Missing         []string `json:"missingSkills"`
	Matching        []string `json:"matchedSkills"`
	Extra           []string `json:"extraSkills"`
	MatchPercentage float64  `json:"matchPercentage"`
}

func keySet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, s := range list {
		set[normalize(s)] = struct{}{}
	}
	return set
}

// AnalyzeGap compares resume skills with job skills ignoring case. MatchPercentage is the
// share of job skills the resume covers, 0 when the job lists none.
func AnalyzeGap(resumeSkills, jobSkills []string) Gap {
	resumeSet := keySet(resumeSkills)
	jobSet := keySet(jobSkills)

	gap := Gap{Missing: []string{}, Matching: []string{}, Extra: []string{}}

	for _, s := range jobSkills {
		if _, ok := resumeSet[normalize(s)]; ok {
			gap.Matching = append(gap.Matching, s)
			continue
		}
		gap.Missing = append(gap.Missing, s)
	}

	for _, s := range resumeSkills {
		if _, ok := jobSet[normalize(s)]; !ok {
			gap.Extra = append(gap.Extra, s)
		}
	}

	if len(jobSkills) > 0 {
		gap.MatchPercentage = float64(len(gap.Matching)) / float64(len(jobSkills)) * 100
	}

	return gap
}

// TopSkills returns the skills most often requested across the given skill lists,
// most frequent first, ties broken by first appearance.
func TopSkills(lists [][]string, limit int) []string {
	counts := make(map[string]int)
	names := make(map[string]string)
	var order []string

	for _, list := range lists {
		for _, s := range list {
			key := normalize(s)
			if key == "" {
				continue
			}
			if _, ok := counts[key]; !ok {
				names[key] = s
				order = append(order, key)
			}
			counts[key]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if limit >= 0 && limit < len(order) {
		order = order[:limit]
	}

	top := make([]string, 0, len(order))
	for _, key := range order {
		top = append(top, names[key])
	}
	return top
}

type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

type CoverageReport struct {
	TotalJobs         int          `json:"totalJobs"`
	TotalSkills       int          `json:"totalSkills"`
	JobsWithSkills    int          `json:"jobsWithSkills"`
	JobsWithoutSkills int          `json:"jobsWithoutSkills"`
	AvgSkillsPerJob   float64      `json:"avgSkillsPerJob"`
	Top               []SkillCount `json:"top"`
	Bottom            []SkillCount `json:"bottom"`
}

const (
	coverageTop    = 20
	coverageBottom = 10
)

// Coverage scans every job's title and description and reports how well the taxonomy
// covers the corpus.
func (t *Taxonomy) Coverage(jobs []*corpus.Job) CoverageReport {
	report := CoverageReport{TotalJobs: len(jobs), TotalSkills: t.Len()}

	counts := make(map[string]int)
	found := 0
	for _, job := range jobs {
		if job == nil {
			continue
		}
		skills := t.Extract(job.Title + " " + job.Description).Found
		if len(skills) == 0 {
			report.JobsWithoutSkills++
			continue
		}
		report.JobsWithSkills++
		found += len(skills)
		for _, s := range skills {
			counts[s]++
		}
	}

	if report.TotalJobs > 0 {
		report.AvgSkillsPerJob = float64(found) / float64(report.TotalJobs)
	}

	sorted := make([]SkillCount, 0, len(counts))
	for skill, count := range counts {
		sorted = append(sorted, SkillCount{Skill: skill, Count: count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Skill < sorted[j].Skill
	})

	report.Top = sorted[:min(coverageTop, len(sorted))]
	report.Bottom = sorted[max(0, len(sorted)-coverageBottom):]

	return report
}
