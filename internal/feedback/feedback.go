// Package feedback grades a resume and suggests concrete improvements.
package feedback

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spigell/resume-matcher/internal/experience"
	"github.com/spigell/resume-matcher/internal/extraction"
	"github.com/spigell/resume-matcher/internal/skills"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityTip      Severity = "tip"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

type Category string

const (
	CategorySkills     Category = "skills"
	CategoryExperience Category = "experience"
	CategoryEducation  Category = "education"
	CategoryFormat     Category = "format"
	CategoryContent    Category = "content"
)

type Suggestion struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Example  string   `json:"example,omitempty"`
}

type Feedback struct {
	OverallScore int          `json:"overallScore"`
	Grade        string       `json:"grade"`
	Suggestions  []Suggestion `json:"suggestions"`
	Strengths    []string     `json:"strengths"`
	Summary      string       `json:"summary"`
}

const (
	startScore = 50

	minExperienceChars = 100
	minEducationChars  = 30
	minWords           = 150
	maxWords           = 1200
	missingSkillsShown = 5
	lowConfidence      = 0.5
)

var (
	metricsRe     = regexp.MustCompile(`(?i)\d+%|\$[\d,]+|\d+\s*(users|customers|clients|projects|team)`)
	actionVerbsRe = regexp.MustCompile(`(?i)\b(developed|built|designed|implemented|led|managed|created|optimized|improved|launched|deployed|architected|mentored|scaled)\b`)
	degreeRe      = regexp.MustCompile(`(?i)bachelor|master|phd|b\.s\.|m\.s\.|mba|associate`)
	contactRe     = regexp.MustCompile(`(?i)email|@|linkedin|github|phone|\(\d{3}\)`)
)

type builder struct {
	score       int
	suggestions []Suggestion
	strengths   []string
}

func (b *builder) suggest(s Suggestion, penalty int) {
	b.suggestions = append(b.suggestions, s)
	b.score -= penalty
}

func (b *builder) strength(s string, bonus int) {
	b.strengths = append(b.strengths, s)
	b.score += bonus
}

// Generate grades the resume text. topJobSkills are the most requested skills among the
// best matching jobs; up to five the resume lacks are suggested.
func Generate(text string, sections extraction.Sections, found skills.Analysis, exp experience.Analysis, topJobSkills []string) Feedback {
	b := &builder{score: startScore, suggestions: []Suggestion{}, strengths: []string{}}

	b.skills(found, topJobSkills)
	b.experience(sections.Experience)
	b.education(sections.Education)
	b.format(text)

	if exp.Confidence < lowConfidence {
		b.suggest(Suggestion{
			Category: CategoryExperience,
			Severity: SeverityTip,
			Title:    "Experience Level Unclear",
			Message:  "Consider explicitly mentioning years of experience.",
			Example:  `"5+ years of experience in full-stack development"`,
		}, 0)
	}

	score := min(max(b.score, 0), 100)

	sort.SliceStable(b.suggestions, func(i, j int) bool {
		return b.suggestions[i].Severity.rank() < b.suggestions[j].Severity.rank()
	})

	return Feedback{
		OverallScore: score,
		Grade:        Grade(score),
		Suggestions:  b.suggestions,
		Strengths:    b.strengths,
		Summary:      summary(b.suggestions, b.strengths),
	}
}

func (b *builder) skills(found skills.Analysis, topJobSkills []string) {
	switch count := found.TotalCount; {
	case count == 0:
		b.suggest(Suggestion{
			Category: CategorySkills,
			Severity: SeverityCritical,
			Title:    "No Skills Detected",
			Message:  `No technical skills were detected. Add a dedicated "Skills" section.`,
			Example:  "Skills: Python, React, AWS, Docker, PostgreSQL",
		}, 20)
	case count < 5:
		b.suggest(Suggestion{
			Category: CategorySkills,
			Severity: SeverityWarning,
			Title:    "Limited Skills Listed",
			Message:  fmt.Sprintf("Only %d skills detected. Consider adding more relevant technologies.", count),
		}, 10)
	case count >= 10:
		b.strength(fmt.Sprintf("Strong technical profile with %d skills identified", count), 10)
	}

	if len(topJobSkills) == 0 {
		return
	}

	have := make(map[string]struct{}, len(found.Found))
	for _, s := range found.Found {
		have[strings.ToLower(s)] = struct{}{}
	}

	var missing []string
	for _, s := range topJobSkills {
		if _, ok := have[strings.ToLower(s)]; ok {
			continue
		}
		missing = append(missing, s)
		if len(missing) == missingSkillsShown {
			break
		}
	}

	if len(missing) > 0 {
		b.suggest(Suggestion{
			Category: CategorySkills,
			Severity: SeverityWarning,
			Title:    "Missing In-Demand Skills",
			Message:  "Consider adding these high-demand skills if you have them:",
			Example:  strings.Join(missing, ", "),
		}, 0)
	}
}

func (b *builder) experience(section string) {
	if utf8.RuneCountInString(section) < minExperienceChars {
		b.suggest(Suggestion{
			Category: CategoryExperience,
			Severity: SeverityCritical,
			Title:    "Experience Section Missing or Sparse",
			Message:  "The experience section is too short or missing. Add detailed work history.",
			Example:  "Include company, title, dates, and 3-5 bullet points per role",
		}, 15)
		return
	}

	if metricsRe.MatchString(section) {
		b.strength("Experience includes quantified achievements", 10)
	} else {
		b.suggest(Suggestion{
			Category: CategoryExperience,
			Severity: SeverityWarning,
			Title:    "Add Quantified Achievements",
			Message:  "Use numbers to demonstrate impact in your experience.",
			Example:  `"Improved API performance by 40%" or "Led team of 5 engineers"`,
		}, 5)
	}

	if actionVerbsRe.MatchString(section) {
		b.strength("Uses strong action verbs", 5)
	} else {
		b.suggest(Suggestion{
			Category: CategoryContent,
			Severity: SeverityTip,
			Title:    "Use Action Verbs",
			Message:  "Start bullet points with strong action verbs.",
			Example:  "Developed, Implemented, Led, Optimized, Architected",
		}, 0)
	}
}

func (b *builder) education(section string) {
	if utf8.RuneCountInString(section) < minEducationChars {
		b.suggest(Suggestion{
			Category: CategoryEducation,
			Severity: SeverityTip,
			Title:    "Education Section Light",
			Message:  "Consider adding education details if relevant (degree, institution, graduation year).",
		}, 0)
		return
	}

	if degreeRe.MatchString(section) {
		b.strength("Education credentials clearly listed", 5)
	}
}

func (b *builder) format(text string) {
	switch words := len(strings.Fields(text)); {
	case words < minWords:
		b.suggest(Suggestion{
			Category: CategoryFormat,
			Severity: SeverityCritical,
			Title:    "Resume Too Short",
			Message:  fmt.Sprintf("Only ~%d words detected. Resumes should be 300-800 words for optimal parsing.", words),
		}, 15)
	case words > maxWords:
		b.suggest(Suggestion{
			Category: CategoryFormat,
			Severity: SeverityWarning,
			Title:    "Resume May Be Too Long",
			Message:  "Consider condensing to 1-2 pages. Focus on the most relevant experience.",
		}, 5)
	default:
		b.strength("Resume length is appropriate", 5)
	}

	if !contactRe.MatchString(text) {
		b.suggest(Suggestion{
			Category: CategoryFormat,
			Severity: SeverityWarning,
			Title:    "Contact Information May Be Missing",
			Message:  "Ensure your email, LinkedIn, and phone are clearly visible.",
		}, 0)
	}
}

// Grade maps a 0-100 score to a letter.
func Grade(score int) string {
	switch {
	case score >= 85:
		return "A"
	case score >= 70:
		return "B"
	case score >= 55:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}

func summary(suggestions []Suggestion, strengths []string) string {
	critical := 0
	for _, s := range suggestions {
		if s.Severity == SeverityCritical {
			critical++
		}
	}

	switch {
	case critical > 0:
		plural := ""
		if critical > 1 {
			plural = "s"
		}
		return fmt.Sprintf("Your resume has %d critical issue%s that may significantly impact your job search. Address these first.", critical, plural)
	case len(suggestions) > 3:
		return "Your resume is solid but has room for improvement. Review the suggestions below."
	case len(strengths) >= 3:
		return "Excellent resume! Just a few minor optimizations to consider."
	default:
		return "Good foundation. Focus on adding more quantified achievements and skills."
	}
}
