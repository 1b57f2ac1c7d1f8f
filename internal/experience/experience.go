// Package experience infers a candidate's seniority from resume text and rates how
// well it fits the level a job asks for.
package experience

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

type Level string

const (
	LevelIntern    Level = "intern"
	LevelEntry     Level = "entry"
	LevelMid       Level = "mid"
	LevelSenior    Level = "senior"
	LevelLead      Level = "lead"
	LevelPrincipal Level = "principal"
)

// Levels is the ordinal scale, most junior first.
var Levels = []Level{LevelIntern, LevelEntry, LevelMid, LevelSenior, LevelLead, LevelPrincipal}

// Index returns the position of l on the ordinal scale or -1 for an unknown level.
func (l Level) Index() int {
	for i, level := range Levels {
		if level == l {
			return i
		}
	}
	return -1
}

func (l Level) Valid() bool { return l.Index() >= 0 }

type Analysis struct {
	Level             Level    `json:"level"`
	YearsOfExperience *int     `json:"yearsOfExperience"`
	Confidence        float64  `json:"confidence"`
	Signals           []string `json:"signals"`
}

const (
	maxPlausibleYears = 50

	defaultConfidence = 0.3
	keywordConfidence = 0.6
	yearsConfidence   = 0.8
	// Keywords only override a level held with less confidence than this.
	overrideCeiling = 0.7

	minLeadershipSignals = 2
)

type keyword struct {
	source  string
	pattern *regexp.Regexp
}

func keywords(sources ...string) []keyword {
	list := make([]keyword, 0, len(sources))
	for _, src := range sources {
		list = append(list, keyword{source: src, pattern: regexp.MustCompile(`(?i)` + src)})
	}
	return list
}

var (
	yearsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d{1,2})\+?\s*years?\s*(of)?\s*(professional|work|industry)?\s*experience`),
		regexp.MustCompile(`(?i)experience:?\s*(\d{1,2})\+?\s*years?`),
		regexp.MustCompile(`(?i)(\d{1,2})\+?\s*years?\s*in\s*(the\s*)?(industry|field|tech)`),
	}

	levelKeywords = map[Level][]keyword{
		LevelIntern:    keywords(`intern(ship)?`, `student`, `trainee`),
		LevelEntry:     keywords(`junior`, `entry[\s-]?level`, `graduate`, `associate`),
		LevelMid:       keywords(`mid[\s-]?level`, `\b2-?4\s*years?\b`, `\b3-?5\s*years?\b`),
		LevelSenior:    keywords(`senior`, `\b5\+?\s*years?\b`, `\b6-?10\s*years?\b`, `experienced`),
		LevelLead:      keywords(`lead`, `team\s*lead`, `tech\s*lead`, `manager`, `\b8\+?\s*years?\b`),
		LevelPrincipal: keywords(`principal`, `staff`, `architect`, `director`, `\b10\+?\s*years?\b`),
	}

	leadershipPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)led\s+a?\s*team`),
		regexp.MustCompile(`(?i)managed\s+\d+\s*(developers|engineers|people)`),
		regexp.MustCompile(`(?i)mentored`),
		regexp.MustCompile(`(?i)oversaw`),
		regexp.MustCompile(`(?i)directed`),
	}
)

// extractYears returns the largest self-declared years of experience, ignoring
// values above 50. ok is false when nothing was found.
func extractYears(text string) (years int, ok bool) {
	for _, pattern := range yearsPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(match[1])
			if err != nil || n > maxPlausibleYears {
				continue
			}
			if n > years {
				years = n
			}
		}
	}
	return years, years > 0
}

func levelForYears(years int) Level {
	switch {
	case years >= 12:
		return LevelPrincipal
	case years >= 8:
		return LevelLead
	case years >= 5:
		return LevelSenior
	case years >= 2:
		return LevelMid
	default:
		return LevelEntry
	}
}

// Detect classifies the resume. Explicit years of experience win; keyword hits may
// raise a weakly supported level and repeated leadership phrases lift it to senior.
func Detect(text string) Analysis {
	analysis := Analysis{
		Level:      LevelEntry,
		Confidence: defaultConfidence,
		Signals:    []string{},
	}

	if years, ok := extractYears(text); ok {
		analysis.YearsOfExperience = &years
		analysis.Signals = append(analysis.Signals, fmt.Sprintf("Found %d+ years of experience mentioned", years))
		analysis.Confidence = yearsConfidence
		analysis.Level = levelForYears(years)
	}

	for _, level := range Levels {
		for _, kw := range levelKeywords[level] {
			if !kw.pattern.MatchString(text) {
				continue
			}

			analysis.Signals = append(analysis.Signals, fmt.Sprintf("Keyword match: \"%s\"", kw.source))
			if level.Index() > analysis.Level.Index() && analysis.Confidence < overrideCeiling {
				analysis.Level = level
				analysis.Confidence = keywordConfidence
			}
			break
		}
	}

	leadership := 0
	for _, pattern := range leadershipPatterns {
		if pattern.MatchString(text) {
			leadership++
		}
	}
	if leadership >= minLeadershipSignals {
		analysis.Signals = append(analysis.Signals, "Strong leadership signals detected")
		if analysis.Level.Index() < LevelSenior.Index() {
			analysis.Level = LevelSenior
			analysis.Confidence = math.Max(analysis.Confidence, keywordConfidence)
		}
	}

	return analysis
}

// Level compatibility scores by ordinal distance.
const (
	NeutralMatch = 0.8

	exactMatch  = 1.0
	oneOffMatch = 0.85
	twoOffMatch = 0.6
	farOffMatch = 0.3
)

// The first matching rule wins.
var jobLevelRules = []struct {
	pattern *regexp.Regexp
	level   Level
}{
	{regexp.MustCompile(`(?i)intern|trainee`), LevelIntern},
	{regexp.MustCompile(`(?i)junior|entry|associate`), LevelEntry},
	{regexp.MustCompile(`(?i)mid|intermediate`), LevelMid},
	{regexp.MustCompile(`(?i)senior`), LevelSenior},
	{regexp.MustCompile(`(?i)lead|manager`), LevelLead},
	{regexp.MustCompile(`(?i)principal|staff|director`), LevelPrincipal},
}

// ParseJobLevel maps a free-form job level onto the ordinal scale.
func ParseJobLevel(s string) (Level, bool) {
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	for _, rule := range jobLevelRules {
		if rule.pattern.MatchString(s) {
			return rule.level, true
		}
	}
	return "", false
}

// Match rates the candidate level against the job's stated level. An absent or
// unrecognized level on either side is neutral.
func Match(candidate Level, jobLevel string) float64 {
	job, ok := ParseJobLevel(jobLevel)
	if !ok || !candidate.Valid() {
		return NeutralMatch
	}

	distance := candidate.Index() - job.Index()
	if distance < 0 {
		distance = -distance
	}

	switch distance {
	case 0:
		return exactMatch
	case 1:
		return oneOffMatch
	case 2:
		return twoOffMatch
	default:
		return farOffMatch
	}
}
