package extraction

import (
	"regexp"
	"sort"
	"strings"
)

// Minimum section lengths, in characters, for a section to be worth embedding.
const (
	MinExperienceLength = 50
	MinSkillsLength     = 20
	MinEducationLength  = 20
)

type Sections struct {
	Experience string `json:"experience,omitempty"`
	Skills     string `json:"skills,omitempty"`
	Education  string `json:"education,omitempty"`
}

// Usable blanks the sections that are too short to carry a signal.
func (s Sections) Usable() Sections {
	usable := Sections{}
	if len(s.Experience) > MinExperienceLength {
		usable.Experience = s.Experience
	}
	if len(s.Skills) > MinSkillsLength {
		usable.Skills = s.Skills
	}
	if len(s.Education) > MinEducationLength {
		usable.Education = s.Education
	}
	return usable
}

type heading struct {
	kind  string
	words string
}

var headings = []heading{
	{kind: "experience", words: `work experience|professional experience|employment history|work history|employment|experience`},
	{kind: "skills", words: `technical skills|core competencies|skills|technologies|tech stack`},
	{kind: "education", words: `education|academic background|qualifications|certifications`},
	// Headings that end the previous section without starting a tracked one.
	{kind: "", words: `summary|profile|objective|projects|awards|interests|languages|references|contact`},
}

type compiledHeading struct {
	kind string
	// A heading on a line of its own.
	line *regexp.Regexp
	// A heading anywhere in text that lost its line breaks.
	inline *regexp.Regexp
}

var compiledHeadings = func() []compiledHeading {
	list := make([]compiledHeading, 0, len(headings))
	for _, h := range headings {
		list = append(list, compiledHeading{
			kind:   h.kind,
			line:   regexp.MustCompile(`(?im)^[ \t]*(?:` + h.words + `)[ \t]*:?[ \t]*$`),
			inline: regexp.MustCompile(`(?i)\b(?:` + h.words + `)\b\s*:`),
		})
	}
	return list
}()

type marker struct {
	kind       string
	start, end int
}

func findMarkers(text string, pick func(compiledHeading) *regexp.Regexp) []marker {
	var markers []marker
	for _, h := range compiledHeadings {
		for _, loc := range pick(h).FindAllStringIndex(text, -1) {
			markers = append(markers, marker{kind: h.kind, start: loc[0], end: loc[1]})
		}
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].start < markers[j].start })
	return markers
}

// mergeMarkers adds the inline markers that do not overlap a line marker. Both lists
// must be sorted by start.
func mergeMarkers(line, inline []marker) []marker {
	merged := append([]marker(nil), line...)
	for _, in := range inline {
		overlaps := false
		for _, l := range line {
			if in.start < l.end && l.start < in.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			merged = append(merged, in)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].start < merged[j].start })
	return merged
}

// ExtractSections splits a resume by its headings. Headings on their own line and
// "Heading:" markers inside lines are both honoured, so a resume may mix the two.
// When a heading repeats, the bodies are joined.
func ExtractSections(text string) Sections {
	markers := mergeMarkers(
		findMarkers(text, func(h compiledHeading) *regexp.Regexp { return h.line }),
		findMarkers(text, func(h compiledHeading) *regexp.Regexp { return h.inline }),
	)

	bodies := map[string][]string{}
	for i, m := range markers {
		if m.kind == "" {
			continue
		}
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1].start
		}
		if end < m.end {
			continue
		}
		body := strings.TrimSpace(text[m.end:end])
		if body != "" {
			bodies[m.kind] = append(bodies[m.kind], body)
		}
	}

	return Sections{
		Experience: strings.Join(bodies["experience"], "\n"),
		Skills:     strings.Join(bodies["skills"], "\n"),
		Education:  strings.Join(bodies["education"], "\n"),
	}
}

// Chunk splits text into windows of size words that overlap by overlap words. Text that
// fits in one window is returned as is.
func Chunk(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 || len(words) <= size {
		return []string{strings.Join(words, " ")}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := min(start+size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
