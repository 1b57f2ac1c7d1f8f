// Package scoring turns section similarities, skill overlap and level alignment
// into the final ranking key of a job.
package scoring

import (
	"github.com/spigell/resume-matcher/internal/vectormath"
)

type Strategy string

const (
	StrategyWeighted Strategy = "weighted"
	StrategyBlended  Strategy = "blended"
	StrategyFallback Strategy = "fallback"
)

type Section string

const (
	SectionExperience Section = "experience"
	SectionSkills     Section = "skills"
	SectionEducation  Section = "education"
)

// Section weights sum to 1.
const (
	ExperienceWeight = 0.5
	SkillsWeight     = 0.3
	EducationWeight  = 0.2

	// Available unnormalized weight below this blends the section score with the global one.
	weakSignalWeight = 0.3
	blendGlobal      = 0.7
	blendSections    = 0.3
)

// SectionEmbeddings holds the optional per-section resume vectors. A nil or empty
// slice marks the section as missing.
type SectionEmbeddings struct {
	Experience []float64
	Skills     []float64
	Education  []float64
}

type SectionScores struct {
	Experience float64 `json:"experience"`
	Skills     float64 `json:"skills"`
	Education  float64 `json:"education"`
}

type WeightedResult struct {
	FinalScore        float64       `json:"finalScore"`
	SectionScores     SectionScores `json:"sectionScores"`
	Strategy          Strategy      `json:"strategy"`
	AvailableSections []Section     `json:"availableSections"`
}

type section struct {
	name      Section
	weight    float64
	embedding []float64
	score     *float64
}

// ComputeWeighted combines the section similarities against jobEmbedding. Missing
// sections are left out and the remaining weights renormalized. With no usable job
// embedding or no sections the global score is returned unchanged.
func ComputeWeighted(sections SectionEmbeddings, jobEmbedding []float64, globalScore float64) WeightedResult {
	result := WeightedResult{
		FinalScore:        globalScore,
		Strategy:          StrategyFallback,
		AvailableSections: []Section{},
	}

	if len(jobEmbedding) == 0 {
		return result
	}

	candidates := []section{
		{name: SectionExperience, weight: ExperienceWeight, embedding: sections.Experience, score: &result.SectionScores.Experience},
		{name: SectionSkills, weight: SkillsWeight, embedding: sections.Skills, score: &result.SectionScores.Skills},
		{name: SectionEducation, weight: EducationWeight, embedding: sections.Education, score: &result.SectionScores.Education},
	}

	var weightSum, weighted float64
	for _, s := range candidates {
		if len(s.embedding) == 0 {
			continue
		}

		similarity := vectormath.CosineSimilarity(s.embedding, jobEmbedding)
		if vectormath.OrZero(similarity) != similarity {
			// Wrong length or zero vector: no signal from this section.
			continue
		}

		*s.score = similarity
		weightSum += s.weight
		weighted += s.weight * similarity
		result.AvailableSections = append(result.AvailableSections, s.name)
	}

	if len(result.AvailableSections) == 0 {
		return result
	}

	weighted /= weightSum

	if weightSum < weakSignalWeight {
		result.Strategy = StrategyBlended
		result.FinalScore = blendGlobal*globalScore + blendSections*weighted
		return result
	}

	result.Strategy = StrategyWeighted
	result.FinalScore = weighted
	return result
}
