package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spigell/resume-matcher/internal/vectormath"
)

var (
	jobVec        = []float64{1, 0.5, 0.25, 0}
	experienceVec = []float64{1, 0, 0, 0}
	skillsVec     = []float64{0, 1, 0, 0}
	educationVec  = []float64{0, 0, 1, 1}
)

func TestComputeWeightedAllSections(t *testing.T) {
	t.Parallel()

	got := ComputeWeighted(SectionEmbeddings{
		Experience: experienceVec,
		Skills:     skillsVec,
		Education:  educationVec,
	}, jobVec, 0.42)

	exp := vectormath.CosineSimilarity(experienceVec, jobVec)
	skl := vectormath.CosineSimilarity(skillsVec, jobVec)
	edu := vectormath.CosineSimilarity(educationVec, jobVec)

	assert.Equal(t, StrategyWeighted, got.Strategy)
	assert.InDelta(t, 0.5*exp+0.3*skl+0.2*edu, got.FinalScore, 1e-12)
	assert.InDelta(t, exp, got.SectionScores.Experience, 1e-12)
	assert.InDelta(t, skl, got.SectionScores.Skills, 1e-12)
	assert.InDelta(t, edu, got.SectionScores.Education, 1e-12)
	assert.Equal(t, []Section{SectionExperience, SectionSkills, SectionEducation}, got.AvailableSections)
}

func TestComputeWeightedFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sections SectionEmbeddings
		job      []float64
	}{
		{name: "no sections", sections: SectionEmbeddings{}, job: jobVec},
		{name: "empty sections", sections: SectionEmbeddings{Experience: []float64{}}, job: jobVec},
		{name: "missing job embedding", sections: SectionEmbeddings{Experience: experienceVec}, job: nil},
		{name: "zero section vector", sections: SectionEmbeddings{Skills: []float64{0, 0, 0, 0}}, job: jobVec},
		{name: "wrong length section", sections: SectionEmbeddings{Skills: []float64{1, 2}}, job: jobVec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ComputeWeighted(tt.sections, tt.job, 0.37)
			assert.Equal(t, StrategyFallback, got.Strategy)
			assert.Equal(t, 0.37, got.FinalScore)
			assert.Equal(t, SectionScores{}, got.SectionScores)
			assert.Empty(t, got.AvailableSections)
		})
	}
}

func TestComputeWeightedEducationOnlyBlends(t *testing.T) {
	t.Parallel()

	got := ComputeWeighted(SectionEmbeddings{Education: educationVec}, jobVec, 0.6)
	edu := vectormath.CosineSimilarity(educationVec, jobVec)

	assert.Equal(t, StrategyBlended, got.Strategy)
	assert.InDelta(t, 0.7*0.6+0.3*edu, got.FinalScore, 1e-12)
	assert.Equal(t, []Section{SectionEducation}, got.AvailableSections)
}

func TestComputeWeightedRenormalizes(t *testing.T) {
	t.Parallel()

	// Skills alone carries weight 0.3 which is not a weak signal.
	got := ComputeWeighted(SectionEmbeddings{Skills: skillsVec}, jobVec, 0.1)
	skl := vectormath.CosineSimilarity(skillsVec, jobVec)
	assert.Equal(t, StrategyWeighted, got.Strategy)
	assert.InDelta(t, skl, got.FinalScore, 1e-12)

	got = ComputeWeighted(SectionEmbeddings{Experience: experienceVec, Education: educationVec}, jobVec, 0.1)
	exp := vectormath.CosineSimilarity(experienceVec, jobVec)
	edu := vectormath.CosineSimilarity(educationVec, jobVec)
	assert.Equal(t, StrategyWeighted, got.Strategy)
	assert.InDelta(t, (0.5*exp+0.2*edu)/0.7, got.FinalScore, 1e-12)
	assert.Equal(t, 0.0, got.SectionScores.Skills)
}

func TestEnsemble(t *testing.T) {
	t.Parallel()

	w := WeightedResult{FinalScore: 0.8}
	assert.InDelta(t, 0.55*0.8+0.30*0.5+0.15, Ensemble(w, 50, true), 1e-12)
	assert.InDelta(t, 0.55*0.8+0.30*0.5+0.075, Ensemble(w, 50, false), 1e-12)
}

func TestEnsembleIsMonotonic(t *testing.T) {
	t.Parallel()

	base := Ensemble(WeightedResult{FinalScore: 0.5}, 40, false)

	assert.Greater(t, Ensemble(WeightedResult{FinalScore: 0.6}, 40, false), base)
	assert.Greater(t, Ensemble(WeightedResult{FinalScore: 0.5}, 41, false), base)
	assert.Greater(t, Ensemble(WeightedResult{FinalScore: 0.5}, 40, true), base)
}

func TestLevelMatches(t *testing.T) {
	t.Parallel()

	assert.True(t, LevelMatches(1))
	assert.True(t, LevelMatches(0.85))
	assert.True(t, LevelMatches(0.8))
	assert.False(t, LevelMatches(0.6))
	assert.False(t, LevelMatches(0.3))
}
