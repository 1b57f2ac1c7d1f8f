package scoring

const (
	SemanticWeight   = 0.55
	SkillMatchWeight = 0.30
	LevelBonusWeight = 0.15

	// LevelMatchThreshold is the level compatibility score that earns the full bonus.
	LevelMatchThreshold = 0.8

	partialLevelBonus = 0.5
)

// LevelMatches reports whether a level compatibility score is acceptable or better.
func LevelMatches(levelScore float64) bool {
	return levelScore >= LevelMatchThreshold
}

// Ensemble blends the section score, the skill match percentage (0-100) and the
// level gate into the final ranking key.
func Ensemble(weighted WeightedResult, skillMatchPercentage float64, levelMatch bool) float64 {
	bonus := partialLevelBonus
	if levelMatch {
		bonus = 1
	}

	return SemanticWeight*weighted.FinalScore +
		SkillMatchWeight*(skillMatchPercentage/100) +
		LevelBonusWeight*bonus
}
