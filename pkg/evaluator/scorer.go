package evaluator

import "unicode/utf8"

const (
	maxScore = 100
	minScore = 0

	maxLengthPoints = 40
	pointsPerChar   = 4
	pointsPerClass  = 15
)

// Penalty constants, keyed on the check whose failure triggers them.
const (
	penCommonWord      = 30
	penRepetition      = 10
	penPerSequenceChar = 5
)

// penalties maps a failed check to the points it costs. Kinds without an
// entry cost nothing: their reward is already captured by the length and
// character-class points. CommonPassword is handled separately as a veto.
var penalties = map[Kind]func(CheckResult) int{
	ContainsCommonWord: func(CheckResult) int { return penCommonWord },
	NoRepetition:       func(CheckResult) int { return penRepetition },
	SequentialPatterns: func(r CheckResult) int {
		return r.IntMetadata(MetaMaxSeqLen) * penPerSequenceChar
	},
}

// Score folds the raw password features and the check results into a
// score between 0 and 100.
//
// Length and character-class points are derived from the password itself,
// not from the checks. Failed checks then subtract penalties; a failed
// CommonPassword check zeroes the score outright.
func (e *Evaluator) Score(password string, checks []CheckResult) int {
	score := min(maxLengthPoints, utf8.RuneCountInString(password)*pointsPerChar)
	score += classify(password).count() * pointsPerClass

	for _, c := range checks {
		if c.Passed {
			continue
		}
		if c.Name == CommonPassword {
			return minScore
		}
		if pen, ok := penalties[c.Name]; ok {
			score -= pen(c)
		}
	}

	return clamp(score)
}

func clamp(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
