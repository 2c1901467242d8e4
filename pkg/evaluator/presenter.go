package evaluator

import (
	"fmt"

	"github.com/exploopio/passcheck/pkg/strength"
)

const (
	// validScore is the lowest score reported as valid.
	validScore = 50

	excellentScore = 80
	varietyScore   = 70
)

const (
	recExcellent = "Excellent password hygiene!"
	recVariety   = "Add a mix of uppercase, numbers, and special characters."
)

// Report is the caller-facing result of one evaluation.
type Report struct {
	Password        string         `json:"password"`
	Score           int            `json:"risk_score"`
	Level           strength.Level `json:"risk_level"`
	Color           string         `json:"risk_color"`
	Checks          []CheckResult  `json:"checks"`
	Issues          []string       `json:"issues"`
	IssueCount      int            `json:"issue_count"`
	Recommendations []string       `json:"recommendations"`
	Valid           bool           `json:"valid"`
}

// recommendation returns the advice for a failed visible check, if any.
// Character-class checks have none.
func (e *Evaluator) recommendation(kind Kind) (string, bool) {
	switch kind {
	case CommonPassword:
		return "Choose a unique password.", true
	case Length:
		return fmt.Sprintf("Increase length to at least %d.", e.cfg.MinLength), true
	case NoRepetition:
		return "Avoid repeating characters.", true
	case SequentialPatterns:
		return "Avoid sequential characters (e.g. '123', 'abc').", true
	default:
		return "", false
	}
}

// Present builds the Report for a password from its check results and score.
func (e *Evaluator) Present(password string, checks []CheckResult, score int) *Report {
	level := strength.FromScore(score)

	visible := make([]CheckResult, 0, len(checks))
	var failed []CheckResult
	for _, c := range checks {
		if !c.Name.Visible() {
			continue
		}
		visible = append(visible, c)
		if !c.Passed {
			failed = append(failed, c)
		}
	}

	issues := make([]string, 0, len(failed))
	for _, c := range failed {
		issues = append(issues, c.Message)
	}

	recommendations := make([]string, 0, len(failed)+1)
	if len(failed) == 0 && score > excellentScore {
		recommendations = append(recommendations, recExcellent)
	} else {
		for _, c := range failed {
			if rec, ok := e.recommendation(c.Name); ok {
				recommendations = append(recommendations, rec)
			}
		}
		// Only the hidden ContainsCommonWord penalty can land here, and with
		// the default MinLength it bottoms out at exactly 70.
		if len(failed) == 0 && score < varietyScore {
			recommendations = append(recommendations, recVariety)
		}
	}

	return &Report{
		Password:        password,
		Score:           score,
		Level:           level,
		Color:           level.Color(),
		Checks:          visible,
		Issues:          issues,
		IssueCount:      len(failed),
		Recommendations: recommendations,
		Valid:           score >= validScore,
	}
}
