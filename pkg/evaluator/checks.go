package evaluator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MetaMaxSeqLen is the metadata key carrying the longest sequential run
// found by the SequentialPatterns check.
const MetaMaxSeqLen = "max_seq_len"

// asciiPunctuation is the full set of printable ASCII symbols.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// CheckResult is the outcome of one check against one password.
type CheckResult struct {
	Name     Kind           `json:"name"`
	Passed   bool           `json:"passed"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IntMetadata returns an integer metadata value, or 0 when the key is
// absent or not an integer.
func (r CheckResult) IntMetadata(key string) int {
	switch v := r.Metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// dottedCapitalI lowers to "i" followed by U+0307 under full Unicode case
// mapping. strings.ToLower maps it to a bare ASCII "i".
var dottedCapitalI = strings.NewReplacer("\u0130", "i\u0307")

// lower folds password for list and sequence matching.
func lower(password string) string {
	return strings.ToLower(dottedCapitalI.Replace(password))
}

// Checks runs every check against password in evaluation order.
func (e *Evaluator) Checks(password string) []CheckResult {
	lowered := lower(password)
	length := utf8.RuneCountInString(password)

	results := make([]CheckResult, 0, numKinds)

	common := isCommonPassword(lowered)
	results = append(results, result(CommonPassword, !common,
		"Not a common password", "Password is too common"))

	word, found := firstCommonWord(lowered)
	results = append(results, result(ContainsCommonWord, !found,
		"No common words found", fmt.Sprintf("Contains common word '%s'", word)))

	results = append(results, result(Length, length >= e.cfg.MinLength,
		"Length requirement met", fmt.Sprintf("Minimum %d characters", e.cfg.MinLength)))

	classes := classify(password)
	results = append(results,
		result(Uppercase, classes.upper, "Contains uppercase", "Missing uppercase"),
		result(Lowercase, classes.lower, "Contains lowercase", "Missing lowercase"),
		result(Digits, classes.digit, "Contains digits", "Missing digits"),
		result(SpecialCharacters, classes.special, "Contains special chars", "Missing special chars"),
	)

	repeats := length > 3 && longestRun(password) > e.cfg.MaxRepeat
	results = append(results, result(NoRepetition, !repeats,
		"No excessive repetition", "Too many repeated characters"))

	maxSeq := longestSequence(lowered, e.cfg.MinSequenceLength)
	seq := result(SequentialPatterns, maxSeq < e.cfg.MinSequenceLength,
		"No sequential patterns", fmt.Sprintf("Contains sequence of %d characters", maxSeq))
	seq.Metadata = map[string]any{MetaMaxSeqLen: maxSeq}
	results = append(results, seq)

	return results
}

func result(kind Kind, passed bool, passMsg, failMsg string) CheckResult {
	msg := passMsg
	if !passed {
		msg = failMsg
	}
	return CheckResult{Name: kind, Passed: passed, Message: msg}
}

// charClasses records which ASCII character classes occur in a password.
type charClasses struct {
	upper, lower, digit, special bool
}

func (c charClasses) count() int {
	n := 0
	for _, present := range []bool{c.lower, c.upper, c.digit, c.special} {
		if present {
			n++
		}
	}
	return n
}

// classify scans bytes, so multi-byte characters never land in a class.
func classify(password string) charClasses {
	var c charClasses
	for i := 0; i < len(password); i++ {
		b := password[i]
		switch {
		case b >= 'A' && b <= 'Z':
			c.upper = true
		case b >= 'a' && b <= 'z':
			c.lower = true
		case b >= '0' && b <= '9':
			c.digit = true
		case strings.IndexByte(asciiPunctuation, b) >= 0:
			c.special = true
		}
	}
	return c
}

// longestRun returns the length of the longest run of one repeated character.
func longestRun(s string) int {
	best, run := 0, 0
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		prev = r
		if run > best {
			best = run
		}
	}
	return best
}

// longestSequence returns the length of the longest substring of lowered,
// at least minLen long, that occurs verbatim in any reference sequence or
// its reverse. It returns 0 when no such substring exists.
//
// Every prefix of a matching substring also matches, so for each start
// position the window only grows while it still matches.
func longestSequence(lowered string, minLen int) int {
	best := 0
	for i := 0; i+minLen <= len(lowered); i++ {
		for j := i + minLen; j <= len(lowered); j++ {
			if !inAnySequence(lowered[i:j]) {
				break
			}
			if j-i > best {
				best = j - i
			}
		}
	}
	return best
}

func inAnySequence(chunk string) bool {
	for _, seq := range orientedSequences {
		if strings.Contains(seq, chunk) {
			return true
		}
	}
	return false
}
