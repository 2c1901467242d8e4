package evaluator

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed wordlists.yaml
var wordlistData []byte

// Wordlists holds the static reference data used by the checks.
type Wordlists struct {
	CommonPasswords []string `yaml:"common_passwords"`
	Sequences       []string `yaml:"sequences"`
}

// minCommonWordLength is the shortest common-password entry that counts
// when searching for embedded words.
const minCommonWordLength = 5

// builtin is parsed once at startup and never mutated afterwards.
var builtin = mustParseWordlists(wordlistData)

// commonSet indexes builtin.CommonPasswords for exact lookups.
var commonSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(builtin.CommonPasswords))
	for _, p := range builtin.CommonPasswords {
		set[p] = struct{}{}
	}
	return set
}()

// orientedSequences holds every sequence followed by its reverse.
var orientedSequences = func() []string {
	out := make([]string, 0, 2*len(builtin.Sequences))
	for _, seq := range builtin.Sequences {
		out = append(out, seq, reverse(seq))
	}
	return out
}()

// ParseWordlists decodes a YAML word list document.
func ParseWordlists(data []byte) (*Wordlists, error) {
	var w Wordlists
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse wordlists: %w", err)
	}
	if len(w.CommonPasswords) == 0 {
		return nil, fmt.Errorf("parse wordlists: no common passwords")
	}
	if len(w.Sequences) == 0 {
		return nil, fmt.Errorf("parse wordlists: no sequences")
	}
	for i, p := range w.CommonPasswords {
		w.CommonPasswords[i] = strings.ToLower(p)
	}
	for i, s := range w.Sequences {
		w.Sequences[i] = strings.ToLower(s)
	}
	return &w, nil
}

func mustParseWordlists(data []byte) *Wordlists {
	w, err := ParseWordlists(data)
	if err != nil {
		panic(err)
	}
	return w
}

// CommonPasswords returns a copy of the built-in common password list in
// declaration order.
func CommonPasswords() []string {
	return append([]string(nil), builtin.CommonPasswords...)
}

// Sequences returns a copy of the built-in sequence dictionary.
func Sequences() []string {
	return append([]string(nil), builtin.Sequences...)
}

func isCommonPassword(lowered string) bool {
	_, ok := commonSet[lowered]
	return ok
}

// firstCommonWord returns the first eligible common-password entry that
// occurs inside lowered.
func firstCommonWord(lowered string) (string, bool) {
	for _, word := range builtin.CommonPasswords {
		if len(word) >= minCommonWordLength && strings.Contains(lowered, word) {
			return word, true
		}
	}
	return "", false
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
