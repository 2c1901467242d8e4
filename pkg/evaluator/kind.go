package evaluator

import "fmt"

// Kind identifies one of the fixed password checks.
// The declaration order is the order in which checks are evaluated.
type Kind uint8

const (
	CommonPassword Kind = iota
	ContainsCommonWord
	Length
	Uppercase
	Lowercase
	Digits
	SpecialCharacters
	NoRepetition
	SequentialPatterns

	numKinds = int(SequentialPatterns) + 1
)

var kindNames = [numKinds]string{
	CommonPassword:     "Common Password",
	ContainsCommonWord: "Contains Common Word",
	Length:             "Length",
	Uppercase:          "Uppercase",
	Lowercase:          "Lowercase",
	Digits:             "Digits",
	SpecialCharacters:  "Special Characters",
	NoRepetition:       "No Repetition",
	SequentialPatterns: "Sequential Patterns",
}

// AllKinds returns every check kind in evaluation order.
func AllKinds() []Kind {
	kinds := make([]Kind, numKinds)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// String returns the display name used on the wire.
func (k Kind) String() string {
	if int(k) < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Visible reports whether results of this kind are shown to callers.
// ContainsCommonWord only feeds the score.
func (k Kind) Visible() bool {
	return k != ContainsCommonWord
}

// MarshalText encodes the kind as its display name.
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= numKinds {
		return nil, fmt.Errorf("unknown check kind %d", uint8(k))
	}
	return []byte(kindNames[k]), nil
}
