package strength

import (
	"testing"
)

func TestFromScore(t *testing.T) {
	tests := []struct {
		score    int
		expected Level
	}{
		{0, VeryWeak},
		{29, VeryWeak},
		{30, Weak},
		{49, Weak},
		{50, Moderate},
		{69, Moderate},
		{70, Strong},
		{89, Strong},
		{90, VeryStrong},
		{100, VeryStrong},
	}

	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			if got := FromScore(tt.score); got != tt.expected {
				t.Errorf("FromScore(%d) = %v, want %v", tt.score, got, tt.expected)
			}
		})
	}
}

func TestLevel_Color(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{VeryWeak, "#ff0055"},
		{Weak, "#ffb700"},
		{Moderate, "#ff8800"},
		{Strong, "#00ff9d"},
		{VeryStrong, "#00d4ff"},
		{Level("Unknown"), ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := tt.level.Color(); got != tt.expected {
				t.Errorf("Level.Color() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLevel_Rank(t *testing.T) {
	levels := []Level{VeryWeak, Weak, Moderate, Strong, VeryStrong}
	for i := 1; i < len(levels); i++ {
		if levels[i].Rank() <= levels[i-1].Rank() {
			t.Errorf("%v.Rank() = %d, want above %v.Rank() = %d", levels[i], levels[i].Rank(), levels[i-1], levels[i-1].Rank())
		}
	}

	if Level("invalid").Rank() != 0 {
		t.Error("invalid level should rank 0")
	}
	if !Strong.IsAtLeast(Moderate) {
		t.Error("Strong should be at least Moderate")
	}
	if Weak.IsAtLeast(Moderate) {
		t.Error("Weak should not be at least Moderate")
	}
	if !Weak.IsAtLeast(Weak) {
		t.Error("a level should be at least itself")
	}
}

func TestLevel_MetricLabel(t *testing.T) {
	if got := VeryStrong.MetricLabel(); got != "very_strong" {
		t.Errorf("MetricLabel() = %q, want %q", got, "very_strong")
	}
	if got := Weak.MetricLabel(); got != "weak" {
		t.Errorf("MetricLabel() = %q, want %q", got, "weak")
	}
}
