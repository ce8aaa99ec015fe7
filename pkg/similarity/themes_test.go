package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractThemes(t *testing.T) {
	tests := []struct {
		name     string
		texts    []string
		expected []string
	}{
		{
			name:     "no texts",
			texts:    nil,
			expected: []string{},
		},
		{
			name:     "nothing repeated",
			texts:    []string{"morning run in the park"},
			expected: []string{},
		},
		{
			name: "shared words ranked by frequency",
			texts: []string{
				"Workout plan: running and stretching",
				"Running shoes for the workout",
				"Stretching after running",
			},
			expected: []string{"running", "workout", "stretching"},
		},
		{
			name: "ties keep first-seen order",
			texts: []string{
				"budget travel budget",
				"travel plans",
			},
			expected: []string{"budget", "travel"},
		},
		{
			name:     "short words and stop words ignored",
			texts:    []string{"the cat and the dog", "the cat and the dog were there"},
			expected: []string{},
		},
		{
			name: "capped at five",
			texts: []string{
				"alpha bravo charlie delta echoes foxtrot",
				"alpha bravo charlie delta echoes foxtrot",
			},
			expected: []string{"alpha", "bravo", "charlie", "delta", "echoes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractThemes(tt.texts))
		})
	}
}
