package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLabels(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil becomes empty", nil, []string{}},
		{"trims and lowers", []string{"  Identity ", "USAGE"}, []string{"identity", "usage"}},
		{"drops blanks", []string{"", "   ", "health"}, []string{"health"}},
		{"case-insensitive duplicates keep first order", []string{"usage", "Identity", "USAGE", "identity"}, []string{"usage", "identity"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLabels(tt.input))
		})
	}
}
