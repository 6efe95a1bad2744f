package receiving

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1.0", 1},
		{"2,00", 2},
		{" 7 ", 7},
		{"abc9", 9},
		{"10", 10},
		{"3.9", 3},
		{"-2", -2},
		{"1 000", 1000},
		{"", 0},
		{"n/a", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQuantity(tt.in))
		})
	}
}
