package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsBoolWord(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"and", "a > 1 and b < 2", true},
		{"or", "a > 1 or b < 2", true},
		{"neither", "a > 1", false},
		{"word boundary not a substring hit", "band = 1", false},
		{"uppercase not matched", "a > 1 AND b < 2", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsBoolWord(tt.in))
		})
	}
}

func TestParenthesizeBoolChains(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "wraps a bool chain",
			in:   `filter step_0 { a > 1 and b < 2 }`,
			want: `filter step_0 { (a > 1 and b < 2) }`,
		},
		{
			name: "leaves a plain predicate bare",
			in:   `filter step_0 { a > 1 }`,
			want: `filter step_0 { a > 1 }`,
		},
		{
			name: "leaves non-matching lines untouched",
			in:   "identity step_0 in -> out",
			want: "identity step_0 in -> out",
		},
		{
			name: "handles multiple lines independently",
			in:   "filter s0 { a > 1 and b < 2 }\nidentity s1 in -> out\nassert s2 { x or y }",
			want: "filter s0 { (a > 1 and b < 2) }\nidentity s1 in -> out\nassert s2 { (x or y) }",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parenthesizeBoolChains(tt.in))
		})
	}
}
