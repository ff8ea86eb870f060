package labels

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want []string
	}{
		{name: "empty", cell: "", want: nil},
		{name: "whitespace only", cell: "  \t", want: nil},
		{name: "single", cell: "Scam Awareness", want: []string{"Scam Awareness"}},
		{name: "trims and drops empties", cell: " A ;; B ; ", want: []string{"A", "B"}},
		{name: "keeps duplicates", cell: "A; A", want: []string{"A", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Split(tt.cell)); diff != "" {
				t.Errorf("Split(%q) mismatch (-want +got):\n%s", tt.cell, diff)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain list",
			raw:  "Password Management; Two-Factor Authentication",
			want: "Password Management; Two-Factor Authentication",
		},
		{
			name: "strips NEW prefix",
			raw:  "NEW:Scam Awareness",
			want: "Scam Awareness",
		},
		{
			name: "strips NEW prefix with padding",
			raw:  "Privacy;  NEW: Scam Awareness ",
			want: "Privacy; Scam Awareness",
		},
		{
			name: "prefix is case sensitive",
			raw:  "new:Scam Awareness",
			want: "new:Scam Awareness",
		},
		{
			name: "collapses duplicates in first-seen order",
			raw:  "B; A; NEW:B; A",
			want: "B; A",
		},
		{
			name: "bare prefix dropped",
			raw:  "NEW:; A",
			want: "A",
		},
		{
			name: "empty",
			raw:  " ; ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("   "))
	assert.False(t, IsBlank("A"))
}
