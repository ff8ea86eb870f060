package engine

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "abc", n: 5, want: "abc"},
		{name: "exact", in: "abcde", n: 5, want: "abcde"},
		{name: "ascii cut", in: "abcdef", n: 4, want: "abcd"},
		{name: "cut inside rune", in: "ab密码", n: 4, want: "ab"},
		{name: "cut after rune", in: "ab密码", n: 5, want: "ab密"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, excerpt(tt.in, tt.n))
		})
	}
}

func TestExcerptKeepsDegradedReplyValid(t *testing.T) {
	reply := strings.Repeat("密", maxReplyInEvent)
	got := excerpt(reply, maxReplyInEvent)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxReplyInEvent)
	assert.Equal(t, maxReplyInEvent/3*3, len(got))
}
