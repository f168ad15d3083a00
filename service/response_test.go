package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced with language tag", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\": 1}\n```\n ", `{"a": 1}`},
		{"prose before fence", "Here you go:\n```json\n{\"a\": 1}\n```", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.in))
		})
	}
}

func TestTruncateClause(t *testing.T) {
	short := "short clause"
	assert.Equal(t, short, truncateClause(short))

	long := strings.Repeat("a", maxPromptClauseChars+100)
	assert.Len(t, truncateClause(long), maxPromptClauseChars)

	// Multi-byte text must not be split mid-rune
	wide := strings.Repeat("é", maxPromptClauseChars+100)
	truncated := truncateClause(wide)
	assert.Equal(t, strings.Repeat("é", maxPromptClauseChars), truncated)
}
