package service

import "strings"

// stripCodeFence unwraps a model response from a fenced code block, removing
// the first/last fence and an optional leading language tag. Responses
// without fences are returned trimmed.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "```") {
		return s
	}
	parts := strings.Split(s, "```")
	if len(parts) < 2 {
		return s
	}
	body := strings.TrimSpace(parts[1])
	if rest, ok := strings.CutPrefix(body, "json"); ok {
		body = strings.TrimSpace(rest)
	}
	return body
}

// truncateClause caps clause text sent to the model in prompts
const maxPromptClauseChars = 2000

func truncateClause(text string) string {
	return truncateString(text, maxPromptClauseChars)
}
