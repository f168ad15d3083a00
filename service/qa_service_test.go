package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"legal-analyzer-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populatedIndex(t *testing.T, docs map[string][]string) *VectorIndexManager {
	t.Helper()
	index := newTestIndex(t, newStubEmbedder(8))
	for docID, ids := range docs {
		require.NoError(t, index.Add(context.Background(), docID, testClauses(ids...)))
	}
	return index
}

func TestAnswer_EmptyIndex(t *testing.T) {
	index := newTestIndex(t, newStubEmbedder(8))
	qa := NewQAService(index, &stubCompleter{})

	result, err := qa.Answer(context.Background(), "What is the termination notice period?", 5, "", nil)

	require.NoError(t, err)
	assert.Equal(t, noClausesAnswer, result.Answer)
	assert.Empty(t, result.ReferencedClauses)
	assert.Equal(t, models.RiskLow, result.OverallRisk)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestAnswer_Success(t *testing.T) {
	index := populatedIndex(t, map[string][]string{"doc1": {"a", "b"}})
	llm := &stubCompleter{responses: []string{
		`{"answer": "Net 30 per Section a.", "referenced_clauses": ["a"], "overall_risk": "Low", "confidence": 0.9}`,
	}}
	qa := NewQAService(index, llm)

	result, err := qa.Answer(context.Background(), "What are the payment terms?", 2, "", nil)

	require.NoError(t, err)
	assert.Equal(t, "Net 30 per Section a.", result.Answer)
	assert.Equal(t, []string{"a"}, result.ReferencedClauses)
	assert.Equal(t, models.RiskLow, result.OverallRisk)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestAnswer_FencedResponse(t *testing.T) {
	index := populatedIndex(t, map[string][]string{"doc1": {"a"}})
	llm := &stubCompleter{responses: []string{
		"```json\n{\"answer\": \"ok\", \"referenced_clauses\": [], \"overall_risk\": \"Medium\", \"confidence\": 0.5}\n```",
	}}
	qa := NewQAService(index, llm)

	result, err := qa.Answer(context.Background(), "Any risks in this contract?", 1, "", nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", result.Answer)
	assert.Equal(t, models.RiskMedium, result.OverallRisk)
}

func TestAnswer_ScopedNeverLeaksOtherDocuments(t *testing.T) {
	index := populatedIndex(t, map[string][]string{
		"doc1": {"a", "b"},
		"doc2": {"x", "y", "z"},
	})
	llm := &stubCompleter{err: errors.New("force the fallback, it echoes retrieved ids")}
	qa := NewQAService(index, llm)

	result, err := qa.Answer(context.Background(), "What does this document say?", 5, "doc2", nil)

	require.NoError(t, err)
	require.NotEmpty(t, result.ReferencedClauses)
	for _, id := range result.ReferencedClauses {
		assert.Contains(t, []string{"x", "y", "z"}, id)
	}
}

func TestAnswer_ScopedTruncatesToTopK(t *testing.T) {
	index := populatedIndex(t, map[string][]string{"doc1": {"a", "b", "c", "d"}})
	llm := &stubCompleter{err: errors.New("force the fallback")}
	qa := NewQAService(index, llm)

	result, err := qa.Answer(context.Background(), "What does this document say?", 2, "doc1", nil)

	require.NoError(t, err)
	assert.Len(t, result.ReferencedClauses, 2)
}

func TestAnswer_ScopeWithNoMatches(t *testing.T) {
	index := populatedIndex(t, map[string][]string{"doc1": {"a"}})
	qa := NewQAService(index, &stubCompleter{})

	result, err := qa.Answer(context.Background(), "What does this document say?", 5, "missing-doc", nil)

	require.NoError(t, err)
	assert.Equal(t, noClausesAnswer, result.Answer)
	assert.Empty(t, result.ReferencedClauses)
}

func TestAnswer_GenerationFailureFallback(t *testing.T) {
	index := populatedIndex(t, map[string][]string{"doc1": {"a", "b", "c"}})
	llm := &stubCompleter{err: errors.New("provider down")}
	qa := NewQAService(index, llm)

	result, err := qa.Answer(context.Background(), "What are the payment terms?", 3, "", nil)

	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("I found %d relevant clauses but encountered an error generating the answer.", 3), result.Answer)
	assert.Len(t, result.ReferencedClauses, 3)
	assert.Equal(t, models.RiskMedium, result.OverallRisk)
	assert.Equal(t, 0.2, result.Confidence)
}

func TestAnswer_MalformedJSONFallback(t *testing.T) {
	index := populatedIndex(t, map[string][]string{"doc1": {"a", "b"}})
	llm := &stubCompleter{responses: []string{"the contract says payment is due in 30 days"}}
	qa := NewQAService(index, llm)

	result, err := qa.Answer(context.Background(), "What are the payment terms?", 2, "", nil)

	require.NoError(t, err)
	assert.Len(t, result.ReferencedClauses, 2)
	assert.Equal(t, models.RiskMedium, result.OverallRisk)
	assert.Equal(t, 0.2, result.Confidence)
}

func TestAnswer_MissingFieldFallback(t *testing.T) {
	index := populatedIndex(t, map[string][]string{"doc1": {"a"}})
	llm := &stubCompleter{responses: []string{`{"answer": "ok", "overall_risk": "Low", "confidence": 0.5}`}}
	qa := NewQAService(index, llm)

	result, err := qa.Answer(context.Background(), "What are the payment terms?", 1, "", nil)

	require.NoError(t, err)
	assert.Equal(t, 0.2, result.Confidence)
}

func TestAnswer_OutOfRangeConfidenceFallback(t *testing.T) {
	index := populatedIndex(t, map[string][]string{"doc1": {"a"}})
	llm := &stubCompleter{responses: []string{`{"answer": "ok", "referenced_clauses": [], "overall_risk": "Low", "confidence": 1.5}`}}
	qa := NewQAService(index, llm)

	result, err := qa.Answer(context.Background(), "What are the payment terms?", 1, "", nil)

	require.NoError(t, err)
	assert.Equal(t, 0.2, result.Confidence)
}

func TestAnswer_HistoryRenderedInPrompt(t *testing.T) {
	index := populatedIndex(t, map[string][]string{"doc1": {"a"}})
	llm := &stubCompleter{responses: []string{`{"answer": "ok", "referenced_clauses": [], "overall_risk": "Low", "confidence": 0.5}`}}
	qa := NewQAService(index, llm)

	history := []models.ConversationTurn{
		{Role: models.RoleUser, Content: "What is the notice period?"},
		{Role: models.RoleAssistant, Content: "30 days."},
	}
	_, err := qa.Answer(context.Background(), "And for convenience termination?", 1, "", history)

	require.NoError(t, err)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Conversation history:\nUser: What is the notice period?\nAssistant: 30 days.")
}

func TestFormatHistory_CapsAtTenTurns(t *testing.T) {
	var history []models.ConversationTurn
	for i := 0; i < 15; i++ {
		history = append(history, models.ConversationTurn{Role: models.RoleUser, Content: fmt.Sprintf("turn %d", i)})
	}

	rendered := formatHistory(history)

	assert.NotContains(t, rendered, "turn 4")
	assert.Contains(t, rendered, "turn 5")
	assert.Contains(t, rendered, "turn 14")
	assert.Equal(t, maxHistoryTurns, strings.Count(rendered, "User: "))
}

func TestFormatContext_Layout(t *testing.T) {
	records := []IndexRecord{
		{ClauseID: "a", ClauseType: "Payment", RiskLevel: "Low", Page: 2, Text: "Net 30."},
		{ClauseID: "b", ClauseType: "Liability", RiskLevel: "High", Page: 3, Text: "Unlimited."},
	}

	out := formatContext(records)

	assert.Contains(t, out, "[Clause_ID: a]\nType: Payment | Risk: Low | Page: 2\nText: Net 30.\n")
	assert.Contains(t, out, "\n---\n")
}
