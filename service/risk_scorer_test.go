package service

import (
	"context"
	"errors"
	"testing"

	"legal-analyzer-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicRisk(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"high keyword", "The supplier shall indemnify the buyer against all claims.", models.RiskHigh},
		{"high keyword case-insensitive", "UNLIMITED LIABILITY applies to both parties.", models.RiskHigh},
		{"high beats medium", "Liquidated damages apply on breach.", models.RiskHigh},
		{"medium keyword", "Either party may terminate with notice.", models.RiskMedium},
		{"no keyword", "The agreement is written in English.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, heuristicRisk(tt.text))
		})
	}
}

func TestScoreRisk_ModelResultUsedWhenHeuristicInconclusive(t *testing.T) {
	llm := &stubCompleter{responses: []string{`{"risk_level": "Low", "risk_reason": "Purely administrative clause."}`}}
	scorer := NewRiskScorer(llm)

	result := scorer.ScoreRisk(context.Background(), sampleClause("The agreement is written in English."))

	assert.Equal(t, models.RiskLow, result.RiskLevel)
	assert.Equal(t, "Purely administrative clause.", result.RiskReason)
}

func TestScoreRisk_HighKeywordOverridesModel(t *testing.T) {
	llm := &stubCompleter{responses: []string{`{"risk_level": "Low", "risk_reason": "Looks routine."}`}}
	scorer := NewRiskScorer(llm)

	result := scorer.ScoreRisk(context.Background(), sampleClause("The contractor agrees to indemnify the client."))

	assert.Equal(t, models.RiskHigh, result.RiskLevel)
	assert.Equal(t, "[Keyword flagged] Looks routine.", result.RiskReason)
}

func TestScoreRisk_MediumHeuristicDoesNotOverrideModel(t *testing.T) {
	// A Medium keyword hit must not drag down a model High or lift a
	// model Low.
	llm := &stubCompleter{responses: []string{`{"risk_level": "Low", "risk_reason": "Standard confidentiality term."}`}}
	scorer := NewRiskScorer(llm)

	result := scorer.ScoreRisk(context.Background(), sampleClause("Confidential information must be protected."))

	assert.Equal(t, models.RiskLow, result.RiskLevel)
}

func TestScoreRisk_ProviderFailureFallsBackToHeuristic(t *testing.T) {
	llm := &stubCompleter{err: errors.New("provider down")}
	scorer := NewRiskScorer(llm)

	result := scorer.ScoreRisk(context.Background(), sampleClause("The supplier shall indemnify the buyer."))

	assert.Equal(t, models.RiskHigh, result.RiskLevel)
	assert.Equal(t, fallbackRiskReason, result.RiskReason)
}

func TestScoreRisk_ProviderFailureWithoutKeywordDefaultsMedium(t *testing.T) {
	llm := &stubCompleter{err: errors.New("provider down")}
	scorer := NewRiskScorer(llm)

	result := scorer.ScoreRisk(context.Background(), sampleClause("The agreement is written in English."))

	assert.Equal(t, models.RiskMedium, result.RiskLevel)
	assert.Equal(t, fallbackRiskReason, result.RiskReason)
}

func TestScoreRisk_InvalidLevelFallsBack(t *testing.T) {
	llm := &stubCompleter{responses: []string{`{"risk_level": "Severe", "risk_reason": "bad enum"}`}}
	scorer := NewRiskScorer(llm)

	result := scorer.ScoreRisk(context.Background(), sampleClause("Either party may terminate with notice."))

	assert.Equal(t, models.RiskMedium, result.RiskLevel)
	assert.Equal(t, fallbackRiskReason, result.RiskReason)
}

func TestScoreRisk_FencedResponse(t *testing.T) {
	llm := &stubCompleter{responses: []string{"```json\n{\"risk_level\": \"High\", \"risk_reason\": \"One-sided terms.\"}\n```"}}
	scorer := NewRiskScorer(llm)

	result := scorer.ScoreRisk(context.Background(), sampleClause("The agreement is written in English."))

	assert.Equal(t, models.RiskHigh, result.RiskLevel)
	assert.Equal(t, "One-sided terms.", result.RiskReason)
}

func TestScoreClauses_PreservesOrder(t *testing.T) {
	llm := &stubCompleter{responses: []string{
		`{"risk_level": "Low", "risk_reason": "first"}`,
		`{"risk_level": "High", "risk_reason": "second"}`,
	}}
	scorer := NewRiskScorer(llm)

	results, err := scorer.ScoreClauses(context.Background(), []models.Clause{
		sampleClause("The agreement is written in English."),
		sampleClause("Nothing notable here either."),
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, models.RiskLow, results[0].RiskLevel)
	assert.Equal(t, models.RiskHigh, results[1].RiskLevel)
}
