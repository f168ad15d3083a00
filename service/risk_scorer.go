package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"legal-analyzer-backend/models"
)

// Keyword lists for the heuristic pre-pass. Matching is case-insensitive
// against the clause text.
var highRiskKeywords = []string{
	"indemnify",
	"indemnification",
	"unlimited liability",
	"sole discretion",
	"waive",
	"waiver",
	"penalty",
	"penalties",
	"liquidated damages",
	"consequential damages",
	"termination for convenience",
	"non-compete",
	"non-solicitation",
	"exclusive",
	"irrevocable",
}

var mediumRiskKeywords = []string{
	"liability",
	"limitation",
	"damages",
	"breach",
	"default",
	"terminate",
	"confidential",
	"obligation",
	"warranty",
	"guarantee",
}

const riskPromptTemplate = `You are a legal risk analyst. Assess the risk level of the following legal clause.

Consider:
- Does it create significant obligations or liabilities?
- Are there unfavorable terms for one party?
- Could it lead to financial exposure or legal disputes?

Return a JSON object with exactly these fields:
- "risk_level": one of ["Low", "Medium", "High"]
- "risk_reason": a brief 1-2 sentence explanation

Clause text:
"""
%s
"""

Return ONLY valid JSON, no other text.`

const fallbackRiskReason = "Risk assessment unavailable; defaulted based on heuristics"

// riskPayload mirrors the expected model output
type riskPayload struct {
	RiskLevel  *string `json:"risk_level"`
	RiskReason *string `json:"risk_reason"`
}

// RiskScorer combines keyword heuristics with a model judgment. The
// heuristic acts as a floor: a High keyword hit always forces High risk
// regardless of what the model says.
type RiskScorer struct {
	llm Completer
}

// NewRiskScorer creates a RiskScorer backed by the given completer
func NewRiskScorer(llm Completer) *RiskScorer {
	return &RiskScorer{llm: llm}
}

// heuristicRisk returns "High" or "Medium" on a keyword hit, or "" when the
// keywords are inconclusive
func heuristicRisk(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range highRiskKeywords {
		if strings.Contains(lower, kw) {
			return models.RiskHigh
		}
	}
	for _, kw := range mediumRiskKeywords {
		if strings.Contains(lower, kw) {
			return models.RiskMedium
		}
	}
	return ""
}

// ScoreRisk never fails. A High heuristic hit overrides the model's level
// while keeping its reason, prefixed so the override is visible. When the
// model is unusable the heuristic level (or Medium) stands in.
func (r *RiskScorer) ScoreRisk(ctx context.Context, clause models.Clause) models.RiskResult {
	heuristic := heuristicRisk(clause.Text)

	prompt := fmt.Sprintf(riskPromptTemplate, truncateClause(clause.Text))

	raw, err := r.llm.Complete(ctx, prompt)
	if err != nil {
		log.Printf("Risk scoring failed for clause %s: %v", clause.ClauseID, err)
		return r.fallbackResult(heuristic)
	}

	var payload riskPayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		log.Printf("Failed to parse risk assessment for clause %s: %v", clause.ClauseID, err)
		return r.fallbackResult(heuristic)
	}
	if payload.RiskLevel == nil || !models.ValidRiskLevel(*payload.RiskLevel) {
		log.Printf("Risk assessment for clause %s has invalid risk_level", clause.ClauseID)
		return r.fallbackResult(heuristic)
	}
	reason := ""
	if payload.RiskReason != nil {
		reason = *payload.RiskReason
	}

	if heuristic == models.RiskHigh {
		return models.RiskResult{
			RiskLevel:  models.RiskHigh,
			RiskReason: "[Keyword flagged] " + reason,
		}
	}
	return models.RiskResult{
		RiskLevel:  *payload.RiskLevel,
		RiskReason: reason,
	}
}

func (r *RiskScorer) fallbackResult(heuristic string) models.RiskResult {
	level := heuristic
	if level == "" {
		level = models.RiskMedium
	}
	return models.RiskResult{
		RiskLevel:  level,
		RiskReason: fallbackRiskReason,
	}
}

// ScoreClauses scores sequentially, preserving input order. One model call
// at a time, to respect provider rate limits.
func (r *RiskScorer) ScoreClauses(ctx context.Context, clauses []models.Clause) ([]models.RiskResult, error) {
	results := make([]models.RiskResult, len(clauses))
	for i, clause := range clauses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results[i] = r.ScoreRisk(ctx, clause)
		log.Printf("Scored clause %d/%d: %s -> %s", i+1, len(clauses), clause.ClauseID, results[i].RiskLevel)
	}
	return results, nil
}
