package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"legal-analyzer-backend/models"
)

const classificationPromptTemplate = `You are a legal document analyst. Classify the following legal clause.
Return a JSON object with exactly these fields:
- "clause_type": one of [Termination, Liability, Payment, Confidentiality, Indemnity, IP, Warranty, Insurance, Dispute Resolution, Force Majeure, Non-Compete, Data Protection, Governing Law, Amendment, General]
- "importance": one of ["Low", "Medium", "High"]
Clause text:
"""
%s
"""
Return ONLY valid JSON, no other text.`

// classificationPayload mirrors the expected model output. Pointer fields
// distinguish absent keys from empty values.
type classificationPayload struct {
	ClauseType *string `json:"clause_type"`
	Importance *string `json:"importance"`
}

// Classifier assigns a type and importance to clauses using a language model
type Classifier struct {
	llm Completer
}

// NewClassifier creates a Classifier backed by the given completer
func NewClassifier(llm Completer) *Classifier {
	return &Classifier{llm: llm}
}

// ClassifyClause never fails: any generation or parse problem degrades to
// the General/Medium fallback so a single bad response cannot stall a
// document analysis.
func (c *Classifier) ClassifyClause(ctx context.Context, clause models.Clause) models.ClassificationResult {
	fallback := models.ClassificationResult{ClauseType: "General", Importance: "Medium"}

	prompt := fmt.Sprintf(classificationPromptTemplate, truncateClause(clause.Text))

	raw, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		log.Printf("Classification failed for clause %s: %v", clause.ClauseID, err)
		return fallback
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		log.Printf("Failed to parse classification for clause %s: %v", clause.ClauseID, err)
		return fallback
	}
	if payload.ClauseType == nil || *payload.ClauseType == "" {
		log.Printf("Classification for clause %s missing clause_type", clause.ClauseID)
		return fallback
	}
	if payload.Importance == nil || !validImportance(*payload.Importance) {
		log.Printf("Classification for clause %s has invalid importance", clause.ClauseID)
		return fallback
	}

	return models.ClassificationResult{
		ClauseType: *payload.ClauseType,
		Importance: *payload.Importance,
	}
}

// ClassifyClauses classifies sequentially, preserving input order
func (c *Classifier) ClassifyClauses(ctx context.Context, clauses []models.Clause) ([]models.ClassificationResult, error) {
	results := make([]models.ClassificationResult, len(clauses))
	for i, clause := range clauses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results[i] = c.ClassifyClause(ctx, clause)
		log.Printf("Classified clause %d/%d: %s -> %s", i+1, len(clauses), clause.ClauseID, results[i].ClauseType)
	}
	return results, nil
}

func validImportance(s string) bool {
	switch s {
	case "High", "Medium", "Low":
		return true
	}
	return false
}
