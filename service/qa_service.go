package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"legal-analyzer-backend/models"
)

const qaPromptTemplate = `You are a legal analyst. Answer the user's question based ONLY on the provided legal clauses below.

Rules:
- Only use information from the provided clauses, do NOT make up information
- Cite specific clause IDs in your answer
- If the clauses don't contain enough information, say so clearly
- Assess the overall risk based on the clauses found
- Use the conversation history to understand follow-up questions

Provided clauses:
%s

%s

User question: %s

Return a JSON object with exactly these fields:
- "answer": your detailed answer (cite only the section title part and not the complete id)
- "referenced_clauses": list of clause IDs you referenced
- "overall_risk": one of ["Low", "Medium", "High"] based on the relevant clauses
- "confidence": a float between 0.0 and 1.0 indicating how confident you are

Return ONLY valid JSON, no other text.`

const noClausesAnswer = "No relevant clauses found for your question. Please upload and analyze a document first."

// maxHistoryTurns bounds how much conversation context goes into the prompt
const maxHistoryTurns = 10

// qaPayload mirrors the expected model output. Pointer fields distinguish
// absent keys from zero values so a partial response is rejected whole.
type qaPayload struct {
	Answer            *string   `json:"answer"`
	ReferencedClauses *[]string `json:"referenced_clauses"`
	OverallRisk       *string   `json:"overall_risk"`
	Confidence        *float64  `json:"confidence"`
}

// QAService answers questions over the indexed clauses
type QAService struct {
	index *VectorIndexManager
	llm   Completer
}

// NewQAService creates a QAService over the given index and completer
func NewQAService(index *VectorIndexManager, llm Completer) *QAService {
	return &QAService{index: index, llm: llm}
}

// Answer retrieves relevant clauses and asks the model for a grounded
// answer. The returned error covers retrieval only; generation and parse
// failures degrade to a fallback response that still names the retrieved
// clauses.
func (s *QAService) Answer(ctx context.Context, question string, topK int, docID string, history []models.ConversationTurn) (models.QueryResponse, error) {
	if topK <= 0 {
		topK = 5
	}

	// Over-fetch when scoping to one document so the post-filter can still
	// fill topK results.
	fetchK := topK
	if docID != "" {
		fetchK = topK * 3
	}

	results, err := s.index.Search(ctx, question, fetchK)
	if err != nil {
		return models.QueryResponse{}, fmt.Errorf("failed to search index: %w", err)
	}

	if docID != "" {
		filtered := results[:0]
		for _, r := range results {
			if r.DocumentID == docID {
				filtered = append(filtered, r)
			}
		}
		if len(filtered) > topK {
			filtered = filtered[:topK]
		}
		results = filtered
	}

	if len(results) == 0 {
		return models.QueryResponse{
			Answer:            noClausesAnswer,
			ReferencedClauses: []string{},
			OverallRisk:       models.RiskLow,
			Confidence:        0.0,
		}, nil
	}

	prompt := fmt.Sprintf(qaPromptTemplate, formatContext(results), formatHistory(history), question)

	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		log.Printf("Answer generation failed: %v", err)
		return fallbackResponse(results), nil
	}

	var payload qaPayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		log.Printf("Failed to parse answer: %v", err)
		return fallbackResponse(results), nil
	}
	if payload.Answer == nil || payload.ReferencedClauses == nil || payload.OverallRisk == nil || payload.Confidence == nil {
		log.Printf("Answer is missing required fields")
		return fallbackResponse(results), nil
	}
	if !models.ValidRiskLevel(*payload.OverallRisk) {
		log.Printf("Answer has invalid overall_risk: %s", *payload.OverallRisk)
		return fallbackResponse(results), nil
	}
	if *payload.Confidence < 0.0 || *payload.Confidence > 1.0 {
		log.Printf("Answer has out-of-range confidence: %f", *payload.Confidence)
		return fallbackResponse(results), nil
	}

	return models.QueryResponse{
		Answer:            *payload.Answer,
		ReferencedClauses: *payload.ReferencedClauses,
		OverallRisk:       *payload.OverallRisk,
		Confidence:        *payload.Confidence,
	}, nil
}

func formatContext(results []IndexRecord) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[Clause_ID: %s]\nType: %s | Risk: %s | Page: %d\nText: %s\n",
			r.ClauseID, r.ClauseType, r.RiskLevel, r.Page, r.Text)
	}
	return strings.Join(parts, "\n---\n")
}

func formatHistory(history []models.ConversationTurn) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	lines := make([]string, len(history))
	for i, turn := range history {
		role := "Assistant"
		if turn.Role == models.RoleUser {
			role = "User"
		}
		lines[i] = fmt.Sprintf("%s: %s", role, turn.Content)
	}
	return "Conversation history:\n" + strings.Join(lines, "\n")
}

func fallbackResponse(results []IndexRecord) models.QueryResponse {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ClauseID
	}
	return models.QueryResponse{
		Answer:            fmt.Sprintf("I found %d relevant clauses but encountered an error generating the answer.", len(results)),
		ReferencedClauses: ids,
		OverallRisk:       models.RiskMedium,
		Confidence:        0.2,
	}
}
