package models

// Risk and importance levels used across classification, risk scoring and
// query responses.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// ValidRiskLevel reports whether s is one of the three recognized levels
func ValidRiskLevel(s string) bool {
	return s == RiskLow || s == RiskMedium || s == RiskHigh
}

// ClassificationResult is the model output for clause classification
type ClassificationResult struct {
	ClauseType string `json:"clause_type"`
	Importance string `json:"importance"`
}

// RiskResult is the model output for clause risk assessment
type RiskResult struct {
	RiskLevel  string `json:"risk_level"`
	RiskReason string `json:"risk_reason"`
}

// QueryRequest is the request body for RAG question answering
type QueryRequest struct {
	Question string `json:"question" binding:"required,min=5"`
	TopK     int    `json:"top_k"`
	DocID    string `json:"doc_id"`
}

// QueryResponse is the structured answer produced by the retrieval
// orchestrator. ReferencedClauses preserves the similarity ranking order.
type QueryResponse struct {
	Answer            string   `json:"answer"`
	ReferencedClauses []string `json:"referenced_clauses"`
	OverallRisk       string   `json:"overall_risk"`
	Confidence        float64  `json:"confidence"`
}
