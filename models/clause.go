package models

// Page is a single page of extracted document text. Pages are 1-indexed and
// arrive in natural document order.
type Page struct {
	Page int    `json:"page" binding:"required,gt=0"`
	Text string `json:"text"`
}

// Clause is the atomic unit of legal text produced by segmentation
type Clause struct {
	ClauseID     string `json:"clause_id"`
	SectionTitle string `json:"section_title"`
	Text         string `json:"text"`
	Page         int    `json:"page"`
}

// ClassifiedClause is a clause enriched with classification and risk metadata
type ClassifiedClause struct {
	Clause
	ClauseType string `json:"clause_type,omitempty"`
	Importance string `json:"importance,omitempty"`
	RiskLevel  string `json:"risk_level,omitempty"`
	RiskReason string `json:"risk_reason,omitempty"`
}
