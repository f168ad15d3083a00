package models

import (
	"time"

	"github.com/google/uuid"
)

// Document represents an uploaded legal document
type Document struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	UploadedBy  string    `json:"uploaded_by"`
	PageCount   int       `json:"page_count"`
	StoragePath *string   `json:"storage_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Derived fields populated by list/detail queries
	IsAnalyzed  bool `json:"is_analyzed"`
	ClauseCount int  `json:"clause_count"`
}
