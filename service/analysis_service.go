package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"legal-analyzer-backend/models"
	"legal-analyzer-backend/repository"

	"github.com/google/uuid"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrNoClauses        = errors.New("no clauses found for document")
	ErrNoText           = errors.New("no extractable text in document")
)

// AnalysisService runs the document pipeline: segmentation on ingest, then
// classification, risk scoring and indexing on analyze.
type AnalysisService struct {
	classifier *Classifier
	riskScorer *RiskScorer
	index      *VectorIndexManager
	docRepo    *repository.DocumentRepository
	clauseRepo *repository.ClauseRepository
}

// AnalysisServiceOption is a functional option for AnalysisService
type AnalysisServiceOption func(*AnalysisService)

// AnalysisWithClassifier sets the clause classifier
func AnalysisWithClassifier(c *Classifier) AnalysisServiceOption {
	return func(svc *AnalysisService) {
		svc.classifier = c
	}
}

// AnalysisWithRiskScorer sets the risk scorer
func AnalysisWithRiskScorer(r *RiskScorer) AnalysisServiceOption {
	return func(svc *AnalysisService) {
		svc.riskScorer = r
	}
}

// AnalysisWithIndex sets the vector index manager
func AnalysisWithIndex(m *VectorIndexManager) AnalysisServiceOption {
	return func(svc *AnalysisService) {
		svc.index = m
	}
}

// AnalysisWithDocumentRepository sets the document repository
func AnalysisWithDocumentRepository(repo *repository.DocumentRepository) AnalysisServiceOption {
	return func(svc *AnalysisService) {
		svc.docRepo = repo
	}
}

// AnalysisWithClauseRepository sets the clause repository
func AnalysisWithClauseRepository(repo *repository.ClauseRepository) AnalysisServiceOption {
	return func(svc *AnalysisService) {
		svc.clauseRepo = repo
	}
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(opts ...AnalysisServiceOption) *AnalysisService {
	svc := &AnalysisService{}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// IngestDocument segments the extracted pages and stores the document with
// its clauses. Analysis is a separate step.
func (s *AnalysisService) IngestDocument(
	ctx context.Context,
	doc *models.Document,
	pages []models.Page,
) ([]models.Clause, error) {
	clauses := Segment(pages, doc.ID.String())
	if len(clauses) == 0 {
		return nil, ErrNoText
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	if err := s.clauseRepo.InsertBatch(ctx, doc.ID, clauses); err != nil {
		return nil, fmt.Errorf("failed to store clauses: %w", err)
	}

	log.Printf("Ingested document %s: %d pages, %d clauses", doc.ID, len(pages), len(clauses))
	return clauses, nil
}

// AnalyzeDocument classifies and risk-scores every clause of a document,
// persists the results, and adds the enriched clauses to the vector index.
func (s *AnalysisService) AnalyzeDocument(ctx context.Context, documentID uuid.UUID) ([]models.ClassifiedClause, error) {
	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	stored, err := s.clauseRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load clauses: %w", err)
	}
	if len(stored) == 0 {
		return nil, ErrNoClauses
	}

	clauses := make([]models.Clause, len(stored))
	for i, c := range stored {
		clauses[i] = c.Clause
	}

	classifications, err := s.classifier.ClassifyClauses(ctx, clauses)
	if err != nil {
		return nil, err
	}
	risks, err := s.riskScorer.ScoreClauses(ctx, clauses)
	if err != nil {
		return nil, err
	}

	results := make([]models.ClassifiedClause, len(clauses))
	for i, clause := range clauses {
		results[i] = models.ClassifiedClause{
			Clause:     clause,
			ClauseType: classifications[i].ClauseType,
			Importance: classifications[i].Importance,
			RiskLevel:  risks[i].RiskLevel,
			RiskReason: risks[i].RiskReason,
		}
		err := s.clauseRepo.UpdateClassification(
			ctx,
			clause.ClauseID,
			classifications[i].ClauseType,
			classifications[i].Importance,
			risks[i].RiskLevel,
			risks[i].RiskReason,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to store classification for clause %s: %w", clause.ClauseID, err)
		}
	}

	if err := s.index.Add(ctx, documentID.String(), results); err != nil {
		return nil, fmt.Errorf("failed to index clauses: %w", err)
	}

	log.Printf("Analyzed %d clauses for document %s", len(results), documentID)
	return results, nil
}
