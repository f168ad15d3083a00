package repository

import (
	"context"

	"legal-analyzer-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClauseRepository handles database operations for clauses
type ClauseRepository struct {
	db *pgxpool.Pool
}

// NewClauseRepository creates a new clause repository
func NewClauseRepository(db *pgxpool.Pool) *ClauseRepository {
	return &ClauseRepository{db: db}
}

// InsertBatch inserts the clauses of one document in segmentation order
func (r *ClauseRepository) InsertBatch(ctx context.Context, documentID uuid.UUID, clauses []models.Clause) error {
	if len(clauses) == 0 {
		return nil
	}

	query := `
		INSERT INTO clauses (id, document_id, position, section_title, text, page)
		VALUES ($1, $2, $3, $4, $5, $6)`

	batch := &pgx.Batch{}
	for i, clause := range clauses {
		batch.Queue(query, clause.ClauseID, documentID, i, clause.SectionTitle, clause.Text, clause.Page)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range clauses {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListByDocument retrieves a document's clauses in segmentation order
func (r *ClauseRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.ClassifiedClause, error) {
	query := `
		SELECT id, section_title, text, page,
			COALESCE(clause_type, ''), COALESCE(importance, ''),
			COALESCE(risk_level, ''), COALESCE(risk_reason, '')
		FROM clauses
		WHERE document_id = $1
		ORDER BY position`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clauses []models.ClassifiedClause
	for rows.Next() {
		var c models.ClassifiedClause
		err := rows.Scan(
			&c.ClauseID,
			&c.SectionTitle,
			&c.Text,
			&c.Page,
			&c.ClauseType,
			&c.Importance,
			&c.RiskLevel,
			&c.RiskReason,
		)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}

	return clauses, rows.Err()
}

// ListByUser retrieves all clauses across a user's documents, each paired
// with its document filename
func (r *ClauseRepository) ListByUser(ctx context.Context, username string) ([]models.ClassifiedClause, []string, error) {
	query := `
		SELECT c.id, c.section_title, c.text, c.page,
			COALESCE(c.clause_type, ''), COALESCE(c.importance, ''),
			COALESCE(c.risk_level, ''), COALESCE(c.risk_reason, ''),
			d.filename
		FROM clauses c
		JOIN documents d ON d.id = c.document_id
		WHERE d.uploaded_by = $1
		ORDER BY d.created_at DESC, c.position`

	rows, err := r.db.Query(ctx, query, username)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var clauses []models.ClassifiedClause
	var filenames []string
	for rows.Next() {
		var c models.ClassifiedClause
		var filename string
		err := rows.Scan(
			&c.ClauseID,
			&c.SectionTitle,
			&c.Text,
			&c.Page,
			&c.ClauseType,
			&c.Importance,
			&c.RiskLevel,
			&c.RiskReason,
			&filename,
		)
		if err != nil {
			return nil, nil, err
		}
		clauses = append(clauses, c)
		filenames = append(filenames, filename)
	}

	return clauses, filenames, rows.Err()
}

// UpdateClassification stores the analysis results for one clause
func (r *ClauseRepository) UpdateClassification(
	ctx context.Context,
	clauseID string,
	clauseType string,
	importance string,
	riskLevel string,
	riskReason string,
) error {
	query := `
		UPDATE clauses SET
			clause_type = $2,
			importance = $3,
			risk_level = $4,
			risk_reason = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, clauseID, clauseType, importance, riskLevel, riskReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
