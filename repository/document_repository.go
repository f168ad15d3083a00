package repository

import (
	"context"
	"errors"

	"legal-analyzer-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository handles database operations for documents
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create creates a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, filename, uploaded_by, page_count, storage_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	return r.db.QueryRow(
		ctx, query,
		doc.ID,
		doc.Filename,
		doc.UploadedBy,
		doc.PageCount,
		doc.StoragePath,
	).Scan(&doc.CreatedAt)
}

// GetByID retrieves a document with its analysis status and clause count
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc := &models.Document{}
	query := `
		SELECT d.id, d.filename, d.uploaded_by, d.page_count, d.storage_path, d.created_at,
			COUNT(c.id) AS clause_count,
			COUNT(c.id) FILTER (WHERE c.clause_type IS NOT NULL) > 0 AS is_analyzed
		FROM documents d
		LEFT JOIN clauses c ON c.document_id = d.id
		WHERE d.id = $1
		GROUP BY d.id`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.Filename,
		&doc.UploadedBy,
		&doc.PageCount,
		&doc.StoragePath,
		&doc.CreatedAt,
		&doc.ClauseCount,
		&doc.IsAnalyzed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return doc, nil
}

// ListByUser retrieves all documents uploaded by a user, newest first
func (r *DocumentRepository) ListByUser(ctx context.Context, username string) ([]models.Document, error) {
	query := `
		SELECT d.id, d.filename, d.uploaded_by, d.page_count, d.storage_path, d.created_at,
			COUNT(c.id) AS clause_count,
			COUNT(c.id) FILTER (WHERE c.clause_type IS NOT NULL) > 0 AS is_analyzed
		FROM documents d
		LEFT JOIN clauses c ON c.document_id = d.id
		WHERE d.uploaded_by = $1
		GROUP BY d.id
		ORDER BY d.created_at DESC`

	rows, err := r.db.Query(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		err := rows.Scan(
			&doc.ID,
			&doc.Filename,
			&doc.UploadedBy,
			&doc.PageCount,
			&doc.StoragePath,
			&doc.CreatedAt,
			&doc.ClauseCount,
			&doc.IsAnalyzed,
		)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// UpdateStoragePath records where the original file lives in blob storage
func (r *DocumentRepository) UpdateStoragePath(ctx context.Context, id uuid.UUID, storagePath string) error {
	tag, err := r.db.Exec(ctx, `UPDATE documents SET storage_path = $2 WHERE id = $1`, id, storagePath)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a document; clauses go with it via ON DELETE CASCADE
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
