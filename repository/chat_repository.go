package repository

import (
	"context"
	"errors"

	"legal-analyzer-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatRepository handles database operations for chat sessions and messages
type ChatRepository struct {
	db *pgxpool.Pool
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateSession creates a new chat session
func (r *ChatRepository) CreateSession(ctx context.Context, session *models.ChatSession) error {
	query := `
		INSERT INTO chat_sessions (id, username, title, document_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	return r.db.QueryRow(
		ctx, query,
		session.ID,
		session.Username,
		session.Title,
		session.DocumentID,
	).Scan(&session.CreatedAt)
}

// GetSession retrieves a chat session by ID
func (r *ChatRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	session := &models.ChatSession{}
	query := `
		SELECT id, username, title, document_id, created_at
		FROM chat_sessions
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.Username,
		&session.Title,
		&session.DocumentID,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return session, nil
}

// ListSessions retrieves a user's chat sessions, newest first, optionally
// scoped to one document
func (r *ChatRepository) ListSessions(ctx context.Context, username string, documentID *uuid.UUID) ([]models.ChatSession, error) {
	query := `
		SELECT id, username, title, document_id, created_at
		FROM chat_sessions
		WHERE username = $1 AND ($2::uuid IS NULL OR document_id = $2)
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, username, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ChatSession
	for rows.Next() {
		var s models.ChatSession
		err := rows.Scan(&s.ID, &s.Username, &s.Title, &s.DocumentID, &s.CreatedAt)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// AddMessage appends a message to a session
func (r *ChatRepository) AddMessage(ctx context.Context, msg *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (session_id, role, content, meta)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return r.db.QueryRow(
		ctx, query,
		msg.SessionID,
		msg.Role,
		msg.Content,
		msg.Meta,
	).Scan(&msg.ID, &msg.CreatedAt)
}

// ListMessages retrieves a session's messages in chronological order
func (r *ChatRepository) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	query := `
		SELECT id, session_id, role, content, meta, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Meta, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// DeleteSession removes a session; messages go with it via ON DELETE CASCADE
func (r *ChatRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
