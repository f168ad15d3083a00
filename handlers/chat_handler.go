package handlers

import (
	"errors"
	"log"
	"net/http"

	"legal-analyzer-backend/models"
	"legal-analyzer-backend/repository"
	"legal-analyzer-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// sessionTitleMax caps the auto-generated session title length
const sessionTitleMax = 50

// ChatHandler handles multi-turn chat over the indexed clauses
type ChatHandler struct {
	chatRepo  *repository.ChatRepository
	qaService *service.QAService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatRepo *repository.ChatRepository, qaService *service.QAService) *ChatHandler {
	return &ChatHandler{
		chatRepo:  chatRepo,
		qaService: qaService,
	}
}

// SendMessageRequest represents the request body for sending a chat message
type SendMessageRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question" binding:"required,min=5"`
	DocID     string `json:"doc_id"`
	TopK      int    `json:"top_k"`
}

// ListSessions handles GET /api/chat/sessions
func (h *ChatHandler) ListSessions(c *gin.Context) {
	var documentID *uuid.UUID
	if docID := c.Query("doc_id"); docID != "" {
		id, err := uuid.Parse(docID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_DOCUMENT_ID",
					"message": "Invalid doc_id format",
				},
			})
			return
		}
		documentID = &id
	}

	sessions, err := h.chatRepo.ListSessions(c.Request.Context(), currentUsername(c), documentID)
	if err != nil {
		log.Printf("Failed to list chat sessions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to list sessions",
			},
		})
		return
	}
	if sessions == nil {
		sessions = []models.ChatSession{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sessions,
	})
}

// ListMessages handles GET /api/chat/sessions/:id/messages
func (h *ChatHandler) ListMessages(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	messages, err := h.chatRepo.ListMessages(c.Request.Context(), session.ID)
	if err != nil {
		log.Printf("Failed to list messages for session %s: %v", session.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to list messages",
			},
		})
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    messages,
	})
}

// SendMessage handles POST /api/chat/send
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	username := currentUsername(c)
	ctx := c.Request.Context()

	var session *models.ChatSession
	if req.SessionID != "" {
		sessionID, err := uuid.Parse(req.SessionID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_SESSION_ID",
					"message": "Invalid session_id format",
				},
			})
			return
		}
		session, err = h.chatRepo.GetSession(ctx, sessionID)
		if err != nil || session.Username != username {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Chat session not found",
				},
			})
			return
		}
	} else {
		session = &models.ChatSession{
			ID:       uuid.New(),
			Username: username,
			Title:    sessionTitle(req.Question),
		}
		if req.DocID != "" {
			docID, err := uuid.Parse(req.DocID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "INVALID_DOCUMENT_ID",
						"message": "Invalid doc_id format",
					},
				})
				return
			}
			session.DocumentID = &docID
		}
		if err := h.chatRepo.CreateSession(ctx, session); err != nil {
			log.Printf("Failed to create chat session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "Failed to create session",
				},
			})
			return
		}
	}

	// History is fetched before the new question is stored so the prompt
	// does not repeat it.
	previous, err := h.chatRepo.ListMessages(ctx, session.ID)
	if err != nil {
		log.Printf("Failed to load history for session %s: %v", session.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to load conversation history",
			},
		})
		return
	}
	history := make([]models.ConversationTurn, len(previous))
	for i, m := range previous {
		history[i] = models.ConversationTurn{Role: m.Role, Content: m.Content}
	}

	userMsg := &models.ChatMessage{
		SessionID: session.ID,
		Role:      models.RoleUser,
		Content:   req.Question,
	}
	if err := h.chatRepo.AddMessage(ctx, userMsg); err != nil {
		log.Printf("Failed to store user message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to store message",
			},
		})
		return
	}

	result, err := h.qaService.Answer(ctx, req.Question, req.TopK, req.DocID, history)
	if err != nil {
		log.Printf("Chat answer failed for session %s: %v", session.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to answer question",
			},
		})
		return
	}

	assistantMsg := &models.ChatMessage{
		SessionID: session.ID,
		Role:      models.RoleAssistant,
		Content:   result.Answer,
		Meta: map[string]interface{}{
			"referenced_clauses": result.ReferencedClauses,
			"overall_risk":       result.OverallRisk,
			"confidence":         result.Confidence,
		},
	}
	if err := h.chatRepo.AddMessage(ctx, assistantMsg); err != nil {
		log.Printf("Failed to store assistant message: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"session_id":         session.ID,
			"answer":             result.Answer,
			"referenced_clauses": result.ReferencedClauses,
			"overall_risk":       result.OverallRisk,
			"confidence":         result.Confidence,
		},
	})
}

// DeleteSession handles DELETE /api/chat/sessions/:id
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	if err := h.chatRepo.DeleteSession(c.Request.Context(), session.ID); err != nil {
		log.Printf("Failed to delete session %s: %v", session.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to delete session",
			},
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// ownedSession loads the :id session and enforces ownership. On failure it
// writes the error response and returns ok=false.
func (h *ChatHandler) ownedSession(c *gin.Context) (*models.ChatSession, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_SESSION_ID",
				"message": "Invalid session id format",
			},
		})
		return nil, false
	}

	session, err := h.chatRepo.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Chat session not found",
				},
			})
			return nil, false
		}
		log.Printf("Failed to load session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to load session",
			},
		})
		return nil, false
	}

	if session.Username != currentUsername(c) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Not your session",
			},
		})
		return nil, false
	}

	return session, true
}

func sessionTitle(question string) string {
	runes := []rune(question)
	if len(runes) <= sessionTitleMax {
		return question
	}
	return string(runes[:sessionTitleMax]) + "..."
}
