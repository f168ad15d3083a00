package handlers

import (
	"log"
	"net/http"

	"legal-analyzer-backend/models"
	"legal-analyzer-backend/service"

	"github.com/gin-gonic/gin"
)

// QueryHandler handles one-shot questions over the indexed clauses
type QueryHandler struct {
	qaService *service.QAService
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(qaService *service.QAService) *QueryHandler {
	return &QueryHandler{qaService: qaService}
}

// Query handles POST /api/query
func (h *QueryHandler) Query(c *gin.Context) {
	var req models.QueryRequest
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

	result, err := h.qaService.Answer(c.Request.Context(), req.Question, req.TopK, req.DocID, nil)
	if err != nil {
		log.Printf("Query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to answer question",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
