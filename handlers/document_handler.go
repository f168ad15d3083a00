package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"

	"legal-analyzer-backend/models"
	"legal-analyzer-backend/repository"
	"legal-analyzer-backend/service"
	"legal-analyzer-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxPDFSize caps original file uploads at 20MB
const maxPDFSize = 20 * 1024 * 1024

// DocumentHandler handles HTTP requests for documents
type DocumentHandler struct {
	analysisService *service.AnalysisService
	docRepo         *repository.DocumentRepository
	clauseRepo      *repository.ClauseRepository
	storage         storage.Storage
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(
	analysisService *service.AnalysisService,
	docRepo *repository.DocumentRepository,
	clauseRepo *repository.ClauseRepository,
	store storage.Storage,
) *DocumentHandler {
	return &DocumentHandler{
		analysisService: analysisService,
		docRepo:         docRepo,
		clauseRepo:      clauseRepo,
		storage:         store,
	}
}

// IngestDocumentRequest represents the request body for document ingestion.
// Pages carry text already extracted from the source file.
type IngestDocumentRequest struct {
	Filename string        `json:"filename" binding:"required"`
	Pages    []models.Page `json:"pages" binding:"required,min=1,dive"`
}

// IngestDocument handles POST /api/documents
func (h *DocumentHandler) IngestDocument(c *gin.Context) {
	var req IngestDocumentRequest
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

	doc := &models.Document{
		ID:         uuid.New(),
		Filename:   req.Filename,
		UploadedBy: currentUsername(c),
		PageCount:  len(req.Pages),
	}

	clauses, err := h.analysisService.IngestDocument(c.Request.Context(), doc, req.Pages)
	if err != nil {
		if errors.Is(err, service.ErrNoText) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NO_TEXT",
					"message": "Could not extract any text from the document",
				},
			})
			return
		}
		log.Printf("Failed to ingest document: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to ingest document",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"doc_id":     doc.ID,
			"filename":   doc.Filename,
			"page_count": doc.PageCount,
			"clauses":    clauses,
		},
	})
}

// ListDocuments handles GET /api/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	docs, err := h.docRepo.ListByUser(c.Request.Context(), currentUsername(c))
	if err != nil {
		log.Printf("Failed to list documents: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to list documents",
			},
		})
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    docs,
	})
}

// GetStats handles GET /api/documents/stats
func (h *DocumentHandler) GetStats(c *gin.Context) {
	username := currentUsername(c)

	docs, err := h.docRepo.ListByUser(c.Request.Context(), username)
	if err != nil {
		log.Printf("Failed to list documents for stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to compute statistics",
			},
		})
		return
	}

	clauses, filenames, err := h.clauseRepo.ListByUser(c.Request.Context(), username)
	if err != nil {
		log.Printf("Failed to list clauses for stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to compute statistics",
			},
		})
		return
	}

	analyzedDocs := 0
	for _, d := range docs {
		if d.IsAnalyzed {
			analyzedDocs++
		}
	}

	riskCounts := map[string]int{
		models.RiskHigh:   0,
		models.RiskMedium: 0,
		models.RiskLow:    0,
	}
	analyzedClauses := 0
	type riskyClause struct {
		clause   models.ClassifiedClause
		filename string
	}
	var topRisky []riskyClause
	for i, clause := range clauses {
		if clause.ClauseType == "" {
			continue
		}
		analyzedClauses++
		if _, ok := riskCounts[clause.RiskLevel]; ok {
			riskCounts[clause.RiskLevel]++
		}
		if clause.RiskLevel == models.RiskHigh {
			topRisky = append(topRisky, riskyClause{clause: clause, filename: filenames[i]})
		}
	}
	sort.SliceStable(topRisky, func(i, j int) bool {
		return topRisky[i].clause.SectionTitle < topRisky[j].clause.SectionTitle
	})
	if len(topRisky) > 5 {
		topRisky = topRisky[:5]
	}

	riskyOut := make([]gin.H, len(topRisky))
	for i, r := range topRisky {
		riskyOut[i] = gin.H{
			"clause_id":     r.clause.ClauseID,
			"section_title": r.clause.SectionTitle,
			"clause_type":   r.clause.ClauseType,
			"risk_reason":   r.clause.RiskReason,
			"doc_filename":  r.filename,
			"page":          r.clause.Page,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total_documents":    len(docs),
			"analyzed_documents": analyzedDocs,
			"total_clauses":      len(clauses),
			"analyzed_clauses":   analyzedClauses,
			"risk_distribution":  riskCounts,
			"top_risky_clauses":  riskyOut,
		},
	})
}

// GetDocument handles GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    doc,
	})
}

// GetDocumentClauses handles GET /api/documents/:id/clauses
func (h *DocumentHandler) GetDocumentClauses(c *gin.Context) {
	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}

	clauses, err := h.clauseRepo.ListByDocument(c.Request.Context(), doc.ID)
	if err != nil {
		log.Printf("Failed to list clauses for document %s: %v", doc.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to list clauses",
			},
		})
		return
	}
	if clauses == nil {
		clauses = []models.ClassifiedClause{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    clauses,
	})
}

// AnalyzeDocument handles POST /api/documents/:id/analyze
func (h *DocumentHandler) AnalyzeDocument(c *gin.Context) {
	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}

	results, err := h.analysisService.AnalyzeDocument(c.Request.Context(), doc.ID)
	if err != nil {
		if errors.Is(err, service.ErrNoClauses) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NO_CLAUSES",
					"message": "No clauses found for this document",
				},
			})
			return
		}
		log.Printf("Failed to analyze document %s: %v", doc.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to analyze document",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    results,
	})
}

// ExportReport handles GET /api/documents/:id/export
func (h *DocumentHandler) ExportReport(c *gin.Context) {
	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}

	clauses, err := h.clauseRepo.ListByDocument(c.Request.Context(), doc.ID)
	if err != nil {
		log.Printf("Failed to list clauses for export of %s: %v", doc.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to export report",
			},
		})
		return
	}

	riskCounts := map[string]int{
		models.RiskHigh:   0,
		models.RiskMedium: 0,
		models.RiskLow:    0,
	}
	for _, clause := range clauses {
		if _, ok := riskCounts[clause.RiskLevel]; ok {
			riskCounts[clause.RiskLevel]++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"document": gin.H{
				"filename":    doc.Filename,
				"page_count":  doc.PageCount,
				"uploaded_by": doc.UploadedBy,
				"created_at":  doc.CreatedAt,
				"is_analyzed": doc.IsAnalyzed,
			},
			"summary": gin.H{
				"total_clauses":     len(clauses),
				"risk_distribution": riskCounts,
			},
			"clauses": clauses,
		},
	})
}

// DeleteDocument handles DELETE /api/documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}

	if err := h.docRepo.Delete(c.Request.Context(), doc.ID); err != nil {
		log.Printf("Failed to delete document %s: %v", doc.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to delete document",
			},
		})
		return
	}

	if doc.StoragePath != nil {
		if err := h.storage.Delete(c.Request.Context(), *doc.StoragePath); err != nil && !errors.Is(err, storage.ErrNotExist) {
			log.Printf("Failed to delete blob %s: %v", *doc.StoragePath, err)
		}
	}

	c.Status(http.StatusNoContent)
}

// UploadPDF handles POST /api/documents/:id/pdf
func (h *DocumentHandler) UploadPDF(c *gin.Context) {
	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "File is required",
			},
		})
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_TYPE",
				"message": "Only PDF files are accepted",
			},
		})
		return
	}
	if fileHeader.Size > maxPDFSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_TOO_LARGE",
				"message": fmt.Sprintf("File size exceeds maximum of %d bytes", int64(maxPDFSize)),
			},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_OPEN_ERROR",
				"message": err.Error(),
			},
		})
		return
	}
	defer file.Close()

	key := fmt.Sprintf("documents/%s.pdf", doc.ID)
	if err := h.storage.Put(c.Request.Context(), key, file); err != nil {
		log.Printf("Failed to store PDF for document %s: %v", doc.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STORAGE_ERROR",
				"message": "Failed to store file",
			},
		})
		return
	}

	if err := h.docRepo.UpdateStoragePath(c.Request.Context(), doc.ID, key); err != nil {
		log.Printf("Failed to record storage path for document %s: %v", doc.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to record file location",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"doc_id":       doc.ID,
			"storage_path": key,
		},
	})
}

// GetPDF handles GET /api/documents/:id/pdf
func (h *DocumentHandler) GetPDF(c *gin.Context) {
	doc, ok := h.ownedDocument(c)
	if !ok {
		return
	}
	if doc.StoragePath == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "No file stored for this document",
			},
		})
		return
	}

	rc, err := h.storage.Get(c.Request.Context(), *doc.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Stored file is missing",
				},
			})
			return
		}
		log.Printf("Failed to read PDF for document %s: %v", doc.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STORAGE_ERROR",
				"message": "Failed to read file",
			},
		})
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.Filename))
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		log.Printf("Failed to stream PDF for document %s: %v", doc.ID, err)
	}
}

// ownedDocument loads the :id document and enforces ownership. On failure it
// writes the error response and returns ok=false.
func (h *DocumentHandler) ownedDocument(c *gin.Context) (*models.Document, bool) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_DOCUMENT_ID",
				"message": "Invalid document id format",
			},
		})
		return nil, false
	}

	doc, err := h.docRepo.GetByID(c.Request.Context(), docID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Document not found",
				},
			})
			return nil, false
		}
		log.Printf("Failed to load document %s: %v", docID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to load document",
			},
		})
		return nil, false
	}

	if doc.UploadedBy != currentUsername(c) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Not your document",
			},
		})
		return nil, false
	}

	return doc, true
}
