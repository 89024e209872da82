package handlers

import (
	"io"
	"net/http"

	"avokati-backend/models"
	"avokati-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentHandler handles HTTP requests for the document library
type DocumentHandler struct {
	docs *service.DocumentService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(docs *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// Upload handles POST /api/documents (multipart, field "files",
// optional field "category" defaulting to law)
func (h *DocumentHandler) Upload(c *gin.Context) {
	category := models.Category(c.PostForm("category"))
	if category == "" {
		category = models.CategoryLaw
	}
	if !category.Valid() {
		errorResponse(c, http.StatusBadRequest, "INVALID_CATEGORY",
			"Category must be 'case' or 'law'")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_FORM", err.Error())
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		errorResponse(c, http.StatusBadRequest, "MISSING_FILE", "At least one file is required")
		return
	}

	var uploads []service.Upload
	var unreadable []service.IngestError
	for _, header := range fileHeaders {
		file, err := header.Open()
		if err != nil {
			unreadable = append(unreadable, service.IngestError{
				Name: header.Filename, Reason: "Leximi i skedarit dështoi.",
			})
			continue
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			unreadable = append(unreadable, service.IngestError{
				Name: header.Filename, Reason: "Leximi i skedarit dështoi.",
			})
			continue
		}
		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/pdf"
		}
		uploads = append(uploads, service.Upload{
			Name:     header.Filename,
			MimeType: mimeType,
			Content:  content,
			Category: category,
		})
	}

	result, err := h.docs.Ingest(c.Request.Context(), uploads)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INGEST_FAILED", err.Error())
		return
	}
	result.Rejected = append(result.Rejected, unreadable...)

	status := http.StatusCreated
	if len(result.Added) == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{
		"success": len(result.Added) > 0,
		"data":    result,
	})
}

// List handles GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"documents": h.docs.List(),
			"usage":     h.docs.Usage(),
		},
	})
}

// Usage handles GET /api/documents/usage
func (h *DocumentHandler) Usage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.docs.Usage(),
	})
}

// Toggle handles POST /api/documents/:id/toggle
func (h *DocumentHandler) Toggle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "Invalid document ID format")
		return
	}

	doc, err := h.docs.Toggle(c.Request.Context(), id)
	if err != nil {
		errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Document not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": doc})
}

type toggleAllRequest struct {
	IDs    []uuid.UUID `json:"ids" binding:"required"`
	Active bool        `json:"active"`
}

// ToggleAll handles POST /api/documents/toggle, the bulk select-all /
// select-none operation scoped to the caller's filtered view
func (h *DocumentHandler) ToggleAll(c *gin.Context) {
	var req toggleAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	h.docs.ToggleAll(c.Request.Context(), req.IDs, req.Active)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete handles DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "Invalid document ID format")
		return
	}

	if err := h.docs.Delete(c.Request.Context(), id); err != nil {
		errorResponse(c, http.StatusNotFound, "NOT_FOUND", "Document not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
