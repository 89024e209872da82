package handlers

import (
	"net/http"

	"avokati-backend/service"

	"github.com/gin-gonic/gin"
)

// ImportHandler handles bulk import from the configured library source
type ImportHandler struct {
	importer *service.ImporterService
}

// NewImportHandler creates a new import handler
func NewImportHandler(importer *service.ImporterService) *ImportHandler {
	return &ImportHandler{importer: importer}
}

// ListLibrary handles GET /api/library
func (h *ImportHandler) ListLibrary(c *gin.Context) {
	objects, err := h.importer.ListLibrary(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "LIBRARY_UNAVAILABLE", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"files": objects},
	})
}

type importRequest struct {
	Names []string `json:"names" binding:"required"`
}

// Import handles POST /api/library/import
func (h *ImportHandler) Import(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	result, err := h.importer.Import(c.Request.Context(), req.Names)
	if err != nil {
		errorResponse(c, http.StatusBadGateway, "IMPORT_FAILED", err.Error())
		return
	}

	status := http.StatusCreated
	if len(result.Added) == 0 {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"success": len(result.Added) > 0,
		"data":    result,
	})
}
