// Package handlers exposes the brief bank over HTTP.
package handlers

import (
	"errors"
	"net/http"

	"github.com/willimj3/brief-bank-tool/service"
	"github.com/willimj3/brief-bank-tool/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BriefHandler handles HTTP requests for briefs and search
type BriefHandler struct {
	briefService *service.BriefService
}

// NewBriefHandler creates a new brief handler
func NewBriefHandler(briefService *service.BriefService) *BriefHandler {
	return &BriefHandler{briefService: briefService}
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

// IngestBrief handles POST /api/briefs
func (h *BriefHandler) IngestBrief(c *gin.Context) {
	var req service.IngestBriefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	brief, err := h.briefService.IngestBrief(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSections), errors.Is(err, service.ErrMissingFilename):
			errorResponse(c, http.StatusBadRequest, "INVALID_BRIEF", err.Error())
		default:
			errorResponse(c, http.StatusInternalServerError, "INGEST_FAILED", err.Error())
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    brief,
	})
}

// ListBriefs handles GET /api/briefs
func (h *BriefHandler) ListBriefs(c *gin.Context) {
	briefs, err := h.briefService.ListBriefs(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "LIST_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    briefs,
	})
}

// GetBrief handles GET /api/briefs/:id
func (h *BriefHandler) GetBrief(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_BRIEF_ID", "Invalid brief ID format")
		return
	}

	brief, sections, chunkCount, err := h.briefService.GetBrief(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrBriefNotFound) {
			errorResponse(c, http.StatusNotFound, "BRIEF_NOT_FOUND", "Brief not found")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "GET_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"brief":       brief,
			"sections":    sections,
			"chunk_count": chunkCount,
		},
	})
}

// DeleteBrief handles DELETE /api/briefs/:id
func (h *BriefHandler) DeleteBrief(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_BRIEF_ID", "Invalid brief ID format")
		return
	}

	if err := h.briefService.DeleteBrief(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrBriefNotFound) {
			errorResponse(c, http.StatusNotFound, "BRIEF_NOT_FOUND", "Brief not found")
			return
		}
		errorResponse(c, http.StatusInternalServerError, "DELETE_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":      id,
			"deleted": true,
		},
	})
}

// Search handles POST /api/search
func (h *BriefHandler) Search(c *gin.Context) {
	var req service.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	results, err := h.briefService.Search(c.Request.Context(), req)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "SEARCH_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    results,
	})
}
