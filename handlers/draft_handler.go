package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/willimj3/brief-bank-tool/models"
	"github.com/willimj3/brief-bank-tool/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DraftHandler handles HTTP requests for drafts
type DraftHandler struct {
	draftService *service.DraftService
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(draftService *service.DraftService) *DraftHandler {
	return &DraftHandler{draftService: draftService}
}

// CreateDraft handles POST /api/drafts
func (h *DraftHandler) CreateDraft(c *gin.Context) {
	var matter models.Matter
	if err := c.ShouldBindJSON(&matter); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	draft, err := h.draftService.CreateDraft(c.Request.Context(), matter)
	if err != nil {
		if errors.Is(err, service.ErrNoLegalIssues) {
			errorResponse(c, http.StatusBadRequest, "INVALID_MATTER", err.Error())
			return
		}
		errorResponse(c, http.StatusInternalServerError, "CREATE_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    draft,
	})
}

// GetDraft handles GET /api/drafts/:id
func (h *DraftHandler) GetDraft(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}

	draft, err := h.draftService.GetDraft(c.Request.Context(), draftID)
	if err != nil {
		h.draftError(c, err)
		return
	}

	sections, err := h.draftService.GeneratedSections(c.Request.Context(), draftID)
	if err != nil {
		h.draftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"draft":    draft,
			"sections": sections,
		},
	})
}

// UpdateOutline handles PUT /api/drafts/:id/outline
func (h *DraftHandler) UpdateOutline(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}

	var req struct {
		Sections []service.OutlineSectionUpdate `json:"sections" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	draft, err := h.draftService.UpdateOutline(c.Request.Context(), draftID, req.Sections)
	if err != nil {
		h.draftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    draft,
	})
}

// GenerateSection handles POST /api/drafts/:id/generate/:sectionId
func (h *DraftHandler) GenerateSection(c *gin.Context) {
	h.generate(c, h.draftService.GenerateSection)
}

// RegenerateSection handles POST /api/drafts/:id/regenerate/:sectionId
func (h *DraftHandler) RegenerateSection(c *gin.Context) {
	h.generate(c, h.draftService.RegenerateSection)
}

func (h *DraftHandler) generate(c *gin.Context, fn func(ctx context.Context, draftID, sectionID uuid.UUID) (*models.GeneratedSection, error)) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	sectionID, err := uuid.Parse(c.Param("sectionId"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_SECTION_ID", "Invalid section ID format")
		return
	}

	section, err := fn(c.Request.Context(), draftID, sectionID)
	if err != nil {
		h.draftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    section,
	})
}

// GenerateAll handles POST /api/drafts/:id/generate-all
func (h *DraftHandler) GenerateAll(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}

	result, err := h.draftService.GenerateAll(c.Request.Context(), draftID)
	if err != nil {
		if result != nil && (len(result.Generated) > 0 || len(result.Skipped) > 0) {
			// Surface partial progress alongside the failure.
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "GENERATION_FAILED",
					"message": err.Error(),
				},
				"data": gin.H{
					"generated":      result.Generated,
					"skipped":        result.Skipped,
					"failed_section": result.Failed,
				},
			})
			return
		}
		h.draftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"generated": result.Generated,
			"skipped":   result.Skipped,
		},
	})
}

// ExportDraft handles POST /api/drafts/:id/export
func (h *DraftHandler) ExportDraft(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}

	result, err := h.draftService.ExportDraft(c.Request.Context(), draftID)
	if err != nil {
		h.draftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

func (h *DraftHandler) draftID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_DRAFT_ID", "Invalid draft ID format")
		return uuid.Nil, false
	}
	return id, true
}

// draftError maps service errors to HTTP status codes.
func (h *DraftHandler) draftError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDraftNotFound):
		errorResponse(c, http.StatusNotFound, "DRAFT_NOT_FOUND", "Draft not found")
	case errors.Is(err, service.ErrSectionNotFound):
		errorResponse(c, http.StatusNotFound, "SECTION_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrSectionAlreadyGenerated):
		errorResponse(c, http.StatusConflict, "ALREADY_GENERATED", err.Error())
	case errors.Is(err, service.ErrGenerationInFlight):
		errorResponse(c, http.StatusConflict, "GENERATION_IN_FLIGHT", err.Error())
	case errors.Is(err, service.ErrOutlineLocked):
		errorResponse(c, http.StatusConflict, "OUTLINE_LOCKED", err.Error())
	case errors.Is(err, service.ErrDraftNotReady):
		errorResponse(c, http.StatusPreconditionFailed, "DRAFT_NOT_READY", err.Error())
	default:
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
