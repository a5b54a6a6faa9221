package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/foresy-api/internal/dto"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"github.com/yukikurage/foresy-api/internal/middleware"
	"github.com/yukikurage/foresy-api/internal/services"
	"github.com/yukikurage/foresy-api/internal/utils"
)

// CraHandler handles CRA lifecycle requests. Routes with an :id run behind
// middleware.RequireCraAccess.
type CraHandler struct {
	craService    *services.CraService
	exportService *services.ExportService
	log           logrus.FieldLogger
}

// NewCraHandler creates a new CraHandler
func NewCraHandler(craService *services.CraService, exportService *services.ExportService, log logrus.FieldLogger) *CraHandler {
	return &CraHandler{
		craService:    craService,
		exportService: exportService,
		log:           log,
	}
}

// ListCras lists the current user's CRAs filtered by year, month and status
func (h *CraHandler) ListCras(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)
	cras, total, err := h.craService.ListCras(c.Request.Context(), services.ListCrasQuery{
		ActorID:  userID,
		Year:     c.Query("year"),
		Month:    c.Query("month"),
		Status:   c.Query("status"),
		Page:     params.Page,
		PageSize: params.Limit,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.CraListResponse{
		Cras:       dto.ToCraDTOs(cras),
		Pagination: utils.NewPaginationResponse(params, total),
	})
}

// CreateCra creates a draft CRA
func (h *CraHandler) CreateCra(c *gin.Context) {
	type CreateCraRequest struct {
		Month       int    `json:"month"`
		Year        int    `json:"year"`
		Description string `json:"description"`
		Currency    string `json:"currency"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req CreateCraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	cra, err := h.craService.CreateCra(c.Request.Context(), services.CreateCraInput{
		ActorID:     userID,
		Month:       req.Month,
		Year:        req.Year,
		Description: req.Description,
		Currency:    req.Currency,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCraDTO(*cra))
}

// GetCra returns the CRA loaded by the access middleware
func (h *CraHandler) GetCra(c *gin.Context) {
	cra, ok := middleware.GetCra(c)
	if !ok {
		apierrors.NotFound(c, "CRA not found")
		return
	}

	c.JSON(http.StatusOK, dto.ToCraDTO(*cra))
}

// UpdateCra updates the description or currency of a draft CRA
func (h *CraHandler) UpdateCra(c *gin.Context) {
	type UpdateCraRequest struct {
		Description *string `json:"description"`
		Currency    *string `json:"currency"`
	}

	userID, craID, ok := craContext(c)
	if !ok {
		return
	}

	var req UpdateCraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.craService.UpdateCra(c.Request.Context(), userID, craID, services.UpdateCraInput{
		Description: req.Description,
		Currency:    req.Currency,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCraDTO(*updated))
}

// DeleteCra soft deletes a draft CRA
func (h *CraHandler) DeleteCra(c *gin.Context) {
	userID, craID, ok := craContext(c)
	if !ok {
		return
	}

	if err := h.craService.DeleteCra(c.Request.Context(), userID, craID); err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SubmitCra moves a draft CRA to submitted
func (h *CraHandler) SubmitCra(c *gin.Context) {
	userID, craID, ok := craContext(c)
	if !ok {
		return
	}

	submitted, err := h.craService.SubmitCra(c.Request.Context(), userID, craID)
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCraDTO(*submitted))
}

// LockCra moves a submitted CRA to locked
func (h *CraHandler) LockCra(c *gin.Context) {
	userID, craID, ok := craContext(c)
	if !ok {
		return
	}

	locked, err := h.craService.LockCra(c.Request.Context(), userID, craID)
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCraDTO(*locked))
}

// ExportCra sends the CRA as a downloadable document
func (h *CraHandler) ExportCra(c *gin.Context) {
	userID, craID, ok := craContext(c)
	if !ok {
		return
	}

	result, err := h.exportService.ExportCra(c.Request.Context(), services.ExportInput{
		ActorID:        userID,
		CraID:          craID,
		Format:         c.DefaultQuery("export_format", services.ExportFormatCSV),
		IncludeEntries: c.Query("include_entries"),
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Body)
}
