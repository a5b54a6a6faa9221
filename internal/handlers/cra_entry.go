package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/foresy-api/internal/dto"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"github.com/yukikurage/foresy-api/internal/middleware"
	"github.com/yukikurage/foresy-api/internal/services"
	"github.com/yukikurage/foresy-api/internal/utils"
)

// CraEntryHandler handles the entries of a CRA
type CraEntryHandler struct {
	entryService      *services.CraEntryService
	suggestionService *services.SuggestionService
	log               logrus.FieldLogger
}

// NewCraEntryHandler creates a new CraEntryHandler
func NewCraEntryHandler(entryService *services.CraEntryService, suggestionService *services.SuggestionService, log logrus.FieldLogger) *CraEntryHandler {
	return &CraEntryHandler{
		entryService:      entryService,
		suggestionService: suggestionService,
		log:               log,
	}
}

// ListEntries lists the live entries of the CRA
func (h *CraEntryHandler) ListEntries(c *gin.Context) {
	userID, craID, ok := craContext(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	entries, total, err := h.entryService.ListEntries(c.Request.Context(), userID, craID, params.Page, params.Limit)
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.CraEntryListResponse{
		Entries:    dto.ToCraEntryDTOs(entries),
		Pagination: utils.NewPaginationResponse(params, total),
	})
}

// CreateEntry adds an entry and returns it with the recalculated CRA.
// quantity accepts a JSON number or a decimal string.
func (h *CraEntryHandler) CreateEntry(c *gin.Context) {
	type CreateEntryRequest struct {
		Date        *string          `json:"date"`
		Quantity    *decimal.Decimal `json:"quantity"`
		UnitPrice   *int64           `json:"unit_price"`
		Description string           `json:"description"`
		MissionID   *uint64          `json:"mission_id"`
	}

	userID, craID, ok := craContext(c)
	if !ok {
		return
	}

	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		apierrors.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	result, err := h.entryService.CreateEntry(c.Request.Context(), services.CreateEntryInput{
		ActorID:     userID,
		CraID:       craID,
		Date:        date,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Description: req.Description,
		MissionID:   req.MissionID,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCraEntryResponse(result))
}

// GetEntry returns the entry loaded by the access middleware
func (h *CraEntryHandler) GetEntry(c *gin.Context) {
	entry, ok := middleware.GetCraEntry(c)
	if !ok {
		apierrors.NotFound(c, "CRA entry not found")
		return
	}

	c.JSON(http.StatusOK, dto.ToCraEntryDTO(*entry))
}

// UpdateEntry applies a partial update to an entry
func (h *CraEntryHandler) UpdateEntry(c *gin.Context) {
	type UpdateEntryRequest struct {
		Date        *string          `json:"date"`
		Quantity    *decimal.Decimal `json:"quantity"`
		UnitPrice   *int64           `json:"unit_price"`
		Description *string          `json:"description"`
	}

	userID, craID, ok := craContext(c)
	if !ok {
		return
	}
	entry, ok := middleware.GetCraEntry(c)
	if !ok {
		apierrors.NotFound(c, "CRA entry not found")
		return
	}

	var req UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		apierrors.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	result, err := h.entryService.UpdateEntry(c.Request.Context(), userID, craID, entry.ID, services.UpdateEntryInput{
		Date:        date,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Description: req.Description,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCraEntryResponse(result))
}

// DeleteEntry soft deletes an entry and returns the recalculated CRA
func (h *CraEntryHandler) DeleteEntry(c *gin.Context) {
	userID, craID, ok := craContext(c)
	if !ok {
		return
	}
	entry, ok := middleware.GetCraEntry(c)
	if !ok {
		apierrors.NotFound(c, "CRA entry not found")
		return
	}

	cra, err := h.entryService.DeleteEntry(c.Request.Context(), userID, craID, entry.ID)
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cra": dto.ToCraDTO(*cra)})
}

// SuggestEntries proposes entries from a free text description of the month
func (h *CraEntryHandler) SuggestEntries(c *gin.Context) {
	type SuggestRequest struct {
		Text string `json:"text"`
	}

	userID, craID, ok := craContext(c)
	if !ok {
		return
	}

	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	suggestions, err := h.suggestionService.SuggestEntries(c.Request.Context(), userID, craID, req.Text)
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": dto.ToSuggestedEntryDTOs(suggestions)})
}
