package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/foresy-api/internal/dto"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"github.com/yukikurage/foresy-api/internal/middleware"
	"github.com/yukikurage/foresy-api/internal/models"
	"github.com/yukikurage/foresy-api/internal/services"
	"github.com/yukikurage/foresy-api/internal/utils"
)

// MissionHandler handles mission related requests
type MissionHandler struct {
	missionService *services.MissionService
	log            logrus.FieldLogger
}

// NewMissionHandler creates a new MissionHandler
func NewMissionHandler(missionService *services.MissionService, log logrus.FieldLogger) *MissionHandler {
	return &MissionHandler{
		missionService: missionService,
		log:            log,
	}
}

// ListMissions lists missions visible to the current user
func (h *MissionHandler) ListMissions(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListMissionsInput{
		ActorID:  userID,
		Page:     params.Page,
		PageSize: params.Limit,
	}
	if status := c.Query("status"); status != "" {
		s := models.MissionStatus(status)
		input.Status = &s
	}

	missions, total, err := h.missionService.ListMissions(c.Request.Context(), input)
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.MissionListResponse{
		Missions:   dto.ToMissionDTOs(missions),
		Pagination: utils.NewPaginationResponse(params, total),
	})
}

// CreateMission creates a mission for the current user's independent company
func (h *MissionHandler) CreateMission(c *gin.Context) {
	type CreateMissionRequest struct {
		Name            string               `json:"name"`
		Description     string               `json:"description"`
		MissionType     models.MissionType   `json:"mission_type"`
		Status          models.MissionStatus `json:"status"`
		StartDate       *string              `json:"start_date"`
		EndDate         *string              `json:"end_date"`
		DailyRate       *int64               `json:"daily_rate"`
		FixedPrice      *int64               `json:"fixed_price"`
		Currency        string               `json:"currency"`
		ClientCompanyID *uint64              `json:"client_company_id"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req CreateMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		apierrors.BadRequest(c, "Invalid start_date, expected YYYY-MM-DD")
		return
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		apierrors.BadRequest(c, "Invalid end_date, expected YYYY-MM-DD")
		return
	}

	mission, err := h.missionService.CreateMission(c.Request.Context(), services.CreateMissionInput{
		ActorID:         userID,
		Name:            req.Name,
		Description:     req.Description,
		MissionType:     req.MissionType,
		Status:          req.Status,
		StartDate:       startDate,
		EndDate:         endDate,
		DailyRate:       req.DailyRate,
		FixedPrice:      req.FixedPrice,
		Currency:        req.Currency,
		ClientCompanyID: req.ClientCompanyID,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMissionDTO(*mission))
}

// GetMission returns a mission visible to the current user
func (h *MissionHandler) GetMission(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	missionID, ok := parseIDParam(c, "id")
	if !ok {
		apierrors.BadRequest(c, "Invalid mission ID")
		return
	}

	mission, err := h.missionService.GetMission(c.Request.Context(), userID, missionID)
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMissionDTO(*mission))
}

// UpdateMission applies a partial update, including status transitions
func (h *MissionHandler) UpdateMission(c *gin.Context) {
	type UpdateMissionRequest struct {
		Name        *string               `json:"name"`
		Description *string               `json:"description"`
		StartDate   *string               `json:"start_date"`
		EndDate     *string               `json:"end_date"`
		DailyRate   *int64                `json:"daily_rate"`
		FixedPrice  *int64                `json:"fixed_price"`
		Currency    *string               `json:"currency"`
		Status      *models.MissionStatus `json:"status"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	missionID, ok := parseIDParam(c, "id")
	if !ok {
		apierrors.BadRequest(c, "Invalid mission ID")
		return
	}

	var req UpdateMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		apierrors.BadRequest(c, "Invalid start_date, expected YYYY-MM-DD")
		return
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		apierrors.BadRequest(c, "Invalid end_date, expected YYYY-MM-DD")
		return
	}

	mission, err := h.missionService.UpdateMission(c.Request.Context(), userID, missionID, services.UpdateMissionInput{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   startDate,
		EndDate:     endDate,
		DailyRate:   req.DailyRate,
		FixedPrice:  req.FixedPrice,
		Currency:    req.Currency,
		Status:      req.Status,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMissionDTO(*mission))
}

// ArchiveMission soft deletes a mission that no live CRA entry references
func (h *MissionHandler) ArchiveMission(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	missionID, ok := parseIDParam(c, "id")
	if !ok {
		apierrors.BadRequest(c, "Invalid mission ID")
		return
	}

	if err := h.missionService.ArchiveMission(c.Request.Context(), userID, missionID); err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}
