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
)

// CompanyHandler handles company related requests
type CompanyHandler struct {
	companyService *services.CompanyService
	log            logrus.FieldLogger
}

// NewCompanyHandler creates a new CompanyHandler
func NewCompanyHandler(companyService *services.CompanyService, log logrus.FieldLogger) *CompanyHandler {
	return &CompanyHandler{
		companyService: companyService,
		log:            log,
	}
}

// CreateCompany creates a company and links it to the current user
func (h *CompanyHandler) CreateCompany(c *gin.Context) {
	type CreateCompanyRequest struct {
		Name     string             `json:"name" binding:"required,max=255"`
		Siret    string             `json:"siret"`
		Siren    string             `json:"siren"`
		Country  string             `json:"country"`
		Currency string             `json:"currency"`
		Role     models.CompanyRole `json:"role"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	link, err := h.companyService.CreateCompany(c.Request.Context(), services.CreateCompanyInput{
		UserID:   userID,
		Name:     req.Name,
		Siret:    req.Siret,
		Siren:    req.Siren,
		Country:  req.Country,
		Currency: req.Currency,
		Role:     req.Role,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCompanyWithRoleDTO(*link))
}

// ListCompanies lists the companies of the current user
func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	links, err := h.companyService.ListCompaniesForUser(c.Request.Context(), userID)
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"companies": dto.ToCompanyWithRoleDTOs(links)})
}
