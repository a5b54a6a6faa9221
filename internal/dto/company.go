package dto

import (
	"time"

	"github.com/yukikurage/foresy-api/internal/models"
)

// CompanyDTO represents a company in API responses
type CompanyDTO struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Siret     string    `json:"siret,omitempty"`
	Siren     string    `json:"siren,omitempty"`
	Country   string    `json:"country"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// CompanyWithRoleDTO represents a company with the user's role
type CompanyWithRoleDTO struct {
	CompanyDTO
	Role models.CompanyRole `json:"role"`
}

// ToCompanyDTO converts a Company model to CompanyDTO
func ToCompanyDTO(company models.Company) CompanyDTO {
	return CompanyDTO{
		ID:        company.ID,
		Name:      company.Name,
		Siret:     company.Siret,
		Siren:     company.Siren,
		Country:   company.Country,
		Currency:  company.Currency,
		CreatedAt: company.CreatedAt,
	}
}

// ToCompanyWithRoleDTO converts a user company link to DTO with role
func ToCompanyWithRoleDTO(link models.UserCompany) CompanyWithRoleDTO {
	return CompanyWithRoleDTO{
		CompanyDTO: ToCompanyDTO(link.Company),
		Role:       link.Role,
	}
}

// ToCompanyWithRoleDTOs converts a list of user company links
func ToCompanyWithRoleDTOs(links []models.UserCompany) []CompanyWithRoleDTO {
	result := make([]CompanyWithRoleDTO, len(links))
	for i, link := range links {
		result[i] = ToCompanyWithRoleDTO(link)
	}
	return result
}
