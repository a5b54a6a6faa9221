package dto

import (
	"time"

	"github.com/yukikurage/foresy-api/internal/models"
	"github.com/yukikurage/foresy-api/internal/utils"
)

// MissionCompanyDTO represents a company linked to a mission
type MissionCompanyDTO struct {
	CompanyID uint64             `json:"company_id"`
	Name      string             `json:"name"`
	Role      models.CompanyRole `json:"role"`
}

// MissionDTO represents a mission in API responses
type MissionDTO struct {
	ID              uint64               `json:"id"`
	Name            string               `json:"name"`
	Description     string               `json:"description"`
	MissionType     models.MissionType   `json:"mission_type"`
	Status          models.MissionStatus `json:"status"`
	StartDate       string               `json:"start_date"`
	EndDate         *string              `json:"end_date"`
	DailyRate       *int64               `json:"daily_rate"`
	FixedPrice      *int64               `json:"fixed_price"`
	Currency        string               `json:"currency"`
	CreatedByUserID uint64               `json:"created_by_user_id"`
	Companies       []MissionCompanyDTO  `json:"companies"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// MissionListResponse represents a paginated list of missions
type MissionListResponse struct {
	Missions   []MissionDTO             `json:"missions"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToMissionDTO converts a Mission model to MissionDTO
func ToMissionDTO(mission models.Mission) MissionDTO {
	dto := MissionDTO{
		ID:              mission.ID,
		Name:            mission.Name,
		Description:     mission.Description,
		MissionType:     mission.MissionType,
		Status:          mission.Status,
		StartDate:       formatDate(mission.StartDate),
		DailyRate:       mission.DailyRate,
		FixedPrice:      mission.FixedPrice,
		Currency:        mission.Currency,
		CreatedByUserID: mission.CreatedByUserID,
		Companies:       make([]MissionCompanyDTO, 0, len(mission.Companies)),
		CreatedAt:       mission.CreatedAt,
		UpdatedAt:       mission.UpdatedAt,
	}
	if mission.EndDate != nil {
		end := formatDate(*mission.EndDate)
		dto.EndDate = &end
	}
	for _, link := range mission.Companies {
		dto.Companies = append(dto.Companies, MissionCompanyDTO{
			CompanyID: link.CompanyID,
			Name:      link.Company.Name,
			Role:      link.Role,
		})
	}
	return dto
}

// ToMissionDTOs converts a list of missions
func ToMissionDTOs(missions []models.Mission) []MissionDTO {
	result := make([]MissionDTO, len(missions))
	for i, mission := range missions {
		result[i] = ToMissionDTO(mission)
	}
	return result
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
