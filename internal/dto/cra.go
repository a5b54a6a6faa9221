package dto

import (
	"time"

	"github.com/yukikurage/foresy-api/internal/models"
	"github.com/yukikurage/foresy-api/internal/services"
	"github.com/yukikurage/foresy-api/internal/utils"
)

// CraDTO represents a CRA in API responses
type CraDTO struct {
	ID              uint64           `json:"id"`
	Month           int              `json:"month"`
	Year            int              `json:"year"`
	Status          models.CraStatus `json:"status"`
	Description     string           `json:"description"`
	TotalDays       string           `json:"total_days"`
	TotalAmount     int64            `json:"total_amount"`
	Currency        string           `json:"currency"`
	CreatedByUserID uint64           `json:"created_by_user_id"`
	SubmittedAt     *time.Time       `json:"submitted_at"`
	LockedAt        *time.Time       `json:"locked_at"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CraListResponse represents a paginated list of CRAs
type CraListResponse struct {
	Cras       []CraDTO                 `json:"cras"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// CraEntryDTO represents a CRA entry in API responses
type CraEntryDTO struct {
	ID          uint64    `json:"id"`
	Date        string    `json:"date"`
	Quantity    string    `json:"quantity"`
	UnitPrice   int64     `json:"unit_price"`
	LineTotal   int64     `json:"line_total"`
	Description string    `json:"description"`
	MissionID   *uint64   `json:"mission_id"`
	MissionName string    `json:"mission_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CraEntryResponse is returned by entry writes, with the recalculated CRA
type CraEntryResponse struct {
	Entry CraEntryDTO `json:"entry"`
	Cra   CraDTO      `json:"cra"`
}

// CraEntryListResponse represents a paginated list of entries
type CraEntryListResponse struct {
	Entries    []CraEntryDTO            `json:"entries"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// SuggestedEntryDTO is a draft entry proposed from free text
type SuggestedEntryDTO struct {
	Date        string `json:"date"`
	Quantity    string `json:"quantity"`
	Description string `json:"description"`
}

// ToCraDTO converts a Cra model to CraDTO
func ToCraDTO(cra models.Cra) CraDTO {
	return CraDTO{
		ID:              cra.ID,
		Month:           cra.Month,
		Year:            cra.Year,
		Status:          cra.Status,
		Description:     cra.Description,
		TotalDays:       cra.TotalDays.StringFixed(2),
		TotalAmount:     cra.TotalAmount,
		Currency:        cra.Currency,
		CreatedByUserID: cra.CreatedByUserID,
		SubmittedAt:     cra.SubmittedAt,
		LockedAt:        cra.LockedAt,
		CreatedAt:       cra.CreatedAt,
		UpdatedAt:       cra.UpdatedAt,
	}
}

// ToCraDTOs converts a list of CRAs
func ToCraDTOs(cras []models.Cra) []CraDTO {
	result := make([]CraDTO, len(cras))
	for i, cra := range cras {
		result[i] = ToCraDTO(cra)
	}
	return result
}

// ToCraEntryDTO converts a CraEntry model to CraEntryDTO
func ToCraEntryDTO(entry models.CraEntry) CraEntryDTO {
	dto := CraEntryDTO{
		ID:          entry.ID,
		Date:        entry.DateKey(),
		Quantity:    entry.Quantity.StringFixed(2),
		UnitPrice:   entry.UnitPrice,
		LineTotal:   entry.LineTotal(),
		Description: entry.Description,
		MissionID:   entry.MissionID(),
		CreatedAt:   entry.CreatedAt,
		UpdatedAt:   entry.UpdatedAt,
	}
	if entry.MissionLink != nil {
		dto.MissionName = entry.MissionLink.Mission.Name
	}
	return dto
}

// ToCraEntryDTOs converts a list of entries
func ToCraEntryDTOs(entries []models.CraEntry) []CraEntryDTO {
	result := make([]CraEntryDTO, len(entries))
	for i, entry := range entries {
		result[i] = ToCraEntryDTO(entry)
	}
	return result
}

// ToCraEntryResponse converts an entry write result
func ToCraEntryResponse(result *services.EntryResult) CraEntryResponse {
	return CraEntryResponse{
		Entry: ToCraEntryDTO(*result.Entry),
		Cra:   ToCraDTO(*result.Cra),
	}
}

// ToSuggestedEntryDTOs converts suggestions
func ToSuggestedEntryDTOs(suggestions []services.SuggestedEntry) []SuggestedEntryDTO {
	result := make([]SuggestedEntryDTO, len(suggestions))
	for i, s := range suggestions {
		result[i] = SuggestedEntryDTO{
			Date:        s.Date.Format("2006-01-02"),
			Quantity:    s.Quantity.StringFixed(2),
			Description: s.Description,
		}
	}
	return result
}
