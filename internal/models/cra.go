package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CraStatus string

const (
	CraStatusDraft     CraStatus = "draft"
	CraStatusSubmitted CraStatus = "submitted"
	CraStatusLocked    CraStatus = "locked"
)

var craTransitions = map[CraStatus]CraStatus{
	CraStatusDraft:     CraStatusSubmitted,
	CraStatusSubmitted: CraStatusLocked,
}

// Valid reports whether s is a known CRA status.
func (s CraStatus) Valid() bool {
	return s == CraStatusDraft || s == CraStatusSubmitted || s == CraStatusLocked
}

// CanTransitionTo reports whether next directly follows s. Locked is terminal.
func (s CraStatus) CanTransitionTo(next CraStatus) bool {
	allowed, ok := craTransitions[s]
	return ok && allowed == next
}

// Cra is a monthly activity report.
type Cra struct {
	ID              uint64          `gorm:"primarykey" json:"id"`
	Month           int             `gorm:"not null;index:idx_cras_period" json:"month"`
	Year            int             `gorm:"not null;index:idx_cras_period" json:"year"`
	Status          CraStatus       `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Description     string          `gorm:"type:text" json:"description"`
	TotalDays       decimal.Decimal `gorm:"type:decimal(8,2);not null;default:0" json:"total_days"`
	TotalAmount     int64           `gorm:"not null;default:0" json:"total_amount"`
	Currency        string          `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	CreatedByUserID uint64          `gorm:"not null;index" json:"created_by_user_id"`
	SubmittedAt     *time.Time      `json:"submitted_at"`
	LockedAt        *time.Time      `json:"locked_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// IsDraft reports whether entries may still be mutated.
func (c *Cra) IsDraft() bool {
	return c.Status == CraStatusDraft
}

// Contains reports whether date falls within the CRA's month.
func (c *Cra) Contains(date time.Time) bool {
	return date.Year() == c.Year && int(date.Month()) == c.Month
}

// RecalculateTotals sets TotalDays and TotalAmount from the given live entries.
func (c *Cra) RecalculateTotals(entries []CraEntry) {
	days := decimal.Zero
	var amount int64
	for _, entry := range entries {
		days = days.Add(entry.Quantity)
		amount += entry.LineTotal()
	}
	c.TotalDays = days
	c.TotalAmount = amount
}
