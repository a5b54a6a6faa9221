package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CraEntry is one line of a CRA. It is attached to its CRA and optional
// mission through join rows rather than foreign key columns.
type CraEntry struct {
	ID          uint64          `gorm:"primarykey" json:"id"`
	Date        time.Time       `gorm:"type:date;not null;index" json:"date"`
	Quantity    decimal.Decimal `gorm:"type:decimal(6,2);not null" json:"quantity"`
	UnitPrice   int64           `gorm:"not null" json:"unit_price"`
	Description string          `gorm:"type:varchar(500)" json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relations
	CraLink     *CraEntryCra     `gorm:"foreignKey:CraEntryID" json:"-"`
	MissionLink *CraEntryMission `gorm:"foreignKey:CraEntryID" json:"-"`
}

// LineTotal returns quantity * unit price in cents, rounded half away from zero.
func (e *CraEntry) LineTotal() int64 {
	return e.Quantity.Mul(decimal.NewFromInt(e.UnitPrice)).Round(0).IntPart()
}

// MissionID returns the linked mission ID, if any.
func (e *CraEntry) MissionID() *uint64 {
	if e.MissionLink == nil {
		return nil
	}
	id := e.MissionLink.MissionID
	return &id
}

// DateKey is the calendar day used for duplicate detection.
func (e *CraEntry) DateKey() string {
	return e.Date.Format("2006-01-02")
}

type CraEntryCra struct {
	CraEntryID uint64    `gorm:"primarykey" json:"cra_entry_id"`
	CraID      uint64    `gorm:"not null;index" json:"cra_id"`
	CreatedAt  time.Time `json:"created_at"`

	// Relations
	Cra Cra `gorm:"foreignKey:CraID" json:"-"`
}

type CraEntryMission struct {
	CraEntryID uint64    `gorm:"primarykey" json:"cra_entry_id"`
	MissionID  uint64    `gorm:"not null;index" json:"mission_id"`
	CreatedAt  time.Time `json:"created_at"`

	// Relations
	Mission Mission `gorm:"foreignKey:MissionID" json:"-"`
}
