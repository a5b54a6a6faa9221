package models

import (
	"time"

	"gorm.io/gorm"
)

type MissionType string

const (
	MissionTypeTimeBased  MissionType = "time_based"
	MissionTypeFixedPrice MissionType = "fixed_price"
)

// Valid reports whether t is a known mission type.
func (t MissionType) Valid() bool {
	return t == MissionTypeTimeBased || t == MissionTypeFixedPrice
}

type MissionStatus string

const (
	MissionStatusLead       MissionStatus = "lead"
	MissionStatusPending    MissionStatus = "pending"
	MissionStatusWon        MissionStatus = "won"
	MissionStatusInProgress MissionStatus = "in_progress"
	MissionStatusCompleted  MissionStatus = "completed"
)

// missionTransitions is the adjacency table of the mission lifecycle.
// It is strictly linear; there are no backwards edges.
var missionTransitions = map[MissionStatus][]MissionStatus{
	MissionStatusLead:       {MissionStatusPending},
	MissionStatusPending:    {MissionStatusWon},
	MissionStatusWon:        {MissionStatusInProgress},
	MissionStatusInProgress: {MissionStatusCompleted},
	MissionStatusCompleted:  {},
}

// Valid reports whether s is a known mission status.
func (s MissionStatus) Valid() bool {
	_, ok := missionTransitions[s]
	return ok
}

// CanTransitionTo reports whether next directly follows s.
func (s MissionStatus) CanTransitionTo(next MissionStatus) bool {
	for _, allowed := range missionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Mission struct {
	ID              uint64         `gorm:"primarykey" json:"id"`
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`
	Description     string         `gorm:"type:text" json:"description"`
	MissionType     MissionType    `gorm:"type:varchar(20);not null" json:"mission_type"`
	Status          MissionStatus  `gorm:"type:varchar(20);not null;default:'lead';index" json:"status"`
	StartDate       time.Time      `gorm:"type:date;not null" json:"start_date"`
	EndDate         *time.Time     `gorm:"type:date" json:"end_date"`
	DailyRate       *int64         `json:"daily_rate"`
	FixedPrice      *int64         `json:"fixed_price"`
	Currency        string         `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	CreatedByUserID uint64         `gorm:"not null;index" json:"created_by_user_id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Companies []MissionCompany `gorm:"foreignKey:MissionID" json:"companies,omitempty"`
}
