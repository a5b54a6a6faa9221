package models

import "time"

// MissionCompany links a mission to a company. A mission has exactly one
// independent company and at most one client company.
type MissionCompany struct {
	MissionID uint64      `gorm:"primarykey;uniqueIndex:idx_mission_companies_mission_role" json:"mission_id"`
	CompanyID uint64      `gorm:"primarykey" json:"company_id"`
	Role      CompanyRole `gorm:"type:varchar(20);not null;uniqueIndex:idx_mission_companies_mission_role" json:"role"`
	CreatedAt time.Time   `json:"created_at"`

	// Relations
	Mission Mission `gorm:"foreignKey:MissionID" json:"-"`
	Company Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

const UserMissionRoleCreator = "creator"

type UserMission struct {
	UserID    uint64    `gorm:"primarykey" json:"user_id"`
	MissionID uint64    `gorm:"primarykey" json:"mission_id"`
	Role      string    `gorm:"type:varchar(20);not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Mission Mission `gorm:"foreignKey:MissionID" json:"-"`
}
