package models

import "time"

type CompanyRole string

const (
	CompanyRoleIndependent CompanyRole = "independent"
	CompanyRoleClient      CompanyRole = "client"
)

// Valid reports whether r is a known company role.
func (r CompanyRole) Valid() bool {
	return r == CompanyRoleIndependent || r == CompanyRoleClient
}

type UserCompany struct {
	UserID    uint64      `gorm:"primarykey" json:"user_id"`
	CompanyID uint64      `gorm:"primarykey" json:"company_id"`
	Role      CompanyRole `gorm:"type:varchar(20);not null" json:"role"`
	CreatedAt time.Time   `json:"created_at"`

	// Relations
	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Company Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}
