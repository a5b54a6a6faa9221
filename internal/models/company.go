package models

import "time"

type Company struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Siret     string    `gorm:"type:varchar(14);index" json:"siret,omitempty"`
	Siren     string    `gorm:"type:varchar(9);index" json:"siren,omitempty"`
	Country   string    `gorm:"type:varchar(2);not null;default:'FR'" json:"country"`
	Currency  string    `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Users []UserCompany `gorm:"foreignKey:CompanyID" json:"-"`
}
