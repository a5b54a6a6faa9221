package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrUserEmailRequired      = errors.New("email is required")
	ErrUserAuthMethodConflict = errors.New("user must have either a password or an OAuth identity, not both")
	ErrUserAuthMethodMissing  = errors.New("user must have a password or an OAuth identity")
)

type User struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255)" json:"-"`
	Provider     *string   `gorm:"type:varchar(50);uniqueIndex:idx_users_provider_uid" json:"provider,omitempty"`
	UID          *string   `gorm:"column:uid;type:varchar(255);uniqueIndex:idx_users_provider_uid" json:"-"`
	Name         string    `gorm:"type:varchar(255)" json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Sessions  []Session     `gorm:"foreignKey:UserID" json:"-"`
	Companies []UserCompany `gorm:"foreignKey:UserID" json:"-"`
}

// IsOAuth reports whether the user authenticates through a provider.
func (u *User) IsOAuth() bool {
	return u.Provider != nil && u.UID != nil
}

// BeforeSave enforces that exactly one authentication method is populated.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" {
		return ErrUserEmailRequired
	}

	hasPassword := u.PasswordHash != ""
	switch {
	case hasPassword && u.IsOAuth():
		return ErrUserAuthMethodConflict
	case !hasPassword && !u.IsOAuth():
		return ErrUserAuthMethodMissing
	}
	return nil
}
