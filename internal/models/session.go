package models

import "time"

// Session is a persisted login. Tokens reference it by ID; it stays usable
// while Active and ExpiresAt is in the future.
type Session struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	UserID         uint64    `gorm:"not null;index" json:"user_id"`
	Active         bool      `gorm:"not null;default:true;index" json:"active"`
	ExpiresAt      time.Time `gorm:"not null" json:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	IPAddress      string    `gorm:"type:varchar(64)" json:"ip_address"`
	UserAgent      string    `gorm:"type:varchar(512)" json:"user_agent"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsActive reports whether the session can still authenticate requests.
func (s *Session) IsActive(now time.Time) bool {
	return s.Active && s.ExpiresAt.After(now)
}

// Refresh slides the expiry window forward.
func (s *Session) Refresh(now time.Time, ttl time.Duration) {
	s.LastActivityAt = now
	s.ExpiresAt = now.Add(ttl)
}
