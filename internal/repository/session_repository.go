package repository

import (
	"context"
	"time"

	"github.com/yukikurage/foresy-api/internal/models"
	"gorm.io/gorm"
)

// GormSessionRepository is a GORM implementation of SessionRepository
type GormSessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &GormSessionRepository{db: db}
}

// Create creates a new session
func (r *GormSessionRepository) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindByID finds a session by ID
func (r *GormSessionRepository) FindByID(ctx context.Context, id uint64) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// FindLatestActive returns the most recently created active session of a user
func (r *GormSessionRepository) FindLatestActive(ctx context.Context, userID uint64, now time.Time) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ? AND expires_at > ?", userID, true, now).
		Order("created_at DESC").
		Order("id DESC").
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// Touch persists the sliding expiry of a session
func (r *GormSessionRepository) Touch(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).
		Model(session).
		Updates(map[string]interface{}{
			"last_activity_at": session.LastActivityAt,
			"expires_at":       session.ExpiresAt,
		}).Error
}

// Deactivate marks one session inactive
func (r *GormSessionRepository) Deactivate(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", id).
		Update("active", false).Error
}

// DeactivateAllForUser marks every active session of a user inactive
func (r *GormSessionRepository) DeactivateAllForUser(ctx context.Context, userID uint64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("user_id = ? AND active = ?", userID, true).
		Update("active", false)
	return result.RowsAffected, result.Error
}
