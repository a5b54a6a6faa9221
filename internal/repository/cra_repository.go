package repository

import (
	"context"

	"github.com/yukikurage/foresy-api/internal/database"
	"github.com/yukikurage/foresy-api/internal/models"
	"github.com/yukikurage/foresy-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCraRepository is a GORM implementation of CraRepository
type GormCraRepository struct {
	db *gorm.DB
}

// NewCraRepository creates a new CraRepository
func NewCraRepository(db *gorm.DB) CraRepository {
	return &GormCraRepository{db: db}
}

// Create creates a new CRA
func (r *GormCraRepository) Create(ctx context.Context, cra *models.Cra) error {
	return r.db.WithContext(ctx).Create(cra).Error
}

// FindByID finds a live CRA by ID
func (r *GormCraRepository) FindByID(ctx context.Context, id uint64) (*models.Cra, error) {
	var cra models.Cra
	if err := r.db.WithContext(ctx).First(&cra, id).Error; err != nil {
		return nil, err
	}
	return &cra, nil
}

// FindByPeriod finds a live CRA of a user for a month
func (r *GormCraRepository) FindByPeriod(ctx context.Context, userID uint64, year, month int) (*models.Cra, error) {
	var cra models.Cra
	if err := r.db.WithContext(ctx).
		Where("created_by_user_id = ? AND year = ? AND month = ?", userID, year, month).
		First(&cra).Error; err != nil {
		return nil, err
	}
	return &cra, nil
}

// List retrieves live CRAs of a user with filtering and pagination
func (r *GormCraRepository) List(ctx context.Context, filter CraFilter) ([]models.Cra, int64, error) {
	var cras []models.Cra

	query := r.db.WithContext(ctx).Model(&models.Cra{}).Where("cras.created_by_user_id = ?", filter.UserID)

	if filter.Year != nil {
		query = query.Where("cras.year = ?", *filter.Year)
	}
	if filter.Month != nil {
		query = query.Where("cras.month = ?", *filter.Month)
	}
	if filter.Status != nil {
		query = query.Where("cras.status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("cras.year DESC").Order("cras.month DESC").Order("cras.id DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize)))
	}

	if err := listQuery.Find(&cras).Error; err != nil {
		return nil, 0, err
	}

	return cras, total, nil
}

// UpdateLocked checks and writes a CRA under a row lock so a status read by
// guard cannot change before the write. Totals are owned by the entry
// repository and never written from here.
func (r *GormCraRepository) UpdateLocked(ctx context.Context, craID uint64, guard EntryGuard) (*models.Cra, error) {
	var cra *models.Cra
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cra, err = lockCraAndGuard(tx, craID, guard)
		if err != nil {
			return err
		}

		return tx.Omit("total_days", "total_amount", clause.Associations).Save(cra).Error
	})
	if err != nil {
		return nil, err
	}
	return cra, nil
}

// Delete soft deletes a CRA and every entry attached to it
func (r *GormCraRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entryIDs := tx.Model(&models.CraEntryCra{}).
			Select("cra_entry_id").
			Where("cra_id = ?", id)
		if err := tx.Where("id IN (?)", entryIDs).Delete(&models.CraEntry{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Cra{}, id).Error
	})
}
