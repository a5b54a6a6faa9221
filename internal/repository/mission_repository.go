package repository

import (
	"context"
	"fmt"

	"github.com/yukikurage/foresy-api/internal/database"
	"github.com/yukikurage/foresy-api/internal/models"
	"github.com/yukikurage/foresy-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMissionRepository is a GORM implementation of MissionRepository
type GormMissionRepository struct {
	db *gorm.DB
}

// NewMissionRepository creates a new MissionRepository
func NewMissionRepository(db *gorm.DB) MissionRepository {
	return &GormMissionRepository{db: db}
}

// CreateWithRelations creates a mission, its company links and the optional pivot row
func (r *GormMissionRepository) CreateWithRelations(ctx context.Context, mission *models.Mission, links []models.MissionCompany, pivot *models.UserMission) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(mission).Error; err != nil {
			return fmt.Errorf("create mission: %w", err)
		}

		for i := range links {
			links[i].MissionID = mission.ID
		}
		if len(links) > 0 {
			if err := tx.Omit(clause.Associations).Create(&links).Error; err != nil {
				return fmt.Errorf("create mission companies: %w", err)
			}
		}

		if pivot != nil {
			pivot.MissionID = mission.ID
			if err := tx.Omit(clause.Associations).Create(pivot).Error; err != nil {
				return fmt.Errorf("create user mission: %w", err)
			}
		}

		mission.Companies = links
		return nil
	})
}

// FindByID finds a mission by ID with its companies preloaded
func (r *GormMissionRepository) FindByID(ctx context.Context, id uint64) (*models.Mission, error) {
	var mission models.Mission
	if err := r.db.WithContext(ctx).
		Preload("Companies").
		Preload("Companies.Company").
		First(&mission, id).Error; err != nil {
		return nil, err
	}
	return &mission, nil
}

// List retrieves missions the user created or that are linked to one of the user's companies
func (r *GormMissionRepository) List(ctx context.Context, filter MissionFilter) ([]models.Mission, int64, error) {
	var missions []models.Mission

	query := r.db.WithContext(ctx).Model(&models.Mission{})

	if len(filter.CompanyIDs) > 0 {
		linkSubQuery := r.db.Model(&models.MissionCompany{}).
			Select("1").
			Where("mission_companies.mission_id = missions.id").
			Where("mission_companies.company_id IN ?", filter.CompanyIDs)
		query = query.Where(
			r.db.Where("missions.created_by_user_id = ?", filter.UserID).
				Or("EXISTS (?)", linkSubQuery),
		)
	} else {
		query = query.Where("missions.created_by_user_id = ?", filter.UserID)
	}

	if filter.Status != nil {
		query = query.Where("missions.status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("missions.start_date DESC").Order("missions.id DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize)))
	}

	if err := listQuery.Preload("Companies").Preload("Companies.Company").Find(&missions).Error; err != nil {
		return nil, 0, err
	}

	return missions, total, nil
}

// UpdateLocked re-reads the mission under a row lock, applies the change and
// saves its own columns before releasing the lock.
func (r *GormMissionRepository) UpdateLocked(ctx context.Context, id uint64, apply func(mission *models.Mission) error) (*models.Mission, error) {
	var mission models.Mission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&mission, id).Error; err != nil {
			return err
		}
		if err := apply(&mission); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(&mission).Error; err != nil {
			return err
		}
		return tx.Preload("Companies").Preload("Companies.Company").First(&mission, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &mission, nil
}

// Archive soft deletes a mission
func (r *GormMissionRepository) Archive(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Mission{}, id).Error
}

// CountLiveEntryReferences counts live CRA entries linked to a mission
func (r *GormMissionRepository) CountLiveEntryReferences(ctx context.Context, missionID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CraEntryMission{}).
		Joins("JOIN cra_entries ON cra_entries.id = cra_entry_missions.cra_entry_id").
		Where("cra_entry_missions.mission_id = ?", missionID).
		Scopes(database.Live("cra_entries")).
		Count(&count).Error
	return count, err
}
