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

// GormCraEntryRepository is a GORM implementation of CraEntryRepository
type GormCraEntryRepository struct {
	db *gorm.DB
}

// NewCraEntryRepository creates a new CraEntryRepository
func NewCraEntryRepository(db *gorm.DB) CraEntryRepository {
	return &GormCraEntryRepository{db: db}
}

// Create creates an entry, its join rows and recalculates the CRA totals
func (r *GormCraEntryRepository) Create(ctx context.Context, craID uint64, entry *models.CraEntry, missionID *uint64, guard EntryGuard) (*models.Cra, error) {
	var cra *models.Cra
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cra, err = lockCraAndGuard(tx, craID, guard)
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(entry).Error; err != nil {
			return fmt.Errorf("create entry: %w", err)
		}

		craLink := &models.CraEntryCra{CraEntryID: entry.ID, CraID: craID}
		if err := tx.Omit(clause.Associations).Create(craLink).Error; err != nil {
			return fmt.Errorf("create entry cra link: %w", err)
		}
		entry.CraLink = craLink

		if missionID != nil {
			missionLink := &models.CraEntryMission{CraEntryID: entry.ID, MissionID: *missionID}
			if err := tx.Omit(clause.Associations).Create(missionLink).Error; err != nil {
				return fmt.Errorf("create entry mission link: %w", err)
			}
			entry.MissionLink = missionLink
		}

		return recalculateTotals(tx, cra)
	})
	if err != nil {
		return nil, err
	}
	return cra, nil
}

// Update updates an entry's own columns and recalculates the CRA totals
func (r *GormCraEntryRepository) Update(ctx context.Context, craID uint64, entry *models.CraEntry, guard EntryGuard) (*models.Cra, error) {
	var cra *models.Cra
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cra, err = lockCraAndGuard(tx, craID, guard)
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(entry).Error; err != nil {
			return fmt.Errorf("update entry: %w", err)
		}

		return recalculateTotals(tx, cra)
	})
	if err != nil {
		return nil, err
	}
	return cra, nil
}

// Delete soft deletes an entry and recalculates the CRA totals
func (r *GormCraEntryRepository) Delete(ctx context.Context, craID, entryID uint64, guard EntryGuard) (*models.Cra, error) {
	var cra *models.Cra
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cra, err = lockCraAndGuard(tx, craID, guard)
		if err != nil {
			return err
		}

		if err := tx.Delete(&models.CraEntry{}, entryID).Error; err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}

		return recalculateTotals(tx, cra)
	})
	if err != nil {
		return nil, err
	}
	return cra, nil
}

// FindByID finds a live entry belonging to a CRA
func (r *GormCraEntryRepository) FindByID(ctx context.Context, craID, entryID uint64) (*models.CraEntry, error) {
	var entry models.CraEntry
	if err := scopeToCra(r.db.WithContext(ctx), craID).
		Preload("MissionLink").
		Preload("MissionLink.Mission", unscoped).
		Where("cra_entries.id = ?", entryID).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByCra lists live entries of a CRA ordered by date
func (r *GormCraEntryRepository) ListByCra(ctx context.Context, craID uint64, page, pageSize int) ([]models.CraEntry, int64, error) {
	var entries []models.CraEntry

	query := scopeToCra(r.db.WithContext(ctx).Model(&models.CraEntry{}), craID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("cra_entries.date ASC").Order("cra_entries.id ASC")
	if page > 0 && pageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.NewPaginationParams(page, pageSize)))
	}

	if err := listQuery.
		Preload("MissionLink").
		Preload("MissionLink.Mission", unscoped).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// lockCraAndGuard locks the CRA row for the rest of the transaction and runs
// the guard against the current state.
func lockCraAndGuard(tx *gorm.DB, craID uint64, guard EntryGuard) (*models.Cra, error) {
	var cra models.Cra
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cra, craID).Error; err != nil {
		return nil, err
	}

	if guard != nil {
		entries, err := liveEntries(tx, craID)
		if err != nil {
			return nil, err
		}
		if err := guard(&cra, entries); err != nil {
			return nil, err
		}
	}

	return &cra, nil
}

// recalculateTotals recomputes the CRA totals from its live entries. A failure
// here aborts the surrounding transaction.
func recalculateTotals(tx *gorm.DB, cra *models.Cra) error {
	entries, err := liveEntries(tx, cra.ID)
	if err != nil {
		return fmt.Errorf("recalculate totals: %w", err)
	}

	cra.RecalculateTotals(entries)
	if err := tx.Model(cra).Select("total_days", "total_amount").Updates(cra).Error; err != nil {
		return fmt.Errorf("recalculate totals: %w", err)
	}
	return nil
}

func liveEntries(tx *gorm.DB, craID uint64) ([]models.CraEntry, error) {
	var entries []models.CraEntry
	err := scopeToCra(tx, craID).
		Preload("MissionLink").
		Order("cra_entries.date ASC").
		Order("cra_entries.id ASC").
		Find(&entries).Error
	return entries, err
}

func scopeToCra(db *gorm.DB, craID uint64) *gorm.DB {
	return db.
		Joins("JOIN cra_entry_cras ON cra_entry_cras.cra_entry_id = cra_entries.id").
		Where("cra_entry_cras.cra_id = ?", craID)
}

// unscoped keeps archived missions visible on historical entries.
func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}
