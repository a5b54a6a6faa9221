package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/foresy-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Mission{},
		&models.Cra{},
		&models.CraEntry{},
		&models.CraEntryCra{},
		&models.CraEntryMission{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return db
}

func newEntry(day int, quantity string, unitPrice int64) *models.CraEntry {
	return &models.CraEntry{
		Date:      time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
		Quantity:  decimal.RequireFromString(quantity),
		UnitPrice: unitPrice,
	}
}

func TestCraEntryRepository_CreateRecalculatesTotals(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()

	cra := &models.Cra{Year: 2026, Month: 1, Status: models.CraStatusDraft, Currency: "EUR", CreatedByUserID: 1}
	require.NoError(t, db.Create(cra).Error)

	repo := NewCraEntryRepository(db)

	updated, err := repo.Create(ctx, cra.ID, newEntry(15, "1.0", 50000), nil, nil)
	require.NoError(t, err)
	assert.True(t, updated.TotalDays.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int64(50000), updated.TotalAmount)

	updated, err = repo.Create(ctx, cra.ID, newEntry(16, "0.5", 50000), nil, nil)
	require.NoError(t, err)
	assert.True(t, updated.TotalDays.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, int64(75000), updated.TotalAmount)

	var reloaded models.Cra
	require.NoError(t, db.First(&reloaded, cra.ID).Error)
	assert.Equal(t, int64(75000), reloaded.TotalAmount)

	entries, total, err := repo.ListByCra(ctx, cra.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)
	assert.Equal(t, "2026-01-15", entries[0].DateKey())
}

func TestCraEntryRepository_GuardFailureRollsBack(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()

	cra := &models.Cra{Year: 2026, Month: 1, Status: models.CraStatusDraft, Currency: "EUR", CreatedByUserID: 1}
	require.NoError(t, db.Create(cra).Error)

	repo := NewCraEntryRepository(db)
	guardErr := errors.New("rejected")

	_, err := repo.Create(ctx, cra.ID, newEntry(15, "1", 50000), nil, func(*models.Cra, []models.CraEntry) error {
		return guardErr
	})
	require.ErrorIs(t, err, guardErr)

	var count int64
	require.NoError(t, db.Model(&models.CraEntry{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestCraEntryRepository_DeleteExcludesEntryFromTotals(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()

	cra := &models.Cra{Year: 2026, Month: 1, Status: models.CraStatusDraft, Currency: "EUR", CreatedByUserID: 1}
	require.NoError(t, db.Create(cra).Error)

	mission := &models.Mission{
		Name:            "Audit",
		MissionType:     models.MissionTypeTimeBased,
		Status:          models.MissionStatusWon,
		StartDate:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Currency:        "EUR",
		CreatedByUserID: 1,
	}
	require.NoError(t, db.Create(mission).Error)

	repo := NewCraEntryRepository(db)
	first := newEntry(15, "1", 50000)
	_, err := repo.Create(ctx, cra.ID, first, &mission.ID, nil)
	require.NoError(t, err)
	_, err = repo.Create(ctx, cra.ID, newEntry(16, "1", 40000), nil, nil)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, cra.ID, first.ID)
	require.NoError(t, err)
	require.NotNil(t, found.MissionLink)
	assert.Equal(t, "Audit", found.MissionLink.Mission.Name)

	updated, err := repo.Delete(ctx, cra.ID, first.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), updated.TotalAmount)

	_, err = repo.FindByID(ctx, cra.ID, first.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	missionRepo := NewMissionRepository(db)
	refs, err := missionRepo.CountLiveEntryReferences(ctx, mission.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), refs)
}

func TestCraRepository_DeleteCascadesToEntries(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()

	cra := &models.Cra{Year: 2026, Month: 1, Status: models.CraStatusDraft, Currency: "EUR", CreatedByUserID: 1}
	require.NoError(t, db.Create(cra).Error)

	entryRepo := NewCraEntryRepository(db)
	_, err := entryRepo.Create(ctx, cra.ID, newEntry(15, "1", 50000), nil, nil)
	require.NoError(t, err)

	craRepo := NewCraRepository(db)
	_, count, err := entryRepo.ListByCra(ctx, cra.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, craRepo.Delete(ctx, cra.ID))

	_, err = craRepo.FindByID(ctx, cra.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var liveEntries int64
	require.NoError(t, db.Model(&models.CraEntry{}).Count(&liveEntries).Error)
	assert.Equal(t, int64(0), liveEntries)
}

func TestCraRepository_UpdateLocked(t *testing.T) {
	db := setupSQLite(t)
	ctx := context.Background()

	cra := &models.Cra{Year: 2026, Month: 1, Status: models.CraStatusDraft, Currency: "EUR", CreatedByUserID: 1}
	require.NoError(t, db.Create(cra).Error)
	_, err := NewCraEntryRepository(db).Create(ctx, cra.ID, newEntry(15, "1", 50000), nil, nil)
	require.NoError(t, err)

	repo := NewCraRepository(db)
	errRejected := errors.New("rejected")

	_, err = repo.UpdateLocked(ctx, cra.ID, func(locked *models.Cra, entries []models.CraEntry) error {
		locked.Status = models.CraStatusSubmitted
		return errRejected
	})
	assert.ErrorIs(t, err, errRejected)

	var stored models.Cra
	require.NoError(t, db.First(&stored, cra.ID).Error)
	assert.Equal(t, models.CraStatusDraft, stored.Status)

	updated, err := repo.UpdateLocked(ctx, cra.ID, func(locked *models.Cra, entries []models.CraEntry) error {
		assert.Len(t, entries, 1)
		locked.Status = models.CraStatusSubmitted
		locked.TotalAmount = 0
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.CraStatusSubmitted, updated.Status)

	require.NoError(t, db.First(&stored, cra.ID).Error)
	assert.Equal(t, models.CraStatusSubmitted, stored.Status)
	assert.Equal(t, int64(50000), stored.TotalAmount)

	_, err = repo.UpdateLocked(ctx, 9999, func(*models.Cra, []models.CraEntry) error { return nil })
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
