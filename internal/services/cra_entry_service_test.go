package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"github.com/yukikurage/foresy-api/internal/models"
)

type CraEntryServiceTestSuite struct {
	serviceSuite
}

func TestCraEntryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CraEntryServiceTestSuite))
}

func (suite *CraEntryServiceTestSuite) TestCreateRecalculatesTotals() {
	t := suite.T()
	env := suite.env
	ctx := context.Background()
	user := env.createUser(t, "alice@example.com")
	cra := env.createCra(t, user.ID, 2026, 1)

	result, err := env.entries.CreateEntry(ctx, CreateEntryInput{
		ActorID:   user.ID,
		CraID:     cra.ID,
		Date:      day(2026, time.January, 15),
		Quantity:  qty("1.0"),
		UnitPrice: cents(50000),
	})
	require.NoError(t, err)
	assert.NotZero(t, result.Entry.ID)
	assert.True(t, result.Cra.TotalDays.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int64(50000), result.Cra.TotalAmount)

	var reloaded models.Cra
	require.NoError(t, env.db.First(&reloaded, cra.ID).Error)
	assert.True(t, reloaded.TotalDays.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int64(50000), reloaded.TotalAmount)
}

func (suite *CraEntryServiceTestSuite) TestUpdateAndDeleteRecalculate() {
	t := suite.T()
	env := suite.env
	ctx := context.Background()
	user := env.createUser(t, "alice@example.com")
	cra := env.createCra(t, user.ID, 2026, 1)

	first, err := env.entries.CreateEntry(ctx, CreateEntryInput{ActorID: user.ID, CraID: cra.ID, Date: day(2026, time.January, 5), Quantity: qty("1"), UnitPrice: cents(40000)})
	require.NoError(t, err)
	_, err = env.entries.CreateEntry(ctx, CreateEntryInput{ActorID: user.ID, CraID: cra.ID, Date: day(2026, time.January, 6), Quantity: qty("0.5"), UnitPrice: cents(40000)})
	require.NoError(t, err)

	updated, err := env.entries.UpdateEntry(ctx, user.ID, cra.ID, first.Entry.ID, UpdateEntryInput{Quantity: qty("0.75")})
	require.NoError(t, err)
	assert.True(t, updated.Cra.TotalDays.Equal(decimal.RequireFromString("1.25")))
	assert.Equal(t, int64(50000), updated.Cra.TotalAmount)

	afterDelete, err := env.entries.DeleteEntry(ctx, user.ID, cra.ID, first.Entry.ID)
	require.NoError(t, err)
	assert.True(t, afterDelete.TotalDays.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, int64(20000), afterDelete.TotalAmount)

	_, err = env.entries.GetEntry(ctx, user.ID, cra.ID, first.Entry.ID)
	assert.True(t, errors.Is(err, ErrEntryNotFound))

	entries, total, err := env.entries.ListEntries(ctx, user.ID, cra.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, entries, 1)
}

func (suite *CraEntryServiceTestSuite) TestDuplicateMissionDate() {
	t := suite.T()
	env := suite.env
	ctx := context.Background()
	user := env.createUser(t, "alice@example.com")
	env.createIndependentCompany(t, user.ID, "Alice Consulting")
	mission := env.createMission(t, user.ID, "Audit", 50000)
	other := env.createMission(t, user.ID, "Training", 30000)
	cra := env.createCra(t, user.ID, 2026, 1)

	input := CreateEntryInput{ActorID: user.ID, CraID: cra.ID, Date: day(2026, time.January, 15), Quantity: qty("0.5"), MissionID: &mission.ID}

	first, err := env.entries.CreateEntry(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), first.Entry.UnitPrice)

	_, err = env.entries.CreateEntry(ctx, input)
	assert.True(t, errors.Is(err, ErrDuplicateEntry))
	kind, _ := apierrors.KindOf(err)
	assert.Equal(t, apierrors.KindConflict, kind)

	// Same date on another mission is allowed.
	input.MissionID = &other.ID
	_, err = env.entries.CreateEntry(ctx, input)
	require.NoError(t, err)

	var reloaded models.Cra
	require.NoError(t, env.db.First(&reloaded, cra.ID).Error)
	assert.Equal(t, int64(40000), reloaded.TotalAmount)
}

func (suite *CraEntryServiceTestSuite) TestNonDraftCraRejectsWrites() {
	t := suite.T()
	env := suite.env
	ctx := context.Background()
	user := env.createUser(t, "alice@example.com")
	cra := env.createCra(t, user.ID, 2026, 1)

	entry, err := env.entries.CreateEntry(ctx, CreateEntryInput{ActorID: user.ID, CraID: cra.ID, Date: day(2026, time.January, 15), Quantity: qty("1"), UnitPrice: cents(50000)})
	require.NoError(t, err)
	_, err = env.cras.SubmitCra(ctx, user.ID, cra.ID)
	require.NoError(t, err)

	_, err = env.entries.CreateEntry(ctx, CreateEntryInput{ActorID: user.ID, CraID: cra.ID, Date: day(2026, time.January, 16), Quantity: qty("1"), UnitPrice: cents(50000)})
	assert.True(t, errors.Is(err, ErrCraNotDraft))
	kind, _ := apierrors.KindOf(err)
	assert.Equal(t, apierrors.KindConflict, kind)

	_, err = env.entries.UpdateEntry(ctx, user.ID, cra.ID, entry.Entry.ID, UpdateEntryInput{Quantity: qty("0.5")})
	assert.True(t, errors.Is(err, ErrCraNotDraft))

	_, err = env.entries.DeleteEntry(ctx, user.ID, cra.ID, entry.Entry.ID)
	assert.True(t, errors.Is(err, ErrCraNotDraft))

	var count int64
	require.NoError(t, env.db.Model(&models.CraEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func (suite *CraEntryServiceTestSuite) TestValidation() {
	t := suite.T()
	env := suite.env
	ctx := context.Background()
	user := env.createUser(t, "alice@example.com")
	cra := env.createCra(t, user.ID, 2026, 1)
	future := env.createCra(t, user.ID, 2026, 2)

	cases := []struct {
		name  string
		craID uint64
		input CreateEntryInput
		err   error
	}{
		{"missing date", cra.ID, CreateEntryInput{Quantity: qty("1"), UnitPrice: cents(1)}, ErrEntryDateRequired},
		{"missing quantity", cra.ID, CreateEntryInput{Date: day(2026, time.January, 2), UnitPrice: cents(1)}, ErrEntryQuantityRequired},
		{"zero quantity", cra.ID, CreateEntryInput{Date: day(2026, time.January, 2), Quantity: qty("0"), UnitPrice: cents(1)}, ErrEntryQuantityInvalid},
		{"off granularity", cra.ID, CreateEntryInput{Date: day(2026, time.January, 2), Quantity: qty("0.3"), UnitPrice: cents(1)}, ErrEntryQuantityInvalid},
		{"too many days", cra.ID, CreateEntryInput{Date: day(2026, time.January, 2), Quantity: qty("31.25"), UnitPrice: cents(1)}, ErrEntryQuantityInvalid},
		{"missing unit price", cra.ID, CreateEntryInput{Date: day(2026, time.January, 2), Quantity: qty("1")}, ErrEntryUnitPriceInvalid},
		{"negative unit price", cra.ID, CreateEntryInput{Date: day(2026, time.January, 2), Quantity: qty("1"), UnitPrice: cents(-5)}, ErrEntryUnitPriceInvalid},
		{"outside month", cra.ID, CreateEntryInput{Date: day(2025, time.December, 31), Quantity: qty("1"), UnitPrice: cents(1)}, ErrEntryDateOutsidePeriod},
		{"future date", future.ID, CreateEntryInput{Date: day(2026, time.February, 20), Quantity: qty("1"), UnitPrice: cents(1)}, ErrEntryDateInFuture},
		{"unknown mission", cra.ID, CreateEntryInput{Date: day(2026, time.January, 2), Quantity: qty("1"), UnitPrice: cents(1), MissionID: func() *uint64 { id := uint64(42); return &id }()}, ErrEntryMissionNotAccessible},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.input.ActorID = user.ID
			tc.input.CraID = tc.craID
			_, err := env.entries.CreateEntry(ctx, tc.input)
			assert.True(t, errors.Is(err, tc.err), "got %v", err)
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.CraEntry{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func (suite *CraEntryServiceTestSuite) TestCreatorOnly() {
	t := suite.T()
	env := suite.env
	ctx := context.Background()
	alice := env.createUser(t, "alice@example.com")
	bob := env.createUser(t, "bob@example.com")
	cra := env.createCra(t, alice.ID, 2026, 1)

	_, err := env.entries.CreateEntry(ctx, CreateEntryInput{ActorID: bob.ID, CraID: cra.ID, Date: day(2026, time.January, 15), Quantity: qty("1"), UnitPrice: cents(50000)})
	assert.True(t, errors.Is(err, ErrNotCraCreator))

	_, _, err = env.entries.ListEntries(ctx, bob.ID, cra.ID, 1, 20)
	assert.True(t, errors.Is(err, ErrNotCraCreator))

	_, err = env.entries.CreateEntry(ctx, CreateEntryInput{ActorID: alice.ID, CraID: 9999, Date: day(2026, time.January, 15), Quantity: qty("1"), UnitPrice: cents(50000)})
	assert.True(t, errors.Is(err, ErrCraNotFound))
}
