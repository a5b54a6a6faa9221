package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ExportServiceTestSuite struct {
	serviceSuite
}

func TestExportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ExportServiceTestSuite))
}

func (suite *ExportServiceTestSuite) TestEmptyCraHasHeaderAndZeroTotal() {
	t := suite.T()
	env := suite.env
	user := env.createUser(t, "alice@example.com")
	cra := env.createCra(t, user.ID, 2026, 1)

	result, err := env.export.ExportCra(context.Background(), ExportInput{ActorID: user.ID, CraID: cra.ID})
	require.NoError(t, err)

	assert.Equal(t, "cra_2026_01.csv", result.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", result.ContentType)

	body := string(result.Body)
	require.True(t, strings.HasPrefix(body, utf8BOM))
	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(body, utf8BOM), "\n"), "\n")
	assert.Equal(t, []string{
		"date,mission_name,quantity,unit_price_eur,line_total_eur,description",
		"TOTAL,,0.00,,0.00,",
	}, lines)
}

func (suite *ExportServiceTestSuite) TestRendersEntries() {
	t := suite.T()
	env := suite.env
	ctx := context.Background()
	user := env.createUser(t, "alice@example.com")
	env.createIndependentCompany(t, user.ID, "Alice Consulting")
	mission := env.createMission(t, user.ID, "Audit", 50000)
	cra := env.createCra(t, user.ID, 2026, 1)

	_, err := env.entries.CreateEntry(ctx, CreateEntryInput{ActorID: user.ID, CraID: cra.ID, Date: day(2026, time.January, 16), Quantity: qty("0.5"), UnitPrice: cents(33333), Description: "Review, follow-up"})
	require.NoError(t, err)
	_, err = env.entries.CreateEntry(ctx, CreateEntryInput{ActorID: user.ID, CraID: cra.ID, Date: day(2026, time.January, 15), Quantity: qty("1"), MissionID: &mission.ID, Description: "Kickoff"})
	require.NoError(t, err)

	result, err := env.export.ExportCra(ctx, ExportInput{ActorID: user.ID, CraID: cra.ID, Format: "CSV", IncludeEntries: "true"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(string(result.Body), utf8BOM), "\n"), "\n")
	assert.Equal(t, []string{
		"date,mission_name,quantity,unit_price_eur,line_total_eur,description",
		"2026-01-15,Audit,1.00,500.00,500.00,Kickoff",
		`2026-01-16,,0.50,333.33,166.67,"Review, follow-up"`,
		"TOTAL,,1.50,,666.67,",
	}, lines)

	result, err = env.export.ExportCra(ctx, ExportInput{ActorID: user.ID, CraID: cra.ID, IncludeEntries: "false"})
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSuffix(strings.TrimPrefix(string(result.Body), utf8BOM), "\n"), "\n")
	assert.Equal(t, []string{
		"date,mission_name,quantity,unit_price_eur,line_total_eur,description",
		"TOTAL,,1.50,,666.67,",
	}, lines)
}

func (suite *ExportServiceTestSuite) TestRejectsOptions() {
	t := suite.T()
	env := suite.env
	user := env.createUser(t, "alice@example.com")
	cra := env.createCra(t, user.ID, 2026, 1)

	_, err := env.export.ExportCra(context.Background(), ExportInput{ActorID: user.ID, CraID: cra.ID, Format: "pdf"})
	assert.True(t, errors.Is(err, ErrUnsupportedExportFormat))

	_, err = env.export.ExportCra(context.Background(), ExportInput{ActorID: user.ID, CraID: cra.ID, IncludeEntries: "maybe"})
	assert.True(t, errors.Is(err, ErrInvalidIncludeEntries))
}
