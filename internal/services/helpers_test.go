package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/foresy-api/internal/auth"
	"github.com/yukikurage/foresy-api/internal/database"
	"github.com/yukikurage/foresy-api/internal/metrics"
	"github.com/yukikurage/foresy-api/internal/models"
	"github.com/yukikurage/foresy-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	db       *gorm.DB
	log      *logrus.Logger
	hook     *test.Hook
	tokens   *auth.TokenManager
	auth     *AuthService
	verifier *fakeVerifier
	oauth    *OAuthService
	company  *CompanyService
	missions *MissionService
	cras     *CraService
	entries  *CraEntryService
	export   *ExportService
}

// serviceSuite gives every test method a fresh in-memory database and the
// services wired on top of it.
type serviceSuite struct {
	suite.Suite
	env *testEnv
}

// SetupTest runs before each test
func (suite *serviceSuite) SetupTest() {
	suite.env = newTestEnv(suite.T())
}

// TearDownTest runs after each test
func (suite *serviceSuite) TearDownTest() {
	sqlDB, err := suite.env.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.Models()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	log, hook := test.NewNullLogger()
	sink := metrics.NopSink{}
	clock := func() time.Time { return fixedNow }

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	missionRepo := repository.NewMissionRepository(db)
	craRepo := repository.NewCraRepository(db)
	entryRepo := repository.NewCraEntryRepository(db)

	tokens := auth.NewTokenManager("test-secret", 15*time.Minute, 24*time.Hour).WithClock(clock)

	env := &testEnv{db: db, log: log, hook: hook, tokens: tokens}
	env.auth = NewAuthService(userRepo, sessionRepo, tokens, time.Hour, log, sink)
	env.auth.now = clock
	env.verifier = newFakeVerifier()
	env.oauth = NewOAuthService(userRepo, env.auth, env.verifier, log, sink)
	env.company = NewCompanyService(companyRepo, log)
	env.missions = NewMissionService(missionRepo, companyRepo, true, log, sink)
	env.cras = NewCraService(craRepo, log, sink)
	env.cras.now = clock
	env.entries = NewCraEntryService(entryRepo, env.cras, env.missions, log, sink)
	env.entries.now = clock
	env.export = NewExportService(env.cras, entryRepo, log)

	return env
}

// fakeVerifier maps authorization codes to the identities they grant.
type fakeVerifier struct {
	identities map[string]OAuthPayload
}

func newFakeVerifier() *fakeVerifier {
	return &fakeVerifier{identities: make(map[string]OAuthPayload)}
}

func (f *fakeVerifier) grant(code string, payload OAuthPayload) {
	f.identities[code] = payload
}

func (f *fakeVerifier) AuthCodeURL(provider, state string) (string, error) {
	return "https://provider.test/" + provider + "?state=" + state, nil
}

func (f *fakeVerifier) Verify(ctx context.Context, provider, code string) (*OAuthPayload, error) {
	payload, ok := f.identities[code]
	if !ok || payload.Provider != provider {
		return nil, ErrOAuthVerificationFailed
	}
	return &payload, nil
}

// racingCraRepo moves the stored CRA to status right after the service has
// read it, as a concurrent request would.
type racingCraRepo struct {
	repository.CraRepository
	db     *gorm.DB
	status models.CraStatus
}

func (r *racingCraRepo) FindByID(ctx context.Context, id uint64) (*models.Cra, error) {
	cra, err := r.CraRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return cra, r.db.Model(&models.Cra{}).Where("id = ?", id).Update("status", r.status).Error
}

// racingMissionRepo does the same for missions.
type racingMissionRepo struct {
	repository.MissionRepository
	db     *gorm.DB
	status models.MissionStatus
}

func (r *racingMissionRepo) FindByID(ctx context.Context, id uint64) (*models.Mission, error) {
	mission, err := r.MissionRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return mission, r.db.Model(&models.Mission{}).Where("id = ?", id).Update("status", r.status).Error
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "hashed", Name: "Test User"}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createIndependentCompany(t *testing.T, userID uint64, name string) *models.UserCompany {
	t.Helper()
	link, err := e.company.CreateCompany(context.Background(), CreateCompanyInput{
		UserID: userID,
		Name:   name,
		Role:   models.CompanyRoleIndependent,
	})
	require.NoError(t, err)
	return link
}

func (e *testEnv) createMission(t *testing.T, userID uint64, name string, dailyRate int64) *models.Mission {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mission, err := e.missions.CreateMission(context.Background(), CreateMissionInput{
		ActorID:     userID,
		Name:        name,
		MissionType: models.MissionTypeTimeBased,
		StartDate:   &start,
		DailyRate:   &dailyRate,
	})
	require.NoError(t, err)
	return mission
}

func (e *testEnv) createCra(t *testing.T, userID uint64, year, month int) *models.Cra {
	t.Helper()
	cra, err := e.cras.CreateCra(context.Background(), CreateCraInput{ActorID: userID, Year: year, Month: month})
	require.NoError(t, err)
	return cra
}

func day(year int, month time.Month, d int) *time.Time {
	t := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func qty(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func cents(value int64) *int64 {
	return &value
}
