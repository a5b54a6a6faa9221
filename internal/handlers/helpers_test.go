package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/foresy-api/internal/auth"
	"github.com/yukikurage/foresy-api/internal/constants"
	"github.com/yukikurage/foresy-api/internal/database"
	"github.com/yukikurage/foresy-api/internal/dto"
	"github.com/yukikurage/foresy-api/internal/metrics"
	"github.com/yukikurage/foresy-api/internal/repository"
	"github.com/yukikurage/foresy-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type handlerTestEnv struct {
	db          *gorm.DB
	router      *gin.Engine
	authService *services.AuthService
	identities  *fakeVerifier
}

// fakeVerifier maps authorization codes to the identities they grant.
type fakeVerifier struct {
	identities map[string]services.OAuthPayload
}

func (f *fakeVerifier) AuthCodeURL(provider, state string) (string, error) {
	return "https://provider.test/" + provider + "?state=" + state, nil
}

func (f *fakeVerifier) Verify(ctx context.Context, provider, code string) (*services.OAuthPayload, error) {
	payload, ok := f.identities[code]
	if !ok || payload.Provider != provider {
		return nil, services.ErrOAuthVerificationFailed
	}
	return &payload, nil
}

// handlerSuite serves every test method from a router backed by a fresh
// in-memory database.
type handlerSuite struct {
	suite.Suite
	env *handlerTestEnv
}

// SetupTest runs before each test
func (suite *handlerSuite) SetupTest() {
	suite.env = newHandlerTestEnv(suite.T())
}

// TearDownTest runs after each test
func (suite *handlerSuite) TearDownTest() {
	sqlDB, err := suite.env.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func newHandlerTestEnv(t *testing.T) *handlerTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.Models()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	log, _ := test.NewNullLogger()
	sink := metrics.NopSink{}

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	missionRepo := repository.NewMissionRepository(db)
	craRepo := repository.NewCraRepository(db)
	entryRepo := repository.NewCraEntryRepository(db)

	tokens := auth.NewTokenManager("handler-test-secret", 15*time.Minute, 24*time.Hour)
	authService := services.NewAuthService(userRepo, sessionRepo, tokens, time.Hour, log, sink)
	identities := &fakeVerifier{identities: make(map[string]services.OAuthPayload)}
	oauthService := services.NewOAuthService(userRepo, authService, identities, log, sink)
	companyService := services.NewCompanyService(companyRepo, log)
	missionService := services.NewMissionService(missionRepo, companyRepo, true, log, sink)
	craService := services.NewCraService(craRepo, log, sink)
	entryService := services.NewCraEntryService(entryRepo, craService, missionService, log, sink)
	exportService := services.NewExportService(craService, entryRepo, log)
	suggestionService := services.NewSuggestionService(nil, craService, log)

	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	RegisterRoutes(r, Routes{
		Auth:          NewAuthHandler(authService, log),
		OAuth:         NewOAuthHandler(oauthService, log),
		Company:       NewCompanyHandler(companyService, log),
		Mission:       NewMissionHandler(missionService, log),
		Cra:           NewCraHandler(craService, exportService, log),
		CraEntry:      NewCraEntryHandler(entryService, suggestionService, log),
		Health:        NewHealthHandler(db),
		Authenticator: authService,
		Cras:          craService,
		Entries:       entryService,
		Log:           log,
	})

	return &handlerTestEnv{
		db:          db,
		router:      r,
		authService: authService,
		identities:  identities,
	}
}

// request sends a JSON request, with a bearer token when token is not empty.
func (e *handlerTestEnv) request(t *testing.T, method, path string, payload interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signup registers a user through the service and returns an access token.
func (e *handlerTestEnv) signup(t *testing.T, email string) string {
	t.Helper()
	result, err := e.authService.Signup(context.Background(), services.SignupInput{
		Email:    email,
		Password: "supersecret",
		Name:     "Test User",
	})
	require.NoError(t, err)
	return result.Tokens.AccessToken
}

func decode(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	decode(t, w, &body)
	return body.Code
}

// createCra creates a CRA through the API and returns it.
func (e *handlerTestEnv) createCra(t *testing.T, token string, year, month int) dto.CraDTO {
	t.Helper()
	w := e.request(t, http.MethodPost, "/api/v1/cras", map[string]interface{}{"year": year, "month": month}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cra dto.CraDTO
	decode(t, w, &cra)
	return cra
}
