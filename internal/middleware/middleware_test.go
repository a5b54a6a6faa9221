package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/foresy-api/internal/auth"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"github.com/yukikurage/foresy-api/internal/models"
)

var errForbidden = apierrors.NewDomainError(apierrors.KindPermissionDenied, "only the CRA creator can perform this action")

type stubAuthenticator struct {
	tokens   map[string]uint64
	rejectAs error
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*models.User, *models.Session, error) {
	if userID, ok := s.tokens[token]; ok {
		return &models.User{ID: userID}, &models.Session{ID: 7, UserID: userID, Active: true}, nil
	}
	return nil, nil, s.rejectAs
}

type stubCraLoader struct {
	cras map[uint64]*models.Cra
}

func (s *stubCraLoader) GetCra(_ context.Context, actorID, craID uint64) (*models.Cra, error) {
	cra, ok := s.cras[craID]
	if !ok {
		return nil, apierrors.NewDomainError(apierrors.KindNotFound, "CRA not found")
	}
	if cra.CreatedByUserID != actorID {
		return nil, errForbidden
	}
	return cra, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequireAuth(t *testing.T) {
	log, _ := test.NewNullLogger()
	authenticator := &stubAuthenticator{tokens: map[string]uint64{"good": 42}, rejectAs: auth.ErrTokenClaimsMissing}

	router := gin.New()
	router.GET("/me", RequireAuth(authenticator, log), func(c *gin.Context) {
		userID, ok := GetUserID(c)
		require.True(t, ok)
		sessionID, ok := GetSessionID(c)
		require.True(t, ok)
		user, ok := GetCurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "session_id": sessionID, "email": user.Email})
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"claims missing", "Bearer incomplete", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRequireCraAccess(t *testing.T) {
	log, _ := test.NewNullLogger()
	loader := &stubCraLoader{cras: map[uint64]*models.Cra{1: {ID: 1, CreatedByUserID: 42}}}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if c.GetHeader("X-User") == "owner" {
			c.Set("user_id", uint64(42))
		} else if c.GetHeader("X-User") == "other" {
			c.Set("user_id", uint64(43))
		}
		c.Next()
	})
	router.GET("/cras/:id", RequireCraAccess(loader, log), func(c *gin.Context) {
		cra, ok := GetCra(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": cra.ID})
	})

	cases := []struct {
		name   string
		path   string
		user   string
		status int
	}{
		{"owner", "/cras/1", "owner", http.StatusOK},
		{"other user", "/cras/1", "other", http.StatusForbidden},
		{"missing", "/cras/2", "owner", http.StatusNotFound},
		{"bad id", "/cras/abc", "owner", http.StatusBadRequest},
		{"anonymous", "/cras/1", "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("X-User", tc.user)
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	log, hook := test.NewNullLogger()
	limiter := NewRateLimiter(1, 2, time.Minute, log)

	router := gin.New()
	router.POST("/auth/login", limiter.Handler(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, statuses)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Rate limit exceeded", hook.LastEntry().Message)

	// Another client has its own bucket.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimiterCleanup(t *testing.T) {
	log, _ := test.NewNullLogger()
	limiter := NewRateLimiter(1, 1, time.Minute, log)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }
	limiter.getLimiter("a")
	limiter.now = func() time.Time { return base.Add(30 * time.Second) }
	limiter.getLimiter("b")

	limiter.now = func() time.Time { return base.Add(75 * time.Second) }
	assert.Equal(t, 1, limiter.Cleanup())
	assert.Len(t, limiter.visitors, 1)
	assert.Contains(t, limiter.visitors, "b")
}
