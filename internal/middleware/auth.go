package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/foresy-api/internal/constants"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"github.com/yukikurage/foresy-api/internal/models"
)

// Authenticator resolves a bearer token to its user and live session.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, *models.Session, error)
}

// RequireAuth checks the bearer token and loads the current user and session
func RequireAuth(authenticator Authenticator, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			apierrors.Unauthorized(c, "Missing or invalid Authorization header")
			return
		}

		user, session, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			apierrors.RespondWithServiceError(c, log, err)
			return
		}

		// Store identity in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeySessionID, session.ID)
		c.Set(constants.ContextKeyUser, user)
		c.Set(constants.ContextKeySession, session)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetSessionID retrieves the current session ID from context
func GetSessionID(c *gin.Context) (uint64, bool) {
	sessionID, exists := c.Get(constants.ContextKeySessionID)
	if !exists {
		return 0, false
	}
	id, ok := sessionID.(uint64)
	return id, ok
}

// GetCurrentUser retrieves the authenticated user from context
func GetCurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}
