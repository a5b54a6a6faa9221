package middleware

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/foresy-api/internal/constants"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"github.com/yukikurage/foresy-api/internal/models"
)

// CraLoader loads a CRA on behalf of its creator.
type CraLoader interface {
	GetCra(ctx context.Context, actorID, craID uint64) (*models.Cra, error)
}

// EntryLoader loads a live entry of a CRA on behalf of the CRA creator.
type EntryLoader interface {
	GetEntry(ctx context.Context, actorID, craID, entryID uint64) (*models.CraEntry, error)
}

// RequireCraAccess checks that the CRA in the :id parameter exists and
// belongs to the current user
func RequireCraAccess(loader CraLoader, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		craID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid CRA ID")
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}

		cra, err := loader.GetCra(c.Request.Context(), userID, craID)
		if err != nil {
			apierrors.RespondWithServiceError(c, log, err)
			return
		}

		c.Set(constants.ContextKeyCra, cra)
		c.Next()
	}
}

// RequireCraEntryAccess loads the entry in the :entry_id parameter. It must
// run after RequireCraAccess.
func RequireCraEntryAccess(loader EntryLoader, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cra, ok := GetCra(c)
		if !ok {
			apierrors.NotFound(c, "CRA not found")
			return
		}

		entryID, err := strconv.ParseUint(c.Param("entry_id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid entry ID")
			return
		}

		userID, _ := GetUserID(c)
		entry, err := loader.GetEntry(c.Request.Context(), userID, cra.ID, entryID)
		if err != nil {
			apierrors.RespondWithServiceError(c, log, err)
			return
		}

		c.Set(constants.ContextKeyCraEntry, entry)
		c.Next()
	}
}

// GetCra retrieves the CRA loaded by RequireCraAccess
func GetCra(c *gin.Context) (*models.Cra, bool) {
	value, exists := c.Get(constants.ContextKeyCra)
	if !exists {
		return nil, false
	}
	cra, ok := value.(*models.Cra)
	return cra, ok
}

// GetCraEntry retrieves the entry loaded by RequireCraEntryAccess
func GetCraEntry(c *gin.Context) (*models.CraEntry, bool) {
	value, exists := c.Get(constants.ContextKeyCraEntry)
	if !exists {
		return nil, false
	}
	entry, ok := value.(*models.CraEntry)
	return entry, ok
}
