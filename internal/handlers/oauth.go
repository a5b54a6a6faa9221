package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/foresy-api/internal/constants"
	"github.com/yukikurage/foresy-api/internal/dto"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"github.com/yukikurage/foresy-api/internal/services"
	"github.com/yukikurage/foresy-api/internal/utils"
)

// OAuthHandler exchanges provider identities for local sessions.
type OAuthHandler struct {
	oauthService *services.OAuthService
	log          logrus.FieldLogger
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(oauthService *services.OAuthService, log logrus.FieldLogger) *OAuthHandler {
	return &OAuthHandler{
		oauthService: oauthService,
		log:          log,
	}
}

// State issues a one-time state value for the provider, stores it in the
// client session and returns the consent URL that carries it.
func (h *OAuthHandler) State(c *gin.Context) {
	provider := c.Param("provider")
	if !services.IsSupportedProvider(provider) {
		apierrors.RespondWithServiceError(c, h.log, services.ErrUnsupportedProvider)
		return
	}

	state, err := utils.GenerateStateToken()
	if err != nil {
		apierrors.InternalError(c, "Failed to generate state")
		return
	}

	authURL, err := h.oauthService.AuthorizationURL(provider, state)
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	session := sessions.Default(c)
	session.Set(stateKey(provider), state)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.OAuthStateResponse{Provider: provider, State: state, AuthorizationURL: authURL})
}

// Callback exchanges the authorization code with the provider and signs in
// the user behind the verified identity.
func (h *OAuthHandler) Callback(c *gin.Context) {
	type CallbackRequest struct {
		State string `json:"state"`
		Code  string `json:"code"`
	}

	provider := c.Param("provider")
	if !services.IsSupportedProvider(provider) {
		apierrors.RespondWithServiceError(c, h.log, services.ErrUnsupportedProvider)
		return
	}

	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Unauthorized(c, "Missing OAuth callback payload")
		return
	}

	// The stored state is single use.
	session := sessions.Default(c)
	expected, _ := session.Get(stateKey(provider)).(string)
	session.Delete(stateKey(provider))
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	result, err := h.oauthService.Callback(c.Request.Context(), services.CallbackInput{
		Provider:      provider,
		Code:          req.Code,
		ExpectedState: expected,
		ReceivedState: req.State,
		Client:        clientInfo(c),
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAuthResponse(result))
}

func stateKey(provider string) string {
	return constants.SessionKeyOAuth + ":" + provider
}
