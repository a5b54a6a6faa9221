package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/foresy-api/internal/constants"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"github.com/yukikurage/foresy-api/internal/metrics"
	"github.com/yukikurage/foresy-api/internal/models"
	"github.com/yukikurage/foresy-api/internal/repository"
	"gorm.io/gorm"
)

const (
	ProviderGoogle = "google_oauth2"
	ProviderGitHub = "github"
)

var (
	ErrUnsupportedProvider = apierrors.NewDomainError(apierrors.KindContractViolation, "unsupported oauth provider")
	ErrOAuthStateMismatch  = apierrors.NewDomainError(apierrors.KindUnauthorized, "invalid oauth state")
	ErrOAuthMissingCode    = apierrors.NewDomainError(apierrors.KindUnauthorized, "oauth callback is missing the authorization code")
	ErrOAuthMissingUID     = apierrors.NewDomainError(apierrors.KindUnauthorized, "oauth identity is missing uid")
	ErrOAuthPersistFailed  = apierrors.NewDomainError(apierrors.KindDomainValidation, "unable to persist oauth user")
)

var supportedProviders = map[string]bool{
	ProviderGoogle: true,
	ProviderGitHub: true,
}

// IsSupportedProvider reports whether the provider name can be used for login.
func IsSupportedProvider(provider string) bool {
	return supportedProviders[provider]
}

// OAuthPayload is the identity a provider vouched for after a verified code
// exchange. Email is empty unless the provider reports it verified.
type OAuthPayload struct {
	Provider string
	UID      string
	Email    string
	Name     string
	Nickname string
}

// CallbackInput is one provider redirect. ExpectedState is the value stored
// for this client; ReceivedState and Code come from the request.
type CallbackInput struct {
	Provider      string
	Code          string
	ExpectedState string
	ReceivedState string
	Client        ClientInfo
}

// OAuthService bridges provider identities to local users and sessions.
type OAuthService struct {
	userRepo repository.UserRepository
	auth     *AuthService
	verifier IdentityVerifier
	log      logrus.FieldLogger
	metrics  metrics.Sink
}

// NewOAuthService creates a new OAuthService.
func NewOAuthService(userRepo repository.UserRepository, authService *AuthService, verifier IdentityVerifier, log logrus.FieldLogger, sink metrics.Sink) *OAuthService {
	return &OAuthService{
		userRepo: userRepo,
		auth:     authService,
		verifier: verifier,
		log:      log,
		metrics:  sink,
	}
}

// AuthorizationURL returns the provider consent URL for state.
func (s *OAuthService) AuthorizationURL(provider, state string) (string, error) {
	if !IsSupportedProvider(provider) {
		return "", ErrUnsupportedProvider
	}
	return s.verifier.AuthCodeURL(provider, state)
}

// Callback verifies the authorization code with the provider, then finds or
// creates the user behind the verified identity and opens a session.
func (s *OAuthService) Callback(ctx context.Context, input CallbackInput) (*AuthResult, error) {
	if !IsSupportedProvider(input.Provider) {
		return nil, ErrUnsupportedProvider
	}
	if input.ExpectedState == "" || input.ExpectedState != input.ReceivedState {
		s.metrics.AuthEvent("oauth_callback", "state_mismatch")
		return nil, ErrOAuthStateMismatch
	}
	code := strings.TrimSpace(input.Code)
	if code == "" {
		s.metrics.AuthEvent("oauth_callback", "failure")
		return nil, ErrOAuthMissingCode
	}

	payload, err := s.verifier.Verify(ctx, input.Provider, code)
	if err != nil {
		s.metrics.AuthEvent("oauth_callback", "failure")
		s.log.WithFields(logrus.Fields{
			"provider":   input.Provider,
			"error_type": fmt.Sprintf("%T", err),
		}).Warn("OAuth code rejected")
		return nil, err
	}
	if payload.Provider != input.Provider {
		return nil, ErrOAuthVerificationFailed
	}
	uid := strings.TrimSpace(payload.UID)
	if uid == "" {
		s.metrics.AuthEvent("oauth_callback", "failure")
		return nil, ErrOAuthMissingUID
	}

	user, err := s.findOrInitialize(ctx, payload.Provider, uid)
	if err != nil {
		return nil, err
	}

	applyOAuthProfile(user, *payload)

	if err := s.persist(ctx, user); err != nil {
		s.metrics.AuthEvent("oauth_callback", "failure")
		s.log.WithFields(logrus.Fields{
			"provider":   payload.Provider,
			"error_type": fmt.Sprintf("%T", err),
		}).Warn("OAuth user could not be saved")
		return nil, apierrors.Wrap(ErrOAuthPersistFailed, "%v", err)
	}

	result, err := s.auth.openSession(ctx, user, input.Client)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent("oauth_callback", "success")
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "provider": payload.Provider}).Info("OAuth login")
	return result, nil
}

func (s *OAuthService) findOrInitialize(ctx context.Context, provider, uid string) (*models.User, error) {
	user, err := s.userRepo.FindByProviderUID(ctx, provider, uid)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find oauth user: %w", err)
	}

	return &models.User{Provider: &provider, UID: &uid}, nil
}

func (s *OAuthService) persist(ctx context.Context, user *models.User) error {
	if user.Email == "" {
		return models.ErrUserEmailRequired
	}

	existing, err := s.userRepo.FindByEmail(ctx, user.Email)
	if err == nil && existing.ID != user.ID {
		return ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	if user.ID == 0 {
		return s.userRepo.Create(ctx, user)
	}
	return s.userRepo.Save(ctx, user)
}

// applyOAuthProfile copies provider attributes onto the user. Existing names
// are kept; new users fall back from name to nickname to a default.
func applyOAuthProfile(user *models.User, payload OAuthPayload) {
	if email := normalizeEmail(payload.Email); email != "" {
		user.Email = email
	}

	if strings.TrimSpace(user.Name) != "" {
		return
	}
	switch {
	case strings.TrimSpace(payload.Name) != "":
		user.Name = strings.TrimSpace(payload.Name)
	case strings.TrimSpace(payload.Nickname) != "":
		user.Name = strings.TrimSpace(payload.Nickname)
	default:
		user.Name = constants.DefaultOAuthUserName
	}
}
