package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/foresy-api/internal/auth"
	"github.com/yukikurage/foresy-api/internal/constants"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"github.com/yukikurage/foresy-api/internal/metrics"
	"github.com/yukikurage/foresy-api/internal/models"
	"github.com/yukikurage/foresy-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailRequired      = apierrors.NewDomainError(apierrors.KindDomainValidation, "email is required")
	ErrEmailTaken         = apierrors.NewDomainError(apierrors.KindConflict, "email already exists")
	ErrPasswordTooShort   = apierrors.NewDomainError(apierrors.KindDomainValidation, fmt.Sprintf("password must be at least %d characters", constants.MinPasswordLength))
	ErrInvalidCredentials = apierrors.NewDomainError(apierrors.KindUnauthorized, "invalid email or password")
	ErrUserNotFound       = apierrors.NewDomainError(apierrors.KindUnauthorized, "user not found")
	ErrSessionNotFound    = apierrors.NewDomainError(apierrors.KindUnauthorized, "session not found")
	ErrSessionExpired     = apierrors.NewDomainError(apierrors.KindUnauthorized, "session has expired")
	ErrNoActiveSession    = apierrors.NewDomainError(apierrors.KindUnauthorized, "no active session")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	tokens      *auth.TokenManager
	sessionTTL  time.Duration
	log         logrus.FieldLogger
	metrics     metrics.Sink
	now         func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	tokens *auth.TokenManager,
	sessionTTL time.Duration,
	log logrus.FieldLogger,
	sink metrics.Sink,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		sessionTTL:  sessionTTL,
		log:         log,
		metrics:     sink,
		now:         time.Now,
	}
}

// ClientInfo describes the caller of a session-creating request.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// AuthResult is returned by every operation that opens a session.
type AuthResult struct {
	User    *models.User
	Session *models.Session
	Tokens  *auth.TokenPair
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Client   ClientInfo
}

// Signup creates a password user and opens a first session.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		s.metrics.AuthEvent("signup", "conflict")
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         strings.TrimSpace(input.Name),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	result, err := s.openSession(ctx, user, input.Client)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent("signup", "success")
	s.log.WithField("user_id", user.ID).Info("User signed up")
	return result, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
	Client   ClientInfo
}

// Login verifies credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.AuthEvent("login", "failure")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.PasswordHash == "" {
		s.metrics.AuthEvent("login", "failure")
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.metrics.AuthEvent("login", "failure")
		return nil, ErrInvalidCredentials
	}

	result, err := s.openSession(ctx, user, input.Client)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent("login", "success")
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "session_id": result.Session.ID}).Info("User logged in")
	return result, nil
}

// Refresh exchanges a refresh token for a new token pair. A token bound to a
// session only refreshes that session while it is active; tokens without a
// session claim use the user's most recent active session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		s.logAuthFailure("refresh", err)
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	var session *models.Session
	if claims.SessionID != 0 {
		session, err = s.sessionRepo.FindByID(ctx, claims.SessionID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find session: %w", err)
		}
		if session == nil || session.UserID != user.ID || !session.IsActive(now) {
			s.metrics.AuthEvent("refresh", "expired")
			return nil, ErrSessionExpired
		}
	} else {
		session, err = s.sessionRepo.FindLatestActive(ctx, user.ID, now)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.metrics.AuthEvent("refresh", "failure")
				return nil, ErrNoActiveSession
			}
			return nil, fmt.Errorf("failed to find active session: %w", err)
		}
	}

	session.Refresh(now, s.sessionTTL)
	if err := s.sessionRepo.Touch(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	pair, err := s.tokens.IssuePair(user.ID, session.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent("refresh", "success")
	return &AuthResult{User: user, Session: session, Tokens: pair}, nil
}

// Authenticate resolves a bearer token to its user and session, and slides
// the session expiry.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, *models.Session, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		s.logAuthFailure("authenticate", err)
		return nil, nil, err
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	session, err := s.sessionRepo.FindByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session.UserID != user.ID {
		return nil, nil, ErrSessionNotFound
	}

	now := s.now()
	if !session.IsActive(now) {
		s.metrics.AuthEvent("authenticate", "expired")
		return nil, nil, ErrSessionExpired
	}

	session.Refresh(now, s.sessionTTL)
	if err := s.sessionRepo.Touch(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	return user, session, nil
}

// Logout deactivates a single session.
func (s *AuthService) Logout(ctx context.Context, sessionID uint64) error {
	if err := s.sessionRepo.Deactivate(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	s.metrics.AuthEvent("logout", "success")
	return nil
}

// RevokeAll deactivates every active session of a user.
func (s *AuthService) RevokeAll(ctx context.Context, userID uint64) (int64, error) {
	count, err := s.sessionRepo.DeactivateAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	s.metrics.AuthEvent("revoke_all", "success")
	s.log.WithFields(logrus.Fields{"user_id": userID, "revoked": count}).Info("Revoked all sessions")
	return count, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// openSession persists a new session for the user and signs its tokens.
func (s *AuthService) openSession(ctx context.Context, user *models.User, client ClientInfo) (*AuthResult, error) {
	now := s.now()
	session := &models.Session{
		UserID:    user.ID,
		Active:    true,
		IPAddress: client.IPAddress,
		UserAgent: truncate(client.UserAgent, 512),
	}
	session.Refresh(now, s.sessionTTL)

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	pair, err := s.tokens.IssuePair(user.ID, session.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Session: session, Tokens: pair}, nil
}

// logAuthFailure records that a token was rejected. Only the error type is
// logged; token values and parser messages never reach the log.
func (s *AuthService) logAuthFailure(event string, err error) {
	s.metrics.AuthEvent(event, "failure")
	s.log.WithFields(logrus.Fields{
		"event":      event,
		"error_type": fmt.Sprintf("%T", err),
	}).Warn("Token rejected")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// truncate cuts value to at most max bytes without splitting a rune.
func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	for max > 0 && !utf8.RuneStart(value[max]) {
		max--
	}
	return value[:max]
}
