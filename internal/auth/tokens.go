package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apierrors "github.com/yukikurage/foresy-api/internal/errors"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrTokenInvalid       = apierrors.NewDomainError(apierrors.KindUnauthorized, "invalid token")
	ErrTokenExpired       = apierrors.NewDomainError(apierrors.KindUnauthorized, "token has expired")
	ErrTokenClaimsMissing = apierrors.NewDomainError(apierrors.KindUnauthorized, "token is missing required claims")
	ErrTokenWrongType     = apierrors.NewDomainError(apierrors.KindUnauthorized, "wrong token type")
)

// AccessClaims are carried by bearer tokens on every authenticated request.
type AccessClaims struct {
	UserID    uint64 `json:"user_id"`
	SessionID uint64 `json:"session_id"`
	Type      string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims are carried by refresh tokens. SessionID is optional; when it
// is absent the most recent active session of the user is used.
type RefreshClaims struct {
	UserID     uint64 `json:"user_id"`
	SessionID  uint64 `json:"session_id,omitempty"`
	RefreshExp int64  `json:"refresh_exp"`
	Type       string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is returned by login, signup, refresh and OAuth callbacks.
type TokenPair struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TokenManager signs and verifies HS256 tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// IssuePair signs an access and a refresh token for the session.
func (m *TokenManager) IssuePair(userID, sessionID uint64) (*TokenPair, error) {
	now := m.now()
	expiresAt := now.Add(m.accessTTL)

	access := AccessClaims{
		UserID:    userID,
		SessionID: sessionID,
		Type:      TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	accessToken, err := m.sign(access)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh := RefreshClaims{
		UserID:     userID,
		SessionID:  sessionID,
		RefreshExp: now.Add(m.refreshTTL).Unix(),
		Type:       TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	refreshToken, err := m.sign(refresh)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseAccess verifies an access token and returns its claims.
func (m *TokenManager) ParseAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrTokenWrongType
	}
	if claims.UserID == 0 || claims.SessionID == 0 {
		return nil, ErrTokenClaimsMissing
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token and checks refresh_exp against now.
func (m *TokenManager) ParseRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, ErrTokenWrongType
	}
	if claims.UserID == 0 || claims.RefreshExp == 0 {
		return nil, ErrTokenClaimsMissing
	}
	if claims.RefreshExp <= m.now().Unix() {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

func (m *TokenManager) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return apierrors.Wrap(ErrTokenInvalid, "%T", err)
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
