package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissionStatus_CanTransitionTo(t *testing.T) {
	order := []MissionStatus{
		MissionStatusLead,
		MissionStatusPending,
		MissionStatusWon,
		MissionStatusInProgress,
		MissionStatusCompleted,
	}

	for i, from := range order {
		for j, to := range order {
			expected := j == i+1
			assert.Equal(t, expected, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.False(t, MissionStatusWon.CanTransitionTo(MissionStatusLead))
	assert.False(t, MissionStatusCompleted.CanTransitionTo(MissionStatusInProgress))
	assert.False(t, MissionStatus("archived").Valid())
}

func TestCraStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, CraStatusDraft.CanTransitionTo(CraStatusSubmitted))
	assert.True(t, CraStatusSubmitted.CanTransitionTo(CraStatusLocked))

	assert.False(t, CraStatusDraft.CanTransitionTo(CraStatusLocked))
	assert.False(t, CraStatusSubmitted.CanTransitionTo(CraStatusDraft))
	assert.False(t, CraStatusLocked.CanTransitionTo(CraStatusDraft))
	assert.False(t, CraStatusLocked.CanTransitionTo(CraStatusSubmitted))
}

func TestCra_RecalculateTotals(t *testing.T) {
	cra := &Cra{Year: 2026, Month: 1}
	cra.RecalculateTotals([]CraEntry{
		{Quantity: decimal.RequireFromString("1.0"), UnitPrice: 50000},
		{Quantity: decimal.RequireFromString("0.5"), UnitPrice: 60001},
	})

	assert.True(t, cra.TotalDays.Equal(decimal.RequireFromString("1.5")))
	// 0.5 * 60001 = 30000.5 rounds to 30001
	assert.Equal(t, int64(80001), cra.TotalAmount)

	cra.RecalculateTotals(nil)
	assert.True(t, cra.TotalDays.IsZero())
	assert.Equal(t, int64(0), cra.TotalAmount)
}

func TestCra_Contains(t *testing.T) {
	cra := &Cra{Year: 2026, Month: 1}
	assert.True(t, cra.Contains(time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, cra.Contains(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, cra.Contains(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
}

func TestSession_IsActiveAndRefresh(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	session := &Session{Active: true, ExpiresAt: now.Add(time.Minute)}
	assert.True(t, session.IsActive(now))
	assert.False(t, session.IsActive(now.Add(2*time.Minute)))

	session.Refresh(now.Add(2*time.Minute), time.Hour)
	assert.True(t, session.IsActive(now.Add(2*time.Minute)))
	assert.Equal(t, now.Add(2*time.Minute), session.LastActivityAt)

	session.Active = false
	assert.False(t, session.IsActive(now))
}

func TestUser_BeforeSave(t *testing.T) {
	provider, uid := "github", "42"

	passwordUser := &User{Email: " Alice@Example.com ", PasswordHash: "hash"}
	require.NoError(t, passwordUser.BeforeSave(nil))
	assert.Equal(t, "alice@example.com", passwordUser.Email)

	oauthUser := &User{Email: "bob@example.com", Provider: &provider, UID: &uid}
	require.NoError(t, oauthUser.BeforeSave(nil))

	both := &User{Email: "carol@example.com", PasswordHash: "hash", Provider: &provider, UID: &uid}
	assert.ErrorIs(t, both.BeforeSave(nil), ErrUserAuthMethodConflict)

	neither := &User{Email: "dave@example.com"}
	assert.ErrorIs(t, neither.BeforeSave(nil), ErrUserAuthMethodMissing)

	blank := &User{PasswordHash: "hash"}
	assert.ErrorIs(t, blank.BeforeSave(nil), ErrUserEmailRequired)
}
