package queries

import (
	"testing"
	"time"

	"oposiciones/models"
	"oposiciones/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func security() SecurityConfig {
	return SecurityConfig{JwtSecret: "s3cret", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour, RefreshTokenLen: 32}
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	database := SetupTestDB(t)

	u, err := CreateUser(database, models.User{Name: " Ana ", Email: "Ana@Example.com", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Empty(t, u.Password)
	assert.False(t, u.Admin)

	_, err = CreateUser(database, models.User{Name: "Ana", Email: "ana@example.com", Password: "longenough"})
	requireErrorIs(t, err, ErrConflict)

	_, err = CreateUser(database, models.User{Name: "Ana", Email: "not-an-email", Password: "longenough"})
	requireErrorIs(t, err, ErrValidation)

	_, err = CreateUser(database, models.User{Name: "Ana", Email: "b@example.com", Password: "short"})
	requireErrorIs(t, err, ErrValidation)

	got, err := Authenticate(database, "ANA@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = Authenticate(database, "ana@example.com", "wrong-password")
	requireErrorIs(t, err, ErrUnauthorized)
	_, err = Authenticate(database, "nobody@example.com", "longenough")
	requireErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, database.Model(&models.User{}).Where("id = ?", u.ID).Update("status", models.USER_STATUS_BLOCKED).Error)
	_, err = Authenticate(database, "ana@example.com", "longenough")
	requireErrorIs(t, err, ErrForbidden)
}

func TestSessionAndRotation(t *testing.T) {
	database := SetupTestDB(t)
	u := newUser(t, database, "rot@example.com")

	s, err := NewSession(database, security(), u, "ua", testNow)
	require.NoError(t, err)
	claims, err := tools.ParseAccessToken("s3cret", s.AccessToken, testNow)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID())
	assert.Equal(t, testNow.Add(time.Hour).Unix(), s.AccessExpiresAt)

	// a second login: both refresh tokens are active
	s2, err := NewSession(database, security(), u, "ua2", testNow)
	require.NoError(t, err)

	rotated, err := RotateRefreshToken(database, security(), s.RefreshToken, "ua", testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.NotEqual(t, s.RefreshToken, rotated.RefreshToken)

	// rotation revokes every previous token
	_, err = RotateRefreshToken(database, security(), s.RefreshToken, "ua", testNow.Add(2*time.Minute))
	requireErrorIs(t, err, ErrUnauthorized)
	_, err = RotateRefreshToken(database, security(), s2.RefreshToken, "ua", testNow.Add(2*time.Minute))
	requireErrorIs(t, err, ErrUnauthorized)

	// expired
	_, err = RotateRefreshToken(database, security(), rotated.RefreshToken, "ua", testNow.Add(48*time.Hour))
	requireErrorIs(t, err, ErrUnauthorized)

	_, err = RotateRefreshToken(database, security(), "", "ua", testNow)
	requireErrorIs(t, err, ErrValidation)
}

func TestUpdateUserProfileFiltersFields(t *testing.T) {
	w := setupWorld(t)

	u, err := UpdateUserProfile(w.DB, w.User.ID, map[string]any{
		"name":                "Lucía P.",
		"city":                "Sevilla",
		"admin":               true,
		"email":               "hacker@example.com",
		"target_oposicion_id": float64(w.Oposicion.ID),
		"unknown":             "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "Lucía P.", u.Name)
	assert.Equal(t, "Sevilla", u.City)
	assert.False(t, u.Admin)
	assert.Equal(t, "lucia@example.com", u.Email)
	require.NotNil(t, u.TargetOposicionID)
	assert.Equal(t, w.Oposicion.ID, *u.TargetOposicionID)

	_, err = UpdateUserProfile(w.DB, w.User.ID, map[string]any{"target_oposicion_id": float64(9999)})
	requireErrorIs(t, err, ErrNotFound)
	_, err = UpdateUserProfile(w.DB, w.User.ID, map[string]any{"name": "  "})
	requireErrorIs(t, err, ErrValidation)
}

func TestTouchLastActiveIsHourly(t *testing.T) {
	database := SetupTestDB(t)
	u := newUser(t, database, "touch@example.com")

	require.NoError(t, TouchLastActive(database, u, testNow))
	u, _ = GetUser(database, u.ID)
	require.NotNil(t, u.LastActiveAt)
	assert.True(t, u.LastActiveAt.Equal(testNow))

	require.NoError(t, TouchLastActive(database, u, testNow.Add(30*time.Minute)))
	u, _ = GetUser(database, u.ID)
	assert.True(t, u.LastActiveAt.Equal(testNow))

	require.NoError(t, TouchLastActive(database, u, testNow.Add(2*time.Hour)))
	u, _ = GetUser(database, u.ID)
	assert.True(t, u.LastActiveAt.Equal(testNow.Add(2*time.Hour)))
}
