package auth

import (
	"testing"
	"time"

	"draftly/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
		ResetExpiry:   time.Hour,
		Issuer:        "draftly-test",
	}
}

func TestAccessTokenRoundtrip(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateAccessToken(cfg, 42, "a@b.c")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.NotEmpty(t, claims.ID, "access tokens need a jti for revocation")
}

func TestAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateAccessToken(cfg, 1, "a@b.c")
	require.NoError(t, err)

	other := testJWTConfig()
	other.AccessSecret = "different"
	_, err = ParseAccessToken(other, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.AccessExpiry = -time.Minute
	token, err := GenerateAccessToken(cfg, 1, "a@b.c")
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenRoundtrip(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateRefreshToken(cfg, 7)
	require.NoError(t, err)

	userID, jti, err := ParseRefreshToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), userID)
	assert.NotEmpty(t, jti)
}

// The two token families are signed with different secrets, so neither parses
// as the other.
func TestTokenFamiliesAreNotInterchangeable(t *testing.T) {
	cfg := testJWTConfig()
	access, err := GenerateAccessToken(cfg, 1, "a@b.c")
	require.NoError(t, err)
	refresh, err := GenerateRefreshToken(cfg, 1)
	require.NoError(t, err)

	_, _, err = ParseRefreshToken(cfg, access)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ParseAccessToken(cfg, refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetTokenRoundtrip(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateResetToken(cfg, 9)
	require.NoError(t, err)

	userID, err := ParseResetToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, uint(9), userID)
}

// Reset tokens share the access secret but carry a dedicated audience, so an
// access token can never pass as a reset link and vice versa.
func TestResetTokenAudienceIsolation(t *testing.T) {
	cfg := testJWTConfig()
	access, err := GenerateAccessToken(cfg, 9, "a@b.c")
	require.NoError(t, err)
	_, err = ParseResetToken(cfg, access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	reset, err := GenerateResetToken(cfg, 9)
	require.NoError(t, err)
	claims, err := ParseAccessToken(cfg, reset)
	if err == nil {
		// Even if it parses structurally, it must not carry a usable identity.
		assert.Zero(t, claims.UserID)
	}
}

func TestResetTokenExpires(t *testing.T) {
	cfg := testJWTConfig()
	cfg.ResetExpiry = -time.Minute
	token, err := GenerateResetToken(cfg, 9)
	require.NoError(t, err)

	_, err = ParseResetToken(cfg, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
