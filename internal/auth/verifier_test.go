package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/pagehub/go-pagechat/internal/types"
	"github.com/stretchr/testify/assert"
)

var testSigningKey = []byte("test-signing-key")

func TestVerify_Anonymous(t *testing.T) {
	v := NewTokenVerifier(testSigningKey)

	first, err := v.Verify("")
	assert.NoError(t, err, "expected anonymous verification to never fail")
	assert.True(t, first.Anonymous, "expected identity to be anonymous")
	assert.True(t, strings.HasPrefix(first.Id, "anon-"), "expected generated id to carry the anon prefix, got %q", first.Id)
	assert.Regexp(t, `^Guest#\d{4}$`, first.Username, "expected a generated guest display name")

	second, err := v.Verify("")
	assert.NoError(t, err, "expected anonymous verification to never fail")
	assert.NotEqual(t, first.Id, second.Id, "expected each anonymous identity to be unique")
}

func TestVerify_ValidToken(t *testing.T) {
	v := NewTokenVerifier(testSigningKey)

	token, err := NewToken(testSigningKey, types.Identity{
		Id:       "user-1",
		Username: "alice",
		Role:     types.RoleAdmin,
	}, time.Hour)
	assert.NoError(t, err, "expected token creation to succeed")

	identity, err := v.Verify(token)
	assert.NoError(t, err, "expected valid token to verify")
	assert.Equal(t, "user-1", identity.Id, "expected user id claim to be extracted")
	assert.Equal(t, "alice", identity.Username, "expected username claim to be extracted")
	assert.Equal(t, types.RoleAdmin, identity.Role, "expected role claim to be extracted")
	assert.False(t, identity.Anonymous, "expected identity to be authenticated")
}

func TestVerify_DefaultsRole(t *testing.T) {
	v := NewTokenVerifier(testSigningKey)

	token, err := NewToken(testSigningKey, types.Identity{
		Id:       "user-2",
		Username: "bob",
	}, time.Hour)
	assert.NoError(t, err, "expected token creation to succeed")

	identity, err := v.Verify(token)
	assert.NoError(t, err, "expected valid token to verify")
	assert.Equal(t, types.RoleUser, identity.Role, "expected missing role to default to user")
}

func TestVerify_Failures(t *testing.T) {
	v := NewTokenVerifier(testSigningKey)

	expired, err := NewToken(testSigningKey, types.Identity{
		Id:       "user-1",
		Username: "alice",
	}, -time.Hour)
	assert.NoError(t, err, "expected token creation to succeed")

	wrongKey, err := NewToken([]byte("other-key"), types.Identity{
		Id:       "user-1",
		Username: "alice",
	}, time.Hour)
	assert.NoError(t, err, "expected token creation to succeed")

	missingClaims := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	missingClaimsToken, err := missingClaims.SignedString(testSigningKey)
	assert.NoError(t, err, "expected token creation to succeed")

	tcases := []struct {
		name       string
		credential string
	}{
		{
			name:       "malformed token",
			credential: "not-a-token",
		},
		{
			name:       "expired token",
			credential: expired,
		},
		{
			name:       "bad signature",
			credential: wrongKey,
		},
		{
			name:       "missing identity claims",
			credential: missingClaimsToken,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(tc.credential)
			assert.ErrorIs(t, err, ErrAuthenticationFailed, "expected authentication failure")
		})
	}
}
