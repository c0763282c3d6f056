package auth

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/pagehub/go-pagechat/internal/types"
	"github.com/teris-io/shortid"
)

// ErrAuthenticationFailed is returned when a supplied credential is
// expired, malformed or carries a bad signature. Callers must refuse
// the connection rather than downgrade to anonymous.
var ErrAuthenticationFailed = errors.New("authentication failed")

const (
	userIdClaim   = "user_id"
	usernameClaim = "username"
	roleClaim     = "role"
	expClaim      = "exp"
)

type TokenVerifier struct {
	signingKey []byte
}

func NewTokenVerifier(signingKey []byte) *TokenVerifier {
	return &TokenVerifier{signingKey: signingKey}
}

// Verify resolves a bearer credential to an identity. An empty
// credential yields a freshly generated anonymous identity and never
// fails; a non-empty credential must verify or the caller gets
// ErrAuthenticationFailed.
func (v *TokenVerifier) Verify(credential string) (types.Identity, error) {
	if credential == "" {
		return v.anonymousIdentity(), nil
	}

	token, err := jwt.Parse(credential, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil || !token.Valid {
		return types.Identity{}, ErrAuthenticationFailed
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return types.Identity{}, ErrAuthenticationFailed
	}

	userId, ok := claims[userIdClaim].(string)
	if !ok || userId == "" {
		return types.Identity{}, ErrAuthenticationFailed
	}

	username, ok := claims[usernameClaim].(string)
	if !ok || username == "" {
		return types.Identity{}, ErrAuthenticationFailed
	}

	// role is optional, defaults to a regular user
	role, _ := claims[roleClaim].(string)
	if role == "" {
		role = types.RoleUser
	}

	return types.Identity{
		Id:       userId,
		Username: username,
		Role:     role,
	}, nil
}

func (v *TokenVerifier) anonymousIdentity() types.Identity {
	return types.Identity{
		Id:        "anon-" + shortid.MustGenerate(),
		Username:  fmt.Sprintf("Guest#%04d", rand.Intn(10000)),
		Anonymous: true,
	}
}

// NewToken signs a token carrying the claims Verify expects.
// Issuance and refresh live in the account service; this exists so
// other components can mint tokens against the same key.
func NewToken(signingKey []byte, identity types.Identity, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim:   identity.Id,
		usernameClaim: identity.Username,
		roleClaim:     identity.Role,
		expClaim:      time.Now().Add(exp).Unix(),
	})

	return token.SignedString(signingKey)
}
