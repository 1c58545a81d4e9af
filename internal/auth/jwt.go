// README: JWT verification for API callers. Tokens carry the caller's id
// and role; everything downstream works with types.Principal.
package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"kedai/internal/fault"
	"kedai/internal/types"
)

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verify parses and validates a bearer token and returns the caller it
// identifies. The system role is never accepted from a token.
func (v *Verifier) Verify(token string) (types.Principal, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fault.New(fault.Unauthenticated, "unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return types.Principal{}, fault.New(fault.Unauthenticated, "invalid token")
	}

	role := types.Role(c.Role)
	if !role.Valid() || role == types.RoleSystem {
		return types.Principal{}, fault.New(fault.Unauthenticated, "invalid role claim")
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return types.Principal{}, fault.New(fault.Unauthenticated, "invalid subject claim")
	}
	return types.Principal{ID: id, Role: role}, nil
}

// BuildToken signs a token for the given principal. Used by the login flow
// and by tests that need authenticated requests.
func BuildToken(secret string, p types.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", fault.Wrap(err)
	}
	return signed, nil
}
