// README: JWT verifier tests.
package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kedai/internal/auth"
	"kedai/internal/fault"
	"kedai/internal/types"
)

const secret = "test-secret"

func TestVerifyRoundTrip(t *testing.T) {
	token, err := auth.BuildToken(secret, types.Principal{ID: 42, Role: types.RoleCourier}, time.Hour)
	require.NoError(t, err)

	p, err := auth.NewVerifier(secret).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.ID)
	assert.Equal(t, types.RoleCourier, p.Role)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := auth.BuildToken(secret, types.Principal{ID: 1, Role: types.RoleCustomer}, time.Hour)
	require.NoError(t, err)

	_, err = auth.NewVerifier("other-secret").Verify(token)
	assert.True(t, fault.Is(err, fault.Unauthenticated))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	token, err := auth.BuildToken(secret, types.Principal{ID: 1, Role: types.RoleCustomer}, -time.Minute)
	require.NoError(t, err)

	_, err = auth.NewVerifier(secret).Verify(token)
	assert.True(t, fault.Is(err, fault.Unauthenticated))
}

func TestVerifyRejectsSystemRole(t *testing.T) {
	token, err := auth.BuildToken(secret, types.Principal{ID: 1, Role: types.RoleSystem}, time.Hour)
	require.NoError(t, err)

	_, err = auth.NewVerifier(secret).Verify(token)
	assert.True(t, fault.Is(err, fault.Unauthenticated))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := auth.NewVerifier(secret).Verify("not.a.token")
	assert.True(t, fault.Is(err, fault.Unauthenticated))
}
