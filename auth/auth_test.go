package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lakeview/frontdesk-engine/auth"
	"github.com/lakeview/frontdesk-engine/core"
)

func newTestService(t *testing.T) *auth.Service {
	t.Helper()
	svc := auth.NewService("test-secret")
	require.NoError(t, svc.AddUser("owner", "owner-pass", core.RoleOwner))
	require.NoError(t, svc.AddUser("manager", "manager-pass", core.RoleManager))
	return svc
}

func TestAuthenticate_RoundTrip(t *testing.T) {
	svc := newTestService(t)

	token, role, err := svc.Authenticate("owner", "owner-pass")
	require.NoError(t, err)
	require.Equal(t, core.RoleOwner, role)
	require.NotEmpty(t, token)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "owner", claims.Username)
	require.Equal(t, core.RoleOwner, claims.Role)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Authenticate("owner", "nope")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Authenticate("ghost", "owner-pass")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestParseToken_Garbage(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ParseToken("not.a.token")
	require.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestParseToken_WrongSecret(t *testing.T) {
	svc := newTestService(t)
	other := auth.NewService("different-secret")

	token, _, err := svc.Authenticate("manager", "manager-pass")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	require.ErrorIs(t, err, auth.ErrTokenInvalid)
}
