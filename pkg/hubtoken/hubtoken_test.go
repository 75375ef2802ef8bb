package hubtoken_test

import (
	"testing"

	"github.com/spintrade/orion-broker/pkg/hubtoken"
	"github.com/stretchr/testify/require"
)

func TestAuthorizationHeader(t *testing.T) {
	t.Parallel()

	header, err := hubtoken.AuthorizationHeader("secret", "broker")
	require.NoError(t, err)
	require.Contains(t, header, "Bearer ")

	require.NoError(t, hubtoken.VerifyAuthorizationHeader("secret", header))
	require.ErrorIs(
		t, hubtoken.VerifyAuthorizationHeader("other", header),
		hubtoken.ErrInvalidToken,
	)
	require.ErrorIs(
		t, hubtoken.VerifyAuthorizationHeader("secret", ""),
		hubtoken.ErrMissingToken,
	)
	require.ErrorIs(
		t, hubtoken.VerifyAuthorizationHeader("secret", "Bearer garbage"),
		hubtoken.ErrInvalidToken,
	)
}
