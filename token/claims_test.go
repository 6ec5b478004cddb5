package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/token"
	"github.com/jrsteele09/go-session-lifecycle/users"
	"github.com/stretchr/testify/require"
)

const secretStr = "1234"

func fixedNow() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestParseExpiry(t *testing.T) {
	issuer := token.NewIssuer(token.NewHMACSigner(secretStr),
		token.WithNowFunc(fixedNow),
		token.WithAccessTokenExpiry(15*time.Minute),
	)

	raw, exp, err := issuer.CreateAccessToken(&users.User{ID: "u1", Username: "ann", Role: users.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, fixedNow().Add(15*time.Minute), exp)

	parsed, err := token.ParseExpiry(raw)
	require.NoError(t, err)
	require.True(t, parsed.Equal(exp))

	claims, err := token.ParseClaims(raw)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Role)
	require.Equal(t, "u1", claims.Subject)
	require.NotEmpty(t, claims.ID)
}

func TestParseExpiry_ExpiredTokenStillParses(t *testing.T) {
	issuer := token.NewIssuer(token.NewHMACSigner(secretStr),
		token.WithNowFunc(func() time.Time { return fixedNow().Add(-2 * time.Hour) }),
	)
	raw, _, err := issuer.CreateAccessToken(&users.User{ID: "u1", Role: users.RoleEmployee})
	require.NoError(t, err)

	exp, err := token.ParseExpiry(raw)
	require.NoError(t, err)
	require.True(t, exp.Before(time.Now()))
}

func TestParseExpiry_Malformed(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"whitespace":   "   ",
		"not a jwt":    "opaque-token",
		"bad base64":   "a.b.c",
		"two segments": "eyJhbGciOiJIUzI1NiJ9.e30",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := token.ParseExpiry(raw)
			require.Error(t, err)
			require.ErrorIs(t, err, autherrors.ErrMalformedToken)
		})
	}
}

func TestParseExpiry_MissingExp(t *testing.T) {
	signer := token.NewHMACSigner(secretStr)
	raw, err := signer.Sign(jwt.MapClaims{"sub": "u1"})
	require.NoError(t, err)

	_, err = token.ParseExpiry(raw)
	require.ErrorIs(t, err, autherrors.ErrMalformedToken)
}

func TestIssuerVerify(t *testing.T) {
	now := fixedNow()
	issuer := token.NewIssuer(token.NewHMACSigner(secretStr),
		token.WithNowFunc(func() time.Time { return now }),
		token.WithAccessTokenExpiry(time.Minute),
		token.WithIssuer("mock-api"),
	)
	raw, _, err := issuer.CreateAccessToken(&users.User{ID: "u1", Role: users.RoleAnalyst})
	require.NoError(t, err)

	claims, err := issuer.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "mock-api", claims.Issuer)

	other := token.NewIssuer(token.NewHMACSigner("other"), token.WithNowFunc(func() time.Time { return now }))
	_, err = other.Verify(raw)
	require.Error(t, err)

	now = now.Add(2 * time.Minute)
	_, err = issuer.Verify(raw)
	require.Error(t, err)
}
