package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-lifecycle/users"
)

// Issuer creates signed access tokens. It backs the mock remote API.
type Issuer struct {
	signer            Signer
	issuer            string
	audience          string
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type IssuerOption func(*Issuer)

// WithAccessTokenExpiry sets the lifetime of issued access tokens. Defaults to an hour.
func WithAccessTokenExpiry(expiry time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.accessTokenExpiry = expiry
	}
}

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func WithIssuer(issuer string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = issuer
	}
}

func WithAudience(audience string) IssuerOption {
	return func(i *Issuer) {
		i.audience = audience
	}
}

// NewIssuer creates an Issuer signing with signer.
func NewIssuer(signer Signer, options ...IssuerOption) *Issuer {
	i := &Issuer{
		signer: signer,
	}
	for _, opt := range options {
		opt(i)
	}
	if i.accessTokenExpiry == 0 {
		i.accessTokenExpiry = time.Hour
	}
	if i.nowFunc == nil {
		i.nowFunc = time.Now
	}
	return i
}

// AccessTokenExpiry is the lifetime given to each issued access token.
func (i *Issuer) AccessTokenExpiry() time.Duration {
	return i.accessTokenExpiry
}

// CreateAccessToken signs an access token for user.
func (i *Issuer) CreateAccessToken(user *users.User) (string, time.Time, error) {
	now := i.nowFunc()
	exp := now.Add(i.accessTokenExpiry)

	claims := AccessClaims{
		Role:     string(user.Role),
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(), // Unique token ID
		},
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("Issuer.CreateAccessToken: %w", err)
	}
	return signed, exp, nil
}

// Verify parses and validates a token issued by this Issuer.
func (i *Issuer) Verify(rawToken string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(rawToken, claims, i.signer.GetVerificationKey,
		jwt.WithTimeFunc(i.nowFunc),
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}
