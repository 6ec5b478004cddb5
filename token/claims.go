package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
)

// AccessClaims are the claims carried by an access token.
type AccessClaims struct {
	Role     string `json:"role,omitempty"`     // Single role claim
	Username string `json:"username,omitempty"` // Login name of the subject
	jwt.RegisteredClaims
}

// ParseClaims decodes an access token without verifying its signature.
// The client cannot verify tokens; it only needs the self-described expiry.
// A token without an exp claim is malformed.
func ParseClaims(rawToken string) (*AccessClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, fmt.Errorf("empty token: %w", autherrors.ErrMalformedToken)
	}

	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", autherrors.ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("token missing exp claim: %w", autherrors.ErrMalformedToken)
	}
	return claims, nil
}

// ParseExpiry returns the expiration instant embedded in an access token.
func ParseExpiry(rawToken string) (time.Time, error) {
	claims, err := ParseClaims(rawToken)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}
