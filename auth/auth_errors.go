package auth

import "errors"

var (
	ErrInvalidClient     = errors.New("invalid client")
	ErrUnauthorizedGrant = errors.New("grant type not allowed for client")
	ErrUnsupportedGrant  = errors.New("unsupported grant type")
)
