package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session lifecycle manager
var (
	// Authentication errors
	ErrLoginFailed        = errors.New("login failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrUnknownRole        = errors.New("unknown role")

	// Token errors
	ErrMalformedToken      = errors.New("malformed token")
	ErrTokenExpired        = errors.New("token expired")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Refresh errors
	ErrRefreshFailed   = errors.New("refresh failed")
	ErrRefreshInFlight = errors.New("refresh already in flight")
	ErrNotWarning      = errors.New("session is not in the warning phase")
	ErrSessionChanged  = errors.New("session changed during refresh")

	// Storage errors
	ErrCorruptedRecord = errors.New("corrupted session record")
	ErrStorageClosed   = errors.New("storage closed")

	// General errors
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join combines errors, dropping nils
func Join(errs ...error) error {
	return errors.Join(errs...)
}
