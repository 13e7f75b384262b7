package model

import "errors"

var (
	// User related errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrCredentialInvalid = errors.New("invalid credentials")

	// Refresh token related errors
	ErrTokenNotFound        = errors.New("refresh token not found")
	ErrRefreshTokenInvalid  = errors.New("invalid refresh token")
	ErrRefreshTokenMismatch = errors.New("refresh token is expired or does not match")

	// Returned by handlers that need a principal the interceptor did not set
	ErrUnauthorized = errors.New("unauthorized")
)
