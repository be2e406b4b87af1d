package service

import "errors"

// Sentinel errors for the token lifecycle. Callers classify with errors.Is
// and map them to transport status codes.
var (
	ErrTokenMissing   = errors.New("token not provided")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrRotationRejected is the single outcome for every failed rotation
	// step. The reason is logged, never returned, so responses do not
	// reveal which part of the credential pair was wrong.
	ErrRotationRejected = errors.New("invalid or expired refresh token")

	ErrRefreshRecordNotFound = errors.New("refresh record not found")
	ErrStoreUnavailable      = errors.New("refresh token store unavailable")
)
