package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid database execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrStoreUnavailable   = errors.New("persistent store unavailable")

	// Payment verification errors
	ErrProviderUnavailable   = errors.New("payment provider unavailable")
	ErrPaymentNotCompleted   = errors.New("order is not completed at provider")
	ErrAmountMismatch        = errors.New("provider amount differs from expected amount")
	ErrManualConfirmDisabled = errors.New("manual payment confirmation is disabled")
	ErrRateLimited           = errors.New("too many attempts")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
	ErrSessionMismatch = errors.New("session device signature mismatch")
	ErrTokenInvalid    = errors.New("session token invalid")
)
