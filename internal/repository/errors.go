// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish between the different redemption failure scenarios the
// entitlement engine produces. Every redemption failure is recoverable and
// user-facing: the caller is left ungated and may start a fresh flow.
package repository

import "errors"

// ErrTokenNotFound is returned when no verification token matches the
// presented secret or code. Handlers translate this into the
// "invalid_token" outcome.
var ErrTokenNotFound = errors.New("verification token not found")

// ErrTokenUsed is returned when a verification token has already been
// redeemed. Redemption is idempotently rejected, never silently repeated.
var ErrTokenUsed = errors.New("verification token already used")

// ErrTokenExpired is returned when a verification token (or its manual
// code) is past its validity window.
var ErrTokenExpired = errors.New("verification token expired")

// ErrPasswordInvalid is returned when no active batch access password
// matches the presented string.
var ErrPasswordInvalid = errors.New("batch password invalid")

// ErrPasswordExpired is returned when a matching batch access password is
// past its own validity window.
var ErrPasswordExpired = errors.New("batch password expired")

// ErrPasswordExhausted is returned when a matching batch access password
// has no redemption slots left. Concurrent redemptions racing for the last
// slot surface this error on every attempt but one.
var ErrPasswordExhausted = errors.New("batch password exhausted")

// ErrNoEntitlement is returned when a user holds no entitlement row at
// all. Callers that only care about validity should also check the row's
// expiry themselves.
var ErrNoEntitlement = errors.New("no entitlement")
