// Package common defines shared constants and sentinel errors used across
// the Tagzilla core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store errors.
	ErrNotReady           = errors.New("store not ready")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrTransactionFailure = errors.New("transaction failure")

	// Credential errors.
	ErrInvalidCredential = errors.New("invalid credential")
	ErrInvalidToken      = errors.New("invalid token")

	// OTP challenge errors.
	ErrInvalidVerificationID = errors.New("invalid verification id")
	ErrExpired               = errors.New("expired")
	ErrExhausted             = errors.New("maximum verification attempts exceeded")
	ErrPhoneMismatch         = errors.New("phone number mismatch")
	ErrInvalidCode           = errors.New("invalid code")
	ErrRateLimited           = errors.New("rate limited")
	ErrDeliveryFailed        = errors.New("delivery failed")

	// Input errors.
	ErrValidation = errors.New("validation error")
)
