// Package otp issues and verifies one-time codes bound to a phone number.
//
// A challenge lives in a Cache under its verification id. Verify evaluates,
// in order: unknown id, expiry, exhausted budget, phone mismatch, and only
// then charges an attempt and compares the code.
package otp

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

const (
	DefaultTTL         = 5 * time.Minute
	DefaultRetention   = 5 * time.Minute
	DefaultMaxAttempts = 3
	CodeLength         = 6

	verificationPrefix = "ver_"
)

// Challenge is the cached state of one issued code. The code itself is not
// kept, only a hash bound to the verification id.
type Challenge struct {
	VerificationID string    `json:"verification_id"`
	Phone          string    `json:"phone"`
	CodeHash       string    `json:"code_hash"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Attempts       int       `json:"attempts"`
	MaxAttempts    int       `json:"max_attempts"`
}

// Status is the caller-visible view of a challenge.
type Status struct {
	VerificationID    string    `json:"verification_id"`
	Phone             string    `json:"phone"`
	ExpiresAt         time.Time `json:"expires_at"`
	RemainingAttempts int       `json:"remaining_attempts"`
}

func hashCode(verificationID, code string) string {
	sum := sha256.Sum256([]byte(verificationID + ":" + code))
	return hex.EncodeToString(sum[:])
}

func (c *Challenge) matches(code string) bool {
	want := []byte(c.CodeHash)
	got := []byte(hashCode(c.VerificationID, code))
	return subtle.ConstantTimeCompare(want, got) == 1
}

func (c *Challenge) expiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

func (c *Challenge) exhausted() bool {
	return c.Attempts >= c.MaxAttempts
}

func (c *Challenge) status() *Status {
	remaining := c.MaxAttempts - c.Attempts
	if remaining < 0 {
		remaining = 0
	}
	return &Status{
		VerificationID:    c.VerificationID,
		Phone:             c.Phone,
		ExpiresAt:         c.ExpiresAt,
		RemainingAttempts: remaining,
	}
}
