package auth

import (
	"errors"

	"github.com/dmitrijs2005/tagzilla/internal/common"
)

// Code is a stable, machine-readable outcome identifier.
type Code string

const (
	CodeOK                    Code = "OK"
	CodeNotReady              Code = "NOT_READY"
	CodeNotFound              Code = "NOT_FOUND"
	CodeConflict              Code = "CONFLICT"
	CodeInvalidCredential     Code = "INVALID_CREDENTIAL"
	CodeInvalidVerificationID Code = "INVALID_VERIFICATION_ID"
	CodeExpired               Code = "EXPIRED"
	CodeExhausted             Code = "EXHAUSTED"
	CodePhoneMismatch         Code = "PHONE_MISMATCH"
	CodeInvalidCode           Code = "INVALID_CODE"
	CodeTransactionFailure    Code = "TRANSACTION_FAILURE"
	CodeValidation            Code = "VALIDATION_ERROR"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeRateLimited           Code = "RATE_LIMITED"
	CodeInternal              Code = "INTERNAL_ERROR"
)

// Result is the uniform outcome of every Service call.
type Result struct {
	Success bool   `json:"success"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Payload any    `json:"payload,omitempty"`
}

func ok(message string, payload any) Result {
	return Result{Success: true, Code: CodeOK, Message: message, Payload: payload}
}

var errorTable = []struct {
	err     error
	code    Code
	message string
}{
	{common.ErrNotReady, CodeNotReady, "Storage is still starting up. Please try again."},
	{common.ErrConflict, CodeConflict, "User with this email already exists."},
	{common.ErrInvalidCredential, CodeInvalidCredential, "Invalid password."},
	{common.ErrInvalidToken, CodeUnauthorized, "Invalid or expired session. Please log in again."},
	{common.ErrInvalidVerificationID, CodeInvalidVerificationID, "Invalid verification ID"},
	{common.ErrExpired, CodeExpired, "OTP has expired"},
	{common.ErrExhausted, CodeExhausted, "Maximum verification attempts exceeded"},
	{common.ErrPhoneMismatch, CodePhoneMismatch, "Phone number mismatch"},
	{common.ErrInvalidCode, CodeInvalidCode, "Invalid OTP"},
	{common.ErrRateLimited, CodeRateLimited, "Too many OTP requests. Please wait before trying again."},
	{common.ErrNotFound, CodeNotFound, "User not found."},
	{common.ErrTransactionFailure, CodeTransactionFailure, "Storage operation failed. Please try again."},
}

// fail translates err into a failed Result. ErrNotReady is matched before
// anything it may wrap.
func fail(err error) Result {
	if errors.Is(err, common.ErrValidation) {
		return Result{Code: CodeValidation, Message: validationMessage(err)}
	}
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return Result{Code: e.code, Message: e.message}
		}
	}
	return Result{Code: CodeInternal, Message: "Something went wrong. Please try again."}
}

func (r Result) withMessage(msg string) Result {
	r.Message = msg
	return r
}
