// Package domain contains core business types and interfaces.
//
// This file defines token-related constants for email verification codes,
// password reset links and API access tokens.
package domain

import "time"

const (
	// OTPDuration is how long an emailed verification code remains valid.
	OTPDuration = 10 * time.Minute

	// OTPDigits is the length of the numeric verification code.
	OTPDigits = 6

	// PasswordResetTokenDuration is how long password reset links remain valid.
	PasswordResetTokenDuration = 10 * time.Minute

	// TokenBytes is the number of random bytes for reset tokens.
	// The token is hex-encoded to 64 characters for URL safety.
	TokenBytes = 32

	// DefaultAccessTokenDuration is the default lifetime of an API token.
	DefaultAccessTokenDuration = 7 * 24 * time.Hour
)

// PasswordResetResult contains the result of creating a password reset token.
type PasswordResetResult struct {
	Token     string    // Raw token to send in email (NOT the hash)
	ExpiresAt time.Time // When the token expires
	Email     string
	Name      string
}

// VerificationCodeResult contains a freshly issued email verification code.
type VerificationCodeResult struct {
	User      *User
	Code      string // Raw code to send in email (NOT the hash)
	ExpiresAt time.Time
}
