package authgate

import (
	"context"
	"errors"

	"github.com/authgate/authgate/internal/limiters"
	"github.com/authgate/authgate/internal/rate"
	"github.com/authgate/authgate/password"
)

var (
	// ErrEngineNotReady is returned when an Engine method runs on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidInput is returned for malformed email, phone, code or token input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPasswordPolicy is returned when a new password does not satisfy the active policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrAccountExists is returned when the identity binding for a registration is taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials is the single failure for unknown accounts and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid is returned for malformed, expired, mis-typed or revoked tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrRefreshInvalid is returned when a refresh token cannot be redeemed.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrMFAInvalid is returned when an MFA pending token or its second factor is rejected.
	ErrMFAInvalid = errors.New("mfa challenge invalid")
	// ErrOTPInvalid is returned when a phone code is absent, expired or wrong.
	ErrOTPInvalid = errors.New("invalid one-time code")
	// ErrOTPRateLimited is returned once a phone has used its issuance quota.
	ErrOTPRateLimited = errors.New("one-time code issuance limit reached")
	// ErrTOTPInvalid is returned when a TOTP code fails verification.
	ErrTOTPInvalid = errors.New("invalid totp code")
	// ErrTOTPNotConfigured is returned when no TOTP secret is staged or enabled.
	ErrTOTPNotConfigured = errors.New("totp not configured")
	// ErrTOTPAlreadyEnabled is returned by TOTP setup while a confirmed secret is active.
	ErrTOTPAlreadyEnabled = errors.New("totp already enabled")
	// ErrTOTPRateLimited is returned after too many failed TOTP codes in the window.
	ErrTOTPRateLimited = errors.New("totp attempts rate limited")
	// ErrIdentityRejected is returned when the federated identity provider rejects a token.
	ErrIdentityRejected = errors.New("identity token rejected")
	// ErrProviderNotConfigured is returned when no identity verifier is wired.
	ErrProviderNotConfigured = errors.New("identity provider not configured")
	// ErrAccountSuspended is returned for operations on a SUSPENDED account.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrAccountDeleted is returned for operations on a DELETED account.
	ErrAccountDeleted = errors.New("account deleted")
	// ErrAccountNotFound is returned by CredentialRepository lookups that match nothing.
	ErrAccountNotFound = errors.New("account not found")
	// ErrBindingExists is returned by CredentialRepository when (provider, key) is taken.
	ErrBindingExists = errors.New("identity binding already exists")
	// ErrTOTPNotStaged is returned by CredentialRepository.EnableTOTP without a staged secret.
	ErrTOTPNotStaged = errors.New("totp secret not staged")
	// ErrSessionCreationFailed is returned when a session cannot be registered.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrSessionStoreUnavailable is returned when the session registry cannot be reached.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
	// ErrRepositoryUnavailable is returned when the credential repository fails.
	ErrRepositoryUnavailable = errors.New("credential repository unavailable")
	// ErrTimeout is returned when an operation exceeds Config.OperationTimeout.
	ErrTimeout = errors.New("operation timed out")
)

// ErrorKind is the caller-facing failure class of an Engine error.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindForbidden
	KindRateLimited
)

// String returns the lower-case class name.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// KindOf classifies err into the failure taxonomy. Unknown errors, and
// deadline errors, are KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, password.ErrTooShort),
		errors.Is(err, password.ErrTooLong),
		errors.Is(err, password.ErrMissingClass):
		return KindValidation
	case errors.Is(err, ErrAccountExists),
		errors.Is(err, ErrBindingExists),
		errors.Is(err, ErrTOTPAlreadyEnabled):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrMFAInvalid),
		errors.Is(err, ErrOTPInvalid),
		errors.Is(err, ErrTOTPInvalid),
		errors.Is(err, ErrTOTPNotConfigured),
		errors.Is(err, ErrIdentityRejected):
		return KindUnauthorized
	case errors.Is(err, ErrAccountSuspended),
		errors.Is(err, ErrAccountDeleted),
		errors.Is(err, ErrOTPRateLimited),
		errors.Is(err, limiters.ErrOTPIssueLimited):
		return KindForbidden
	case errors.Is(err, ErrTOTPRateLimited),
		errors.Is(err, limiters.ErrTOTPRateLimited),
		errors.Is(err, rate.ErrRateLimited):
		return KindRateLimited
	default:
		return KindInternal
	}
}

// IsRetryable reports whether err is a transient backend or deadline failure
// that the caller may retry unchanged.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrSessionStoreUnavailable) ||
		errors.Is(err, ErrRepositoryUnavailable) ||
		errors.Is(err, rate.ErrRedisUnavailable) ||
		errors.Is(err, limiters.ErrOTPUnavailable) ||
		errors.Is(err, limiters.ErrTOTPUnavailable)
}
