package authgate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AccountStatus represents the lifecycle state of an account. Accounts are
// never physically deleted by user action; removal is AccountDeleted.
type AccountStatus uint8

const (
	AccountActive AccountStatus = iota
	AccountSuspended
	AccountDeleted
)

// String returns the upper-case wire name of s.
func (s AccountStatus) String() string {
	switch s {
	case AccountActive:
		return "ACTIVE"
	case AccountSuspended:
		return "SUSPENDED"
	case AccountDeleted:
		return "DELETED"
	default:
		return fmt.Sprintf("AccountStatus(%d)", uint8(s))
	}
}

// ParseAccountStatus is the inverse of AccountStatus.String and is case-insensitive.
func ParseAccountStatus(v string) (AccountStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "ACTIVE":
		return AccountActive, nil
	case "SUSPENDED":
		return AccountSuspended, nil
	case "DELETED":
		return AccountDeleted, nil
	default:
		return 0, fmt.Errorf("%w: unknown account status %q", ErrInvalidInput, v)
	}
}

// Provider names the login method of an identity binding.
type Provider string

const (
	ProviderEmail  Provider = "EMAIL"
	ProviderPhone  Provider = "PHONE"
	ProviderGoogle Provider = "GOOGLE"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderEmail, ProviderPhone, ProviderGoogle:
		return true
	default:
		return false
	}
}

// Account is the persistent credential record. PasswordHash is empty for
// accounts provisioned through phone or Google. MFASecret is the base32 TOTP
// secret and must be non-empty whenever MFAEnabled is true.
type Account struct {
	ID           string
	Email        string
	Phone        string
	PasswordHash string
	Status       AccountStatus
	MFAEnabled   bool
	MFASecret    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdentityBinding maps (Provider, ProviderKey) to an account. It is unique on
// the pair and immutable once created.
type IdentityBinding struct {
	Provider    Provider
	ProviderKey string
	AccountID   string
	CreatedAt   time.Time
}

// CredentialRepository is the persistent account store consumed by the Engine.
//
// Implementations must create an account and its first binding atomically:
// neither is observable without the other. Lookups that match nothing
// return ErrAccountNotFound; a taken (provider, key) returns ErrBindingExists.
type CredentialRepository interface {
	FindByBinding(ctx context.Context, provider Provider, key string) (*Account, error)
	FindByID(ctx context.Context, accountID string) (*Account, error)
	CreateWithBinding(ctx context.Context, account Account, binding IdentityBinding) (*Account, error)
	UpdatePasswordHash(ctx context.Context, accountID, hash string) error
	// StageTOTPSecret stores secret and leaves MFAEnabled false.
	StageTOTPSecret(ctx context.Context, accountID, secret string) error
	// EnableTOTP sets MFAEnabled; it fails with ErrTOTPNotStaged when no secret exists.
	EnableTOTP(ctx context.Context, accountID string) error
	// DisableTOTP clears MFAEnabled and the secret together.
	DisableTOTP(ctx context.Context, accountID string) error
	UpdateStatus(ctx context.Context, accountID string, status AccountStatus) error
}

// FederatedIdentity is a verified external identity.
type FederatedIdentity struct {
	Subject string
	Email   string
}

// IdentityVerifier verifies a signed federated assertion such as a Google ID token.
type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (FederatedIdentity, error)
}

// NotificationKind identifies the delivery template of a notification job.
type NotificationKind string

const (
	NotifyWelcomeEmail  NotificationKind = "welcome-email"
	NotifyResetPassword NotificationKind = "reset-password"
	NotifySendOTP       NotificationKind = "send-otp"
)

// Notification is the payload handed to the delivery collaborator. Token is
// set for reset-password jobs and Code for send-otp jobs.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	To        string           `json:"to"`
	AccountID string           `json:"account_id,omitempty"`
	Token     string           `json:"token,omitempty"`
	Code      string           `json:"code,omitempty"`
}

// Notifier accepts fire-and-forget notification jobs. Enqueue errors are
// logged by the Engine and never fail the calling operation.
type Notifier interface {
	Enqueue(ctx context.Context, n Notification) error
}

// TokenPair is a freshly minted session.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// LoginResult is returned by password login. Exactly one of Tokens or
// MFAToken is set, matching MFARequired.
type LoginResult struct {
	Tokens      *TokenPair
	MFARequired bool
	MFAToken    string
}

// TOTPSetup is the provisioning material for an authenticator app.
type TOTPSetup struct {
	URI    string `json:"uri"`
	Secret string `json:"secret"`
}

// AccessResult is the verified principal behind an access token.
type AccessResult struct {
	AccountID string
	TokenID   string
	ExpiresAt time.Time
}
