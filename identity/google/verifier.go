// Package google verifies Google Sign-In ID tokens for the engine's federated
// login.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/authgate/authgate"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

var (
	ErrClientIDRequired = errors.New("google: client id is required")
	ErrMissingClaims    = errors.New("google: token has no subject or email")
	ErrEmailUnverified  = errors.New("google: email is not verified")
)

type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// Verifier checks signature, issuer, expiry and audience of Google ID tokens.
type Verifier struct {
	clientID string
	validate validateFunc
}

var _ authgate.IdentityVerifier = (*Verifier)(nil)

// NewVerifier builds a Verifier for the OAuth client id. opts are passed to
// idtoken.NewValidator, e.g. option.WithHTTPClient.
func NewVerifier(ctx context.Context, clientID string, opts ...option.ClientOption) (*Verifier, error) {
	if clientID == "" {
		return nil, ErrClientIDRequired
	}
	v, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google: create validator: %w", err)
	}
	return &Verifier{clientID: clientID, validate: v.Validate}, nil
}

// VerifyIDToken implements authgate.IdentityVerifier.
func (v *Verifier) VerifyIDToken(ctx context.Context, token string) (authgate.FederatedIdentity, error) {
	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return authgate.FederatedIdentity{}, fmt.Errorf("google: %w", err)
	}
	return identityFromPayload(payload)
}

func identityFromPayload(p *idtoken.Payload) (authgate.FederatedIdentity, error) {
	if p == nil {
		return authgate.FederatedIdentity{}, ErrMissingClaims
	}
	email, _ := p.Claims["email"].(string)
	if p.Subject == "" || email == "" {
		return authgate.FederatedIdentity{}, ErrMissingClaims
	}
	// The email lands on the account, so a false email_verified is refused and
	// a missing one is accepted. It is a bool in current tokens and a string in
	// some older ones.
	switch verified := p.Claims["email_verified"].(type) {
	case bool:
		if !verified {
			return authgate.FederatedIdentity{}, ErrEmailUnverified
		}
	case string:
		if verified != "true" {
			return authgate.FederatedIdentity{}, ErrEmailUnverified
		}
	}
	return authgate.FederatedIdentity{Subject: p.Subject, Email: email}, nil
}
