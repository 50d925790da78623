package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256 over a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

// TokenType is the value of the "type" claim and decides what a token is good for.
type TokenType string

const (
	TypeAccess        TokenType = "access"
	TypeRefresh       TokenType = "refresh"
	TypeMFAPending    TokenType = "mfa_pending"
	TypePasswordReset TokenType = "password-reset"
)

// ScopeMFAPending is carried by MFA pending tokens in the "scope" claim.
const ScopeMFAPending = "mfa_pending"

var (
	// ErrWrongTokenType is returned when a valid token is presented for the wrong purpose.
	ErrWrongTokenType = errors.New("token type mismatch")
	// ErrMissingTokenID is returned when a token that must carry a jti has none.
	ErrMissingTokenID = errors.New("token id missing")
	// ErrMissingSubject is returned when a token has no subject.
	ErrMissingSubject = errors.New("token subject missing")
)

// Config holds signing keys, lifetimes and validation rules for every token type.
type Config struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	MFAPendingTTL    time.Duration
	PasswordResetTTL time.Duration
	SigningMethod    SigningMethod
	PrivateKey       []byte
	PublicKey        []byte
	Issuer           string
	Audience         string
	Leeway           time.Duration
	RequireIAT       bool
	MaxFutureIAT     time.Duration
	KeyID            string
	VerifyKeys       map[string][]byte
}

// Manager issues and verifies signed tokens. It is safe for concurrent use.
type Manager struct {
	config Config
}

// Claims is the payload shared by all token types.
type Claims struct {
	Type  TokenType `json:"type"`
	Scope string    `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.MFAPendingTTL <= 0 || cfg.PasswordResetTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 16 {
			return nil, errors.New("hs256 requires a secret of at least 16 bytes")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("ed25519 requires private key")
		}
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return &Manager{config: cfg}, nil
}

// TTL returns the configured lifetime for typ.
func (m *Manager) TTL(typ TokenType) time.Duration {
	switch typ {
	case TypeAccess:
		return m.config.AccessTTL
	case TypeRefresh:
		return m.config.RefreshTTL
	case TypeMFAPending:
		return m.config.MFAPendingTTL
	case TypePasswordReset:
		return m.config.PasswordResetTTL
	default:
		return 0
	}
}

// Issue signs a token of the given type for subject. An empty tokenID is
// replaced by a random UUID.
func (m *Manager) Issue(typ TokenType, subject, tokenID string) (string, *Claims, error) {
	if subject == "" {
		return "", nil, ErrMissingSubject
	}
	ttl := m.TTL(typ)
	if ttl <= 0 {
		return "", nil, ErrWrongTokenType
	}
	if tokenID == "" {
		tokenID = uuid.NewString()
	}

	now := time.Now()
	claims := &Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        tokenID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if typ == TypeMFAPending {
		claims.Scope = ScopeMFAPending
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(m.getMethod(), claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	signKey, err := m.getSignKey()
	if err != nil {
		return "", nil, err
	}
	signed, err := token.SignedString(signKey)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Parse verifies signature, expiry, issuer and audience, then checks that the
// token is of type want.
func (m *Manager) Parse(tokenStr string, want TokenType) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.getMethod().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, m.keyFunc)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.IssuedAt != nil && m.config.MaxFutureIAT > 0 {
		if claims.IssuedAt.Time.After(time.Now().Add(m.config.MaxFutureIAT)) {
			return nil, errors.New("token iat too far in the future")
		}
	}
	if err := checkType(claims, want); err != nil {
		return nil, err
	}

	return claims, nil
}

// Decode extracts claims without verifying the signature or expiry. It is
// only suitable for best-effort cleanup such as logout, never for granting access.
func (m *Manager) Decode(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func checkType(claims *Claims, want TokenType) error {
	if claims.Subject == "" {
		return ErrMissingSubject
	}
	if claims.Type != want {
		return ErrWrongTokenType
	}
	switch want {
	case TypeMFAPending:
		if claims.Scope != ScopeMFAPending {
			return ErrWrongTokenType
		}
		if claims.ID == "" {
			return ErrMissingTokenID
		}
	case TypeRefresh:
		if claims.ID == "" {
			return ErrMissingTokenID
		}
	}
	return nil
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != m.getMethod().Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	if len(m.config.VerifyKeys) > 0 {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := m.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return m.keyBytesToVerifyKey(key)
	}

	if m.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid != m.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}

	return m.getVerifyKey()
}

func (m *Manager) getMethod() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (m *Manager) getSignKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(m.config.PrivateKey)
	}
}

func (m *Manager) getVerifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	default:
		if len(m.config.PublicKey) == 0 {
			priv, err := parseEdPrivateKey(m.config.PrivateKey)
			if err != nil {
				return nil, err
			}
			return priv.Public(), nil
		}
		return parseEdPublicKey(m.config.PublicKey)
	}
}

func (m *Manager) keyBytesToVerifyKey(key []byte) (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return key, nil
	default:
		return parseEdPublicKey(key)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
