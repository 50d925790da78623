package authgate

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/authgate/authgate/internal"
)

// totpSecretBytes is the RFC 4226 recommended 160-bit key.
const totpSecretBytes = 20

var (
	totpEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

	totpHashes = map[string]func() hash.Hash{
		"SHA1":   sha1.New,
		"SHA256": sha256.New,
		"SHA512": sha512.New,
	}

	pow10 = [...]uint32{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000}

	errUnsupportedTOTPAlgorithm = errors.New("unsupported totp algorithm")
	errEmptyTOTPSecret          = errors.New("empty totp secret")
)

type totpManager struct {
	config TOTPConfig
}

func newTOTPManager(cfg TOTPConfig) *totpManager {
	cfg.Algorithm = strings.ToUpper(cfg.Algorithm)
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	return &totpManager{config: cfg}
}

// GenerateSecret returns a fresh random secret in raw and base32 form.
func (m *totpManager) GenerateSecret() ([]byte, string, error) {
	if m == nil {
		return nil, "", ErrEngineNotReady
	}
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("generate totp secret: %w", err)
	}
	return raw, totpEncoding.EncodeToString(raw), nil
}

// ProvisionURI renders the otpauth:// key URI authenticator apps scan.
func (m *totpManager) ProvisionURI(secretBase32, account string) string {
	q := url.Values{
		"secret":    {secretBase32},
		"issuer":    {m.config.Issuer},
		"algorithm": {m.config.Algorithm},
		"digits":    {strconv.Itoa(m.config.Digits)},
		"period":    {strconv.Itoa(m.config.Period)},
	}
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + m.config.Issuer + ":" + account,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// VerifyCode checks code against secret within ±Skew steps of now and
// returns the matching step counter. A malformed code is a mismatch, not an
// error.
func (m *totpManager) VerifyCode(secret []byte, code string, now time.Time) (bool, int64, error) {
	if m == nil {
		return false, 0, ErrEngineNotReady
	}

	code = strings.TrimSpace(code)
	if len(code) != m.config.Digits || !internal.IsNumeric(code) {
		return false, 0, nil
	}
	if len(secret) == 0 {
		return false, 0, errEmptyTOTPSecret
	}

	current := now.Unix() / int64(m.config.Period)
	lo := max(current-int64(m.config.Skew), 0)
	hi := current + int64(m.config.Skew)

	matched, at := false, int64(0)
	for counter := lo; counter <= hi; counter++ {
		candidate, err := hotpCode(secret, counter, m.config.Digits, m.config.Algorithm)
		if err != nil {
			return false, 0, err
		}
		// Every step in the window is computed so timing does not reveal which one matched.
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(code)) == 1 && !matched {
			matched, at = true, counter
		}
	}
	return matched, at, nil
}

// VerifyBase32 is VerifyCode for a secret stored in base32.
func (m *totpManager) VerifyBase32(secretBase32, code string, now time.Time) (bool, int64, error) {
	secret, err := decodeTOTPSecret(secretBase32)
	if err != nil {
		return false, 0, err
	}
	return m.VerifyCode(secret, code, now)
}

// replayWindow is how long a used step counter must stay remembered.
func (m *totpManager) replayWindow() time.Duration {
	return time.Duration(m.config.Period*(2*m.config.Skew+2)) * time.Second
}

func decodeTOTPSecret(secretBase32 string) ([]byte, error) {
	secret, err := totpEncoding.DecodeString(strings.ToUpper(strings.TrimRight(secretBase32, "=")))
	if err != nil {
		return nil, fmt.Errorf("decode totp secret: %w", err)
	}
	return secret, nil
}

// hotpCode is RFC 4226 HOTP with dynamic truncation.
func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	newHash, ok := totpHashes[strings.ToUpper(algorithm)]
	if !ok && algorithm != "" {
		return "", errUnsupportedTOTPAlgorithm
	}
	if newHash == nil {
		newHash = sha1.New
	}
	if digits <= 0 || digits >= len(pow10) {
		return "", fmt.Errorf("totp digits %d out of range", digits)
	}

	mac := hmac.New(newHash, secret)
	_ = binary.Write(mac, binary.BigEndian, uint64(counter))
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	truncated := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%0*d", digits, truncated%pow10[digits]), nil
}
