package authgate

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
)

// RFC 6238 appendix B.
func TestTOTPVerifyRFCVectors(t *testing.T) {
	seed := "1234567890"
	timestamps := []int64{59, 1111111109, 1111111111, 1234567890, 2000000000, 20000000000}
	vectors := []struct {
		algorithm string
		secret    string
		codes     []string
	}{
		{"SHA1", strings.Repeat(seed, 2), []string{"94287082", "07081804", "14050471", "89005924", "69279037", "65353130"}},
		{"SHA256", strings.Repeat(seed, 3) + "12", []string{"46119246", "68084774", "67062674", "91819424", "90698825", "77737706"}},
		{"SHA512", strings.Repeat(seed, 6) + "1234", []string{"90693936", "25091201", "99943326", "93441116", "38618901", "47863826"}},
	}

	for _, v := range vectors {
		t.Run(v.algorithm, func(t *testing.T) {
			m := newTOTPManager(TOTPConfig{Issuer: "authgate", Digits: 8, Period: 30, Algorithm: v.algorithm})
			for i, ts := range timestamps {
				ok, counter, err := m.VerifyCode([]byte(v.secret), v.codes[i], time.Unix(ts, 0))
				if err != nil || !ok {
					t.Fatalf("vector failed at t=%d, ok=%v err=%v", ts, ok, err)
				}
				if counter != ts/30 {
					t.Fatalf("expected counter %d, got %d", ts/30, counter)
				}
			}
		})
	}
}

func TestHOTPRejectsBadParameters(t *testing.T) {
	secret := []byte("12345678901234567890")
	if _, err := hotpCode(secret, 1, 6, "MD5"); !errors.Is(err, errUnsupportedTOTPAlgorithm) {
		t.Fatalf("expected unsupported algorithm, got %v", err)
	}
	if _, err := hotpCode(secret, 1, 10, "SHA1"); err == nil {
		t.Fatal("expected digits out of range to fail")
	}
	m := newTOTPManager(TOTPConfig{Digits: 6, Period: 30})
	if _, _, err := m.VerifyCode(nil, "123456", time.Now()); !errors.Is(err, errEmptyTOTPSecret) {
		t.Fatalf("expected empty secret error, got %v", err)
	}
}

func TestTOTPDriftWindowAcceptsAdjacentStep(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "authgate",
		Digits:    6,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      1,
	})
	secret := []byte("12345678901234567890")
	now := time.Unix(1234567890, 0)
	prevCounter := (now.Unix() / 30) - 1
	code, err := hotpCode(secret, prevCounter, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotpCode failed: %v", err)
	}

	ok, _, err := m.VerifyCode(secret, code, now)
	if err != nil || !ok {
		t.Fatalf("expected skew code accepted, ok=%v err=%v", ok, err)
	}
}

func TestTOTPWrongDigitsRejected(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "authgate",
		Digits:    6,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      1,
	})
	secret := []byte("12345678901234567890")
	ok, _, err := m.VerifyCode(secret, "12345678", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong-length code to be rejected")
	}
}

func TestTOTPProvisionURIRoundTrip(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "authgate",
		Digits:    6,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      1,
	})
	raw, encoded, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	if len(raw) != totpSecretBytes || strings.Contains(encoded, "=") {
		t.Fatalf("unexpected secret shape: %d bytes, %q", len(raw), encoded)
	}

	uri := m.ProvisionURI(encoded, "alice@example.com")
	u, err := url.Parse(uri)
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	if u.Scheme != "otpauth" || u.Host != "totp" {
		t.Fatalf("unexpected uri %q", uri)
	}
	if u.Query().Get("secret") != encoded || u.Query().Get("issuer") != "authgate" {
		t.Fatalf("unexpected uri query %q", u.RawQuery)
	}

	decoded, err := decodeTOTPSecret(strings.ToLower(encoded))
	if err != nil {
		t.Fatalf("decode lower-case secret: %v", err)
	}
	now := time.Now()
	code, err := hotpCode(decoded, now.Unix()/30, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotpCode failed: %v", err)
	}
	ok, counter, err := m.VerifyBase32(encoded, code, now)
	if err != nil || !ok || counter != now.Unix()/30 {
		t.Fatalf("expected current code accepted at counter %d, ok=%v counter=%d err=%v", now.Unix()/30, ok, counter, err)
	}
}

func TestTOTPReplayWindowCoversSkew(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Digits: 6, Period: 30, Skew: 1})
	if got := m.replayWindow(); got != 120*time.Second {
		t.Fatalf("expected 120s replay window, got %v", got)
	}
}
