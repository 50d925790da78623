package authgate

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// normalizeEmail lower-cases and trims email and rejects anything that is
// not a bare addr-spec.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" || len(trimmed) > 254 {
		return "", ErrInvalidInput
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed || addr.Name != "" {
		return "", ErrInvalidInput
	}
	return trimmed, nil
}

// normalizePhone strips common separators and requires E.164.
func normalizePhone(phone string) (string, error) {
	r := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	trimmed := r.Replace(strings.TrimSpace(phone))
	if !e164Pattern.MatchString(trimmed) {
		return "", ErrInvalidInput
	}
	return trimmed, nil
}

func newAccountID() string {
	return uuid.NewString()
}
