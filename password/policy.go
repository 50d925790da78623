package password

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrTooShort is returned when a password is under Policy.MinLength runes.
	ErrTooShort = errors.New("password too short")
	// ErrTooLong is returned when a password exceeds Policy.MaxLength runes.
	ErrTooLong = errors.New("password too long")
	// ErrMissingClass is returned when a required character class is absent.
	ErrMissingClass = errors.New("password must contain upper, lower, digit and symbol characters")
)

// Policy describes plaintext acceptance rules checked before hashing.
type Policy struct {
	MinLength     int
	MaxLength     int
	RequireMixed  bool // upper + lower
	RequireDigit  bool
	RequireSymbol bool
}

// RegistrationPolicy is applied to passwords chosen at sign-up.
var RegistrationPolicy = Policy{
	MinLength:     12,
	MaxLength:     64,
	RequireMixed:  true,
	RequireDigit:  true,
	RequireSymbol: true,
}

// ResetPolicy is applied to passwords chosen through a reset token.
var ResetPolicy = Policy{
	MinLength: 8,
	MaxLength: 64,
}

// Check returns nil when password satisfies p.
func (p Policy) Check(password string) error {
	n := utf8.RuneCountInString(password)
	if n < p.MinLength {
		return ErrTooShort
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return ErrTooLong
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	if (p.RequireMixed && !(upper && lower)) ||
		(p.RequireDigit && !digit) ||
		(p.RequireSymbol && !symbol) {
		return ErrMissingClass
	}
	return nil
}
