package session

import (
	"fmt"
	"strings"
)

// Record names one redeemable refresh token.
type Record struct {
	AccountID string
	TokenID   string
}

func (r Record) validate() error {
	if r.AccountID == "" || r.TokenID == "" {
		return ErrInvalidRecord
	}
	// A colon in the account id would let one account's prefix match another's keys.
	if strings.Contains(r.AccountID, ":") {
		return fmt.Errorf("%w: account id contains ':'", ErrInvalidRecord)
	}
	return nil
}
