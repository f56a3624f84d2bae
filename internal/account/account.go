// Package account identifies the configured protocol identities.
//
// An Account is a comparable value and is used as the partition key for all
// per-identity session state (contacts, connections, pending requests).
package account

import (
	"errors"
	"fmt"

	"mellium.im/xmpp/jid"
)

// ErrEmptyAddress is returned when an account is built from an empty address.
var ErrEmptyAddress = errors.New("account address is empty")

// Account identifies one configured identity by its bare address.
type Account struct {
	bare string
}

// New returns the account for addr. Any resource on addr is dropped.
func New(addr jid.JID) Account {
	return Account{bare: addr.Bare().String()}
}

// Parse parses s as an address and returns the account for its bare form.
func Parse(s string) (Account, error) {
	if s == "" {
		return Account{}, ErrEmptyAddress
	}
	addr, err := jid.Parse(s)
	if err != nil {
		return Account{}, fmt.Errorf("parse account %q: %w", s, err)
	}
	return New(addr), nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Account {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// JID returns the bare address of the account.
func (a Account) JID() jid.JID {
	if a.bare == "" {
		return jid.JID{}
	}
	// bare was produced by jid.JID.String and always round-trips.
	return jid.MustParse(a.bare)
}

// IsZero reports whether a is the zero account.
func (a Account) IsZero() bool {
	return a.bare == ""
}

// String returns the bare address.
func (a Account) String() string {
	return a.bare
}
