package token

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/stake-disburser/pkg/solana/binary"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L125
const AccountSize = 165

// COption<Pubkey> is a 4 byte tag followed by the key.
const optionalKeySize = 4 + ed25519.PublicKeySize

// Account is the subset of an SPL token account needed to check a balance.
// Fields after the state byte are not decoded.
type Account struct {
	// The mint associated with this account
	Mint ed25519.PublicKey
	// The owner of this account.
	Owner ed25519.PublicKey
	// The amount of tokens this account holds.
	Amount uint64
	// The account's state
	State AccountState
}

// Marshal encodes the account with every optional field unset.
func (a *Account) Marshal() []byte {
	b := make([]byte, AccountSize)

	var offset int
	binary.PutKey32(b, a.Mint, &offset)
	binary.PutKey32(b[offset:], a.Owner, &offset)
	binary.PutUint64(b[offset:], a.Amount, &offset)
	offset += optionalKeySize
	binary.PutUint8(b[offset:], uint8(a.State), &offset)

	return b
}

func (a *Account) Unmarshal(b []byte) error {
	if len(b) != AccountSize {
		return errors.Errorf("invalid token account size: %d", len(b))
	}

	var offset int
	var state uint8
	if err := binary.GetKey32(b, &a.Mint, &offset); err != nil {
		return err
	}
	if err := binary.GetKey32(b[offset:], &a.Owner, &offset); err != nil {
		return err
	}
	if err := binary.GetUint64(b[offset:], &a.Amount, &offset); err != nil {
		return err
	}
	if err := binary.Skip(b[offset:], optionalKeySize, &offset); err != nil {
		return err
	}
	if err := binary.GetUint8(b[offset:], &state, &offset); err != nil {
		return err
	}
	a.State = AccountState(state)

	return nil
}
