package common

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Account is a Solana address. Accounts loaded from a keypair can also sign.
type Account struct {
	publicKey  Key
	privateKey Key
}

// NewAccountFromPublicKeyString loads a watch-only account from a base58
// address.
func NewAccountFromPublicKeyString(value string) (*Account, error) {
	key, err := decodeKey(strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}
	if !key.IsPublic() {
		return nil, errors.New("expected a public key, got a keypair")
	}

	return &Account{publicKey: key}, nil
}

// NewAccountFromKeypairString loads a signing account from a 64 byte keypair,
// encoded either as base58 or as the JSON byte array the Solana CLI writes.
func NewAccountFromKeypairString(keypair string) (*Account, error) {
	keypair = strings.TrimSpace(keypair)
	if !strings.HasPrefix(keypair, "[") {
		key, err := decodeKey(keypair)
		if err != nil {
			return nil, err
		}
		return newAccountFromKeypair(key)
	}

	var values []int
	if err := json.Unmarshal([]byte(keypair), &values); err != nil {
		return nil, errors.Wrap(err, "error decoding keypair as json byte array")
	}

	raw := make(Key, 0, len(values))
	for _, v := range values {
		if v < 0 || v > 255 {
			return nil, errors.Errorf("keypair byte out of range: %d", v)
		}
		raw = append(raw, byte(v))
	}

	return newAccountFromKeypair(raw)
}

// newAccountFromKeypair loads a signing account from raw keypair bytes. The
// public half must match the one derived from the seed.
func newAccountFromKeypair(keypair Key) (*Account, error) {
	if len(keypair) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(keypair))
	}

	account := &Account{
		publicKey:  Key(ed25519.PrivateKey(keypair).Public().(ed25519.PublicKey)),
		privateKey: keypair,
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func (a *Account) PublicKey() Key {
	return a.publicKey
}

// PrivateKey is nil for watch-only accounts.
func (a *Account) PrivateKey() Key {
	return a.privateKey
}

func (a *Account) Validate() error {
	if a == nil {
		return errors.New("account is nil")
	}

	if !a.publicKey.IsPublic() {
		return errors.Errorf("invalid public key length: %d", len(a.publicKey))
	}

	if a.privateKey == nil {
		return nil
	}

	if len(a.privateKey) != ed25519.PrivateKeySize {
		return errors.Errorf("invalid keypair length: %d", len(a.privateKey))
	}

	// The trailing public half of a keypair is untrusted, so rederive it
	// from the seed.
	seed := ed25519.PrivateKey(a.privateKey).Seed()
	derived := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	if !bytes.Equal(a.privateKey[ed25519.SeedSize:], derived) {
		return errors.New("keypair public half doesn't match its seed")
	}

	return nil
}

func (a *Account) String() string {
	return a.publicKey.ToBase58()
}
