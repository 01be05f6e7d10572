package common

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Key holds the raw bytes of either an ed25519 public key or a 64 byte
// keypair (seed followed by public key).
type Key []byte

// decodeKey parses a base58 encoded public key or keypair.
func decodeKey(value string) (Key, error) {
	raw, err := base58.Decode(value)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding string as base58")
	}

	k := Key(raw)
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}

func (k Key) ToBytes() []byte {
	return k
}

func (k Key) ToBase58() string {
	return base58.Encode(k)
}

func (k Key) IsPublic() bool {
	return len(k) == ed25519.PublicKeySize
}

func (k Key) Validate() error {
	switch len(k) {
	case ed25519.PublicKeySize, ed25519.PrivateKeySize:
		return nil
	case 0:
		return errors.New("key is empty")
	default:
		return errors.Errorf("key must be an ed25519 public key or keypair, got %d bytes", len(k))
	}
}
