package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"math"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/pkg/errors"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

var (
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")

	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrNoValidBumpSeed  = errors.New("unable to find a viable program address bump seed")
)

// IsOnCurve reports whether pub decodes to a point on the ed25519 curve, in
// which case a private key may exist for it.
func IsOnCurve(pub ed25519.PublicKey) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}

	// The standard library keeps its edwards25519 point type internal, so the
	// decompression check relies on the jdgcs fork.
	var point [32]byte
	copy(point[:], pub)

	var A edwards25519.ExtendedGroupElement
	return A.FromBytes(&point)
}

// CreateProgramAddress derives the program address for seeds. Derived
// addresses must lie off the curve so that nobody holds their private key,
// and ErrInvalidPublicKey is returned when the hash lands on it.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L158
func CreateProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	if len(seeds) > maxSeeds {
		return nil, ErrTooManySeeds
	}

	h := sha256.New()
	for _, s := range seeds {
		if len(s) > maxSeedLength {
			return nil, ErrMaxSeedLengthExceeded
		}
		h.Write(s)
	}
	h.Write(program)
	h.Write([]byte(pdaMarker))

	pub := ed25519.PublicKey(h.Sum(nil))
	if IsOnCurve(pub) {
		return nil, ErrInvalidPublicKey
	}

	return pub, nil
}

// FindProgramAddress searches bump seeds from 255 downwards and returns the
// first off-curve address.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L234
func FindProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	withBump := append(append([][]byte{}, seeds...), nil)

	for bump := math.MaxUint8; bump > 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}

		pub, err := CreateProgramAddress(program, withBump...)
		if err == nil {
			return pub, nil
		}
		if !errors.Is(err, ErrInvalidPublicKey) {
			return nil, err
		}
	}

	return nil, ErrNoValidBumpSeed
}
