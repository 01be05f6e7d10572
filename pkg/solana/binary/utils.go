package binary

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrBufferTooShort is returned by the Get functions when the source doesn't
// hold enough bytes for the requested value.
var ErrBufferTooShort = errors.New("buffer too short")

func PutKey32(dst []byte, src []byte, offset *int) {
	copy(dst, src)
	*offset += ed25519.PublicKeySize
}

func PutUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst, v)
	*offset += 8
}

func PutUint8(dst []byte, v uint8, offset *int) {
	dst[0] = v
	*offset += 1
}

// Skip advances the offset over n bytes that aren't decoded.
func Skip(src []byte, n int, offset *int) error {
	if len(src) < n {
		return errors.Wrapf(ErrBufferTooShort, "need %d bytes to skip, have %d", n, len(src))
	}
	*offset += n
	return nil
}

func GetKey32(src []byte, dst *ed25519.PublicKey, offset *int) error {
	if len(src) < ed25519.PublicKeySize {
		return errors.Wrapf(ErrBufferTooShort, "need %d bytes for key, have %d", ed25519.PublicKeySize, len(src))
	}

	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src)
	*offset += ed25519.PublicKeySize
	return nil
}

func GetUint64(src []byte, dst *uint64, offset *int) error {
	if len(src) < 8 {
		return errors.Wrapf(ErrBufferTooShort, "need 8 bytes for uint64, have %d", len(src))
	}

	*dst = binary.LittleEndian.Uint64(src)
	*offset += 8
	return nil
}

func GetUint8(src []byte, dst *uint8, offset *int) error {
	if len(src) < 1 {
		return errors.Wrap(ErrBufferTooShort, "need 1 byte for uint8, have 0")
	}

	*dst = src[0]
	*offset += 1
	return nil
}
