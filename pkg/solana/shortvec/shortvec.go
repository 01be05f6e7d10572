// Package shortvec implements the compact-u16 length prefix used by the
// Solana wire format.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

// MaxEncodedSize is the largest number of bytes a compact-u16 occupies.
const MaxEncodedSize = 3

// ErrLengthTooLarge is returned when a length doesn't fit in a compact-u16.
var ErrLengthTooLarge = errors.Errorf("len exceeds %d", math.MaxUint16)

// EncodeLen writes length as a compact-u16 into w, returning the number of
// bytes written.
func EncodeLen(w io.Writer, length int) (int, error) {
	if length < 0 || length > math.MaxUint16 {
		return 0, ErrLengthTooLarge
	}

	var buf [MaxEncodedSize]byte
	size := 0
	for {
		buf[size] = byte(length & 0x7f)
		length >>= 7
		if length == 0 {
			size++
			break
		}

		buf[size] |= 0x80
		size++
	}

	return w.Write(buf[:size])
}

// DecodeLen reads a compact-u16 encoded length from r.
func DecodeLen(r io.Reader) (int, error) {
	var val int
	var b [1]byte

	for i := 0; ; i++ {
		if i == MaxEncodedSize {
			return 0, errors.Errorf("invalid size: more than %d bytes", MaxEncodedSize)
		}

		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}

		val |= int(b[0]&0x7f) << (i * 7)
		if b[0]&0x80 == 0 {
			return val, nil
		}
	}
}
