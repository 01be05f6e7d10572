package binary

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	key := make([]byte, ed25519.PublicKeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}

	b := make([]byte, 32+1+8)

	var offset int
	PutKey32(b[offset:], key, &offset)
	PutUint8(b[offset:], 7, &offset)
	PutUint64(b[offset:], 1234567890, &offset)
	assert.Equal(t, len(b), offset)

	var actualKey ed25519.PublicKey
	var actualFlag uint8
	var actualAmount uint64

	offset = 0
	require.NoError(t, GetKey32(b[offset:], &actualKey, &offset))
	require.NoError(t, GetUint8(b[offset:], &actualFlag, &offset))
	require.NoError(t, GetUint64(b[offset:], &actualAmount, &offset))
	assert.Equal(t, len(b), offset)

	assert.EqualValues(t, key, actualKey)
	assert.EqualValues(t, 7, actualFlag)
	assert.EqualValues(t, 1234567890, actualAmount)
}

func TestGet_BufferTooShort(t *testing.T) {
	var offset int

	var key ed25519.PublicKey
	err := GetKey32(make([]byte, 31), &key, &offset)
	assert.ErrorIs(t, err, ErrBufferTooShort)
	assert.Nil(t, key)

	var amount uint64
	err = GetUint64(make([]byte, 7), &amount, &offset)
	assert.ErrorIs(t, err, ErrBufferTooShort)

	var flag uint8
	err = GetUint8(nil, &flag, &offset)
	assert.ErrorIs(t, err, ErrBufferTooShort)

	err = Skip(make([]byte, 2), 3, &offset)
	assert.ErrorIs(t, err, ErrBufferTooShort)

	assert.Equal(t, 0, offset)
}
