package stakepool

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/stake-disburser/pkg/solana"
	"github.com/code-payments/stake-disburser/pkg/testutil"
)

func TestLayout(t *testing.T) {
	assert.Equal(t, 73, VaultAccountMinSize)
	assert.Equal(t, 81, StakeAccountSize)
	assert.Equal(t, 40, StakeSliceOffset)
	assert.Equal(t, 41, StakeSliceLength)
}

func TestVaultAccount(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 2)

	expected := VaultAccount{
		Authority: keys[0],
		Mint:      keys[1],
		Decimals:  6,
	}

	data := expected.Marshal()
	require.Len(t, data, VaultAccountMinSize)

	var actual VaultAccount
	require.NoError(t, actual.Unmarshal(data))
	assert.Equal(t, expected, actual)

	// Trailing fields are ignored
	padded := append(data, make([]byte, 16)...)
	for i := VaultAccountMinSize; i < len(padded); i++ {
		padded[i] = 0xff
	}
	actual = VaultAccount{}
	require.NoError(t, actual.Unmarshal(padded))
	assert.Equal(t, expected, actual)
}

func TestVaultAccount_InvalidSize(t *testing.T) {
	for _, size := range []int{0, 8, 40, 72} {
		var actual VaultAccount
		err := actual.Unmarshal(make([]byte, size))
		assert.ErrorIs(t, err, ErrInvalidSize, size)
	}
}

func TestStakeAccount(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 2)

	expected := StakeAccount{
		Vault:  keys[0],
		Owner:  keys[1],
		Flag:   1,
		Amount: 1234567890123,
	}

	data := expected.Marshal()
	require.Len(t, data, StakeAccountSize)

	var actual StakeAccount
	require.NoError(t, actual.Unmarshal(data))
	assert.Equal(t, expected, actual)

	// The scan slice decodes to the same owner, flag and amount.
	var sliced StakeAccount
	require.NoError(t, sliced.UnmarshalSlice(data[StakeSliceOffset:StakeSliceOffset+StakeSliceLength]))
	assert.Nil(t, sliced.Vault)
	assert.Equal(t, expected.Owner, sliced.Owner)
	assert.Equal(t, expected.Flag, sliced.Flag)
	assert.Equal(t, expected.Amount, sliced.Amount)
}

func TestStakeAccount_Injective(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)

	accounts := []StakeAccount{
		{Vault: keys[0], Owner: keys[1], Amount: 100},
		{Vault: keys[0], Owner: keys[1], Amount: 101},
		{Vault: keys[0], Owner: keys[2], Amount: 100},
		{Vault: keys[0], Owner: keys[1], Flag: 1, Amount: 100},
		{Vault: keys[2], Owner: keys[1], Amount: 100},
	}

	seen := make(map[string]StakeAccount)
	for _, a := range accounts {
		data := a.Marshal()
		_, dup := seen[string(data)]
		require.False(t, dup)
		seen[string(data)] = a

		var decoded StakeAccount
		require.NoError(t, decoded.Unmarshal(data))
		assert.Equal(t, a, decoded)
	}
}

func TestStakeAccount_InvalidSize(t *testing.T) {
	for _, size := range []int{0, 40, 80, 82} {
		var actual StakeAccount
		assert.ErrorIs(t, actual.Unmarshal(make([]byte, size)), ErrInvalidSize, size)
	}

	for _, size := range []int{0, 32, 40, 42} {
		var actual StakeAccount
		assert.ErrorIs(t, actual.UnmarshalSlice(make([]byte, size)), ErrInvalidSize, size)
	}
}

func TestStakeAccountsConfig(t *testing.T) {
	keys := testutil.GenerateSolanaKeys(t, 3)
	vault, otherVault, owner := keys[0], keys[1], keys[2]

	config := StakeAccountsConfig(vault, solana.CommitmentProcessed)
	assert.Equal(t, solana.CommitmentProcessed, config.Commitment)
	require.NotNil(t, config.DataSlice)
	assert.EqualValues(t, 40, config.DataSlice.Offset)
	assert.EqualValues(t, 41, config.DataSlice.Length)

	matches := func(data []byte) bool {
		for _, f := range config.Filters {
			if !f.Matches(data) {
				return false
			}
		}
		return true
	}

	stake := StakeAccount{Vault: vault, Owner: owner, Amount: 5}
	data := stake.Marshal()
	assert.True(t, matches(data))

	// Only the exact size is accepted
	assert.False(t, matches(data[:StakeAccountSize-1]))
	assert.False(t, matches(append(append([]byte{}, data...), 0)))

	// Only the configured vault is accepted
	stake.Vault = otherVault
	assert.False(t, matches(stake.Marshal()))

	// The vault key must sit at offset 8, not elsewhere in the record
	misplaced := StakeAccount{Vault: otherVault, Owner: vault, Amount: 5}
	assert.False(t, matches(misplaced.Marshal()))

	var sliced StakeAccount
	require.NoError(t, sliced.UnmarshalSlice(config.DataSlice.Apply(data)))
	assert.Equal(t, ed25519.PublicKey(owner), sliced.Owner)
	assert.EqualValues(t, 5, sliced.Amount)
}
