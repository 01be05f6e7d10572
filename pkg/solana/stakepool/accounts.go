// Package stakepool decodes the accounts of the on-chain staking program a
// disbursement pays out against.
//
// All multi-byte integers are little endian and every account begins with an
// 8 byte discriminator that is not interpreted.
package stakepool

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/stake-disburser/pkg/solana"
	"github.com/code-payments/stake-disburser/pkg/solana/binary"
)

const discriminatorSize = 8

// Vault account layout:
//
//	[0:8]   discriminator
//	[8:40]  authority
//	[40:72] mint
//	[72]    mint decimals
//
// Anything past the decimals byte is ignored.
const (
	vaultAuthorityOffset = discriminatorSize
	vaultMintOffset      = vaultAuthorityOffset + ed25519.PublicKeySize
	vaultDecimalsOffset  = vaultMintOffset + ed25519.PublicKeySize

	VaultAccountMinSize = vaultDecimalsOffset + 1
)

// Stake account layout:
//
//	[0:8]   discriminator
//	[8:40]  vault
//	[40:72] owner
//	[72]    flag
//	[73:81] staked amount
const (
	stakeVaultOffset  = discriminatorSize
	stakeOwnerOffset  = stakeVaultOffset + ed25519.PublicKeySize
	stakeFlagOffset   = stakeOwnerOffset + ed25519.PublicKeySize
	stakeAmountOffset = stakeFlagOffset + 1

	StakeAccountSize = stakeAmountOffset + 8
)

// The portion of a stake account returned by a scan: owner, flag and amount.
const (
	StakeSliceOffset = stakeOwnerOffset
	StakeSliceLength = StakeAccountSize - StakeSliceOffset
)

var ErrInvalidSize = errors.New("invalid account size")

type VaultAccount struct {
	Authority ed25519.PublicKey
	Mint      ed25519.PublicKey
	Decimals  uint8
}

func (obj *VaultAccount) Unmarshal(data []byte) error {
	if len(data) < VaultAccountMinSize {
		return errors.Wrapf(ErrInvalidSize, "vault account has %d bytes, need at least %d", len(data), VaultAccountMinSize)
	}

	var offset int
	if err := binary.Skip(data, discriminatorSize, &offset); err != nil {
		return err
	}
	if err := binary.GetKey32(data[offset:], &obj.Authority, &offset); err != nil {
		return err
	}
	if err := binary.GetKey32(data[offset:], &obj.Mint, &offset); err != nil {
		return err
	}
	return binary.GetUint8(data[offset:], &obj.Decimals, &offset)
}

func (obj *VaultAccount) Marshal() []byte {
	data := make([]byte, VaultAccountMinSize)

	offset := discriminatorSize
	binary.PutKey32(data[offset:], obj.Authority, &offset)
	binary.PutKey32(data[offset:], obj.Mint, &offset)
	binary.PutUint8(data[offset:], obj.Decimals, &offset)

	return data
}

type StakeAccount struct {
	Vault  ed25519.PublicKey
	Owner  ed25519.PublicKey
	Flag   uint8
	Amount uint64
}

// Unmarshal decodes a complete stake account.
func (obj *StakeAccount) Unmarshal(data []byte) error {
	if len(data) != StakeAccountSize {
		return errors.Wrapf(ErrInvalidSize, "stake account has %d bytes, expected %d", len(data), StakeAccountSize)
	}

	var offset int
	if err := binary.Skip(data, discriminatorSize, &offset); err != nil {
		return err
	}
	if err := binary.GetKey32(data[offset:], &obj.Vault, &offset); err != nil {
		return err
	}
	return obj.UnmarshalSlice(data[offset:])
}

// UnmarshalSlice decodes the scan slice of a stake account. Vault is left
// untouched since the scan already pinned it.
func (obj *StakeAccount) UnmarshalSlice(data []byte) error {
	if len(data) != StakeSliceLength {
		return errors.Wrapf(ErrInvalidSize, "stake slice has %d bytes, expected %d", len(data), StakeSliceLength)
	}

	var offset int
	if err := binary.GetKey32(data, &obj.Owner, &offset); err != nil {
		return err
	}
	if err := binary.GetUint8(data[offset:], &obj.Flag, &offset); err != nil {
		return err
	}
	return binary.GetUint64(data[offset:], &obj.Amount, &offset)
}

func (obj *StakeAccount) Marshal() []byte {
	data := make([]byte, StakeAccountSize)

	offset := discriminatorSize
	binary.PutKey32(data[offset:], obj.Vault, &offset)
	binary.PutKey32(data[offset:], obj.Owner, &offset)
	binary.PutUint8(data[offset:], obj.Flag, &offset)
	binary.PutUint64(data[offset:], obj.Amount, &offset)

	return data
}

// StakeAccountsConfig scans for every stake account of vault, returning only
// the owner, flag and amount of each.
func StakeAccountsConfig(vault ed25519.PublicKey, commitment solana.Commitment) solana.ProgramAccountsConfig {
	return solana.ProgramAccountsConfig{
		Commitment: commitment,
		Filters: []solana.ProgramAccountsFilter{
			solana.NewDataSizeFilter(StakeAccountSize),
			solana.NewMemcmpFilter(stakeVaultOffset, vault),
		},
		DataSlice: &solana.DataSlice{
			Offset: StakeSliceOffset,
			Length: StakeSliceLength,
		},
	}
}
