package compute_budget

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/stake-disburser/pkg/solana"
)

// ComputeBudget111111111111111111111111111111
var ProgramKey = ed25519.PublicKey{3, 6, 70, 111, 229, 33, 23, 50, 255, 236, 173, 186, 114, 195, 155, 231, 188, 140, 229, 187, 197, 247, 18, 107, 44, 67, 155, 58, 64, 0, 0, 0}

const (
	commandRequestUnits uint8 = iota
	commandRequestHeapFrame
	commandSetComputeUnitLimit
	commandSetComputeUnitPrice
)

// SetComputeUnitLimit caps the compute units the transaction may consume.
func SetComputeUnitLimit(computeUnitLimit uint32) solana.Instruction {
	data := make([]byte, 5)
	binary.LittleEndian.PutUint32(data[1:], computeUnitLimit)
	return newInstruction(commandSetComputeUnitLimit, data)
}

// SetComputeUnitPrice sets the priority fee, in micro-lamports per compute
// unit.
func SetComputeUnitPrice(computeUnitPrice uint64) solana.Instruction {
	data := make([]byte, 9)
	binary.LittleEndian.PutUint64(data[1:], computeUnitPrice)
	return newInstruction(commandSetComputeUnitPrice, data)
}

// newInstruction stamps command into the first byte of data.
func newInstruction(command uint8, data []byte) solana.Instruction {
	data[0] = command
	return solana.NewInstruction(ProgramKey, data)
}

// IsComputeBudgetInstruction reports whether the instruction at index targets
// the compute budget program.
func IsComputeBudgetInstruction(m solana.Message, index int) bool {
	if index < 0 || index >= len(m.Instructions) {
		return false
	}
	return bytes.Equal(m.Accounts[m.Instructions[index].ProgramIndex], ProgramKey)
}

func ParseSetComputeUnitLimitIxnData(data []byte) (uint32, error) {
	if err := checkData(data, commandSetComputeUnitLimit, 5); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data[1:]), nil
}

func ParseSetComputeUnitPriceIxnData(data []byte) (uint64, error) {
	if err := checkData(data, commandSetComputeUnitPrice, 9); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data[1:]), nil
}

func checkData(data []byte, command uint8, size int) error {
	if len(data) != size {
		return errors.Wrapf(solana.ErrIncorrectInstruction, "invalid length %d", len(data))
	}
	if data[0] != command {
		return errors.Wrapf(solana.ErrIncorrectInstruction, "unexpected command %d", data[0])
	}
	return nil
}
