package disbursement

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/code-payments/stake-disburser/pkg/solana"
)

var (
	// ErrInvalidConfig indicates a missing or malformed configuration value.
	ErrInvalidConfig = errors.New("invalid disbursement config")

	// ErrVaultNotFound indicates the configured vault account does not exist.
	ErrVaultNotFound = errors.New("vault account not found")

	// ErrTransactionFailed indicates a disbursement transaction was rejected
	// by the ledger, either during simulation or after landing.
	ErrTransactionFailed = errors.New("disbursement transaction failed")
)

// TransactionFailedError carries the ledger's reason for a failed
// disbursement transaction. It matches ErrTransactionFailed with errors.Is.
type TransactionFailedError struct {
	Signature solana.Signature
	Reason    *solana.TransactionError
}

func (e *TransactionFailedError) Error() string {
	if e.Reason == nil {
		return fmt.Sprintf("%s: %s", ErrTransactionFailed, e.Signature)
	}
	return fmt.Sprintf("%s: %s: %s", ErrTransactionFailed, e.Signature, e.Reason)
}

func (e *TransactionFailedError) Is(target error) bool {
	return target == ErrTransactionFailed
}

func (e *TransactionFailedError) Unwrap() error {
	if e.Reason == nil {
		return nil
	}
	return e.Reason
}
