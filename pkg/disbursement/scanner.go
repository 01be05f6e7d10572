package disbursement

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/stake-disburser/pkg/solana"
	"github.com/code-payments/stake-disburser/pkg/solana/stakepool"
)

// StakeRecord is an eligible stake account as returned by a scan.
type StakeRecord struct {
	Address ed25519.PublicKey
	Account stakepool.StakeAccount
}

// ScanStakeAccounts returns every stake account owned by program that belongs
// to vault, in the order the node returned them.
//
// Only the owner, flag and amount are fetched, so Account.Vault is set from
// the vault argument, which the scan filters on.
func ScanStakeAccounts(sc solana.Client, program, vault ed25519.PublicKey, commitment solana.Commitment) ([]*StakeRecord, error) {
	accounts, err := sc.GetProgramAccounts(program, stakepool.StakeAccountsConfig(vault, commitment))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get stake accounts")
	}

	records := make([]*StakeRecord, 0, len(accounts))
	for _, keyed := range accounts {
		record := &StakeRecord{
			Address: keyed.PublicKey,
		}

		if err := record.Account.UnmarshalSlice(keyed.Account.Data); err != nil {
			return nil, errors.Wrapf(err, "invalid stake account %s", base58.Encode(keyed.PublicKey))
		}
		record.Account.Vault = vault

		records = append(records, record)
	}

	return records, nil
}
