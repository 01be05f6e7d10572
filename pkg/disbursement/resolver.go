package disbursement

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/stake-disburser/pkg/solana"
	"github.com/code-payments/stake-disburser/pkg/solana/token"
)

// ResolvedRecipient is the token account a payout is sent to.
type ResolvedRecipient struct {
	Owner        ed25519.PublicKey
	TokenAccount ed25519.PublicKey

	// NeedsCreation is set when the associated token account holds no
	// lamports, meaning it has not been created yet.
	NeedsCreation bool
}

// ResolveRecipient derives the owner's associated token account for mint and
// checks whether it exists.
func ResolveRecipient(sc solana.Client, owner, mint ed25519.PublicKey, commitment solana.Commitment) (*ResolvedRecipient, error) {
	ata, err := token.GetAssociatedAccount(owner, mint)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to derive token account for %s", base58.Encode(owner))
	}

	resolved := &ResolvedRecipient{
		Owner:        owner,
		TokenAccount: ata,
	}

	info, err := sc.GetAccountInfo(ata, commitment)
	switch err {
	case nil:
		resolved.NeedsCreation = info.Lamports == 0
	case solana.ErrNoAccountInfo:
		resolved.NeedsCreation = true
	default:
		return nil, errors.Wrapf(err, "failed to get token account %s", base58.Encode(ata))
	}

	return resolved, nil
}

// Instructions returns the instructions disbursing amount from source to the
// recipient. When the token account needs creation, the creation instruction
// comes first, paid for by signer.
func (r *ResolvedRecipient) Instructions(signer, source, mint ed25519.PublicKey, amount uint64, decimals byte) ([]solana.Instruction, error) {
	var instructions []solana.Instruction

	if r.NeedsCreation {
		create, _, err := token.CreateAssociatedTokenAccountIdempotent(signer, r.Owner, mint)
		if err != nil {
			return nil, errors.Wrap(err, "failed to build token account creation instruction")
		}
		instructions = append(instructions, create)
	}

	instructions = append(instructions, token.TransferChecked(source, mint, r.TokenAccount, signer, amount, decimals))

	return instructions, nil
}
