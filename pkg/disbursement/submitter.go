package disbursement

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/stake-disburser/pkg/metrics"
	"github.com/code-payments/stake-disburser/pkg/solana"
	compute_budget "github.com/code-payments/stake-disburser/pkg/solana/computebudget"
	"github.com/code-payments/stake-disburser/pkg/solana/memo"
)

// transactionInstructions wraps a recipient's instructions with the
// configured compute budget and memo instructions.
func (p *service) transactionInstructions(instructions []solana.Instruction) []solana.Instruction {
	var res []solana.Instruction

	if p.computeUnitLimit > 0 {
		res = append(res, compute_budget.SetComputeUnitLimit(p.computeUnitLimit))
	}
	if p.computeUnitPrice > 0 {
		res = append(res, compute_budget.SetComputeUnitPrice(p.computeUnitPrice))
	}

	res = append(res, instructions...)

	if len(p.memo) > 0 {
		res = append(res, memo.Instruction(p.memo))
	}

	return res
}

// submit signs the instructions into a transaction against a fresh blockhash,
// then submits it and waits for the configured commitment. In dry run mode
// the signed transaction is returned without being submitted.
func (p *service) submit(ctx context.Context, instructions []solana.Instruction) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "submit")
	defer tracer.End()

	sig, err := func() (solana.Signature, error) {
		blockhash, err := p.sc.GetLatestBlockhash()
		if err != nil {
			return solana.Signature{}, errors.Wrap(err, "failed to get latest blockhash")
		}

		txn := solana.NewTransaction(p.signer.PublicKey().ToBytes(), p.transactionInstructions(instructions)...)
		txn.SetBlockhash(blockhash)
		if err := txn.Sign(p.signer.PrivateKey().ToBytes()); err != nil {
			return solana.Signature{}, errors.Wrap(err, "failed to sign transaction")
		}

		tracer.AddAttribute("signature", txn.Signature().String())

		if p.dryRun {
			return txn.Signature(), nil
		}

		start := time.Now()

		sig, err := p.sc.SubmitTransaction(txn, p.confirmCommitment)
		if err != nil {
			var txErr *solana.TransactionError
			if errors.As(err, &txErr) {
				return sig, &TransactionFailedError{Signature: txn.Signature(), Reason: txErr}
			}
			return sig, errors.Wrap(err, "failed to submit transaction")
		}

		status, err := p.sc.GetSignatureStatus(sig, p.confirmCommitment)
		if err != nil {
			return sig, errors.Wrapf(err, "failed to confirm transaction %s", sig)
		}
		if status.ErrorResult != nil {
			return sig, &TransactionFailedError{Signature: sig, Reason: status.ErrorResult}
		}

		metrics.RecordDuration(ctx, confirmationLatencyMetricName, time.Since(start))

		return sig, nil
	}()

	tracer.OnError(err)
	return sig, err
}
