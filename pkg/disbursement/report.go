package disbursement

import (
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/stake-disburser/pkg/solana"
)

// OutcomeStatus is the terminal state of a single recipient within a run.
type OutcomeStatus uint8

const (
	OutcomeStatusUnknown OutcomeStatus = iota
	OutcomeStatusConfirmed
	OutcomeStatusSigned // dry run
	OutcomeStatusSkipped
	OutcomeStatusFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeStatusConfirmed:
		return "confirmed"
	case OutcomeStatusSigned:
		return "signed"
	case OutcomeStatusSkipped:
		return "skipped"
	case OutcomeStatusFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome records what happened to a single stake record.
type Outcome struct {
	StakeAccount string
	Owner        string
	TokenAccount string

	Staked uint64
	Amount uint64

	CreatedTokenAccount bool
	Signature           string

	Status OutcomeStatus
	Err    error
}

// Report is the in memory account of a run. It is complete up to the point
// the run stopped, whether it finished or aborted.
type Report struct {
	RunID  string
	DryRun bool

	Vault    string
	Mint     string
	Decimals byte

	// Scanned is the number of eligible stake records found.
	Scanned  int
	Outcomes []*Outcome

	Err error
}

func newOutcome(record *StakeRecord) *Outcome {
	return &Outcome{
		StakeAccount: base58.Encode(record.Address),
		Owner:        base58.Encode(record.Account.Owner),
		Staked:       record.Account.Amount,
		Amount:       Payout(record.Account.Amount),
	}
}

func (o *Outcome) setSignature(sig solana.Signature) {
	if sig != (solana.Signature{}) {
		o.Signature = sig.String()
	}
}

// Disbursed returns the number of recipients that were paid, or signed for
// in a dry run.
func (r *Report) Disbursed() int {
	var count int
	for _, o := range r.Outcomes {
		if o.Status == OutcomeStatusConfirmed || o.Status == OutcomeStatusSigned {
			count++
		}
	}
	return count
}

// Skipped returns the number of recipients passed over for a zero payout.
func (r *Report) Skipped() int {
	var count int
	for _, o := range r.Outcomes {
		if o.Status == OutcomeStatusSkipped {
			count++
		}
	}
	return count
}

// TotalDisbursed is the sum of the amounts counted by Disbursed.
func (r *Report) TotalDisbursed() uint64 {
	var total uint64
	for _, o := range r.Outcomes {
		if o.Status == OutcomeStatusConfirmed || o.Status == OutcomeStatusSigned {
			total += o.Amount
		}
	}
	return total
}

// Failed returns the outcome that aborted the run, if any.
func (r *Report) Failed() *Outcome {
	for _, o := range r.Outcomes {
		if o.Status == OutcomeStatusFailed {
			return o
		}
	}
	return nil
}

// Completed reports whether every scanned record reached a terminal state
// without error.
func (r *Report) Completed() bool {
	return r.Err == nil && len(r.Outcomes) == r.Scanned
}

func (r *Report) fields() logrus.Fields {
	return logrus.Fields{
		"run_id":          r.RunID,
		"dry_run":         r.DryRun,
		"vault":           r.Vault,
		"mint":            r.Mint,
		"scanned":         r.Scanned,
		"disbursed":       r.Disbursed(),
		"skipped":         r.Skipped(),
		"total_disbursed": r.TotalDisbursed(),
	}
}

func (r *Report) log(log *logrus.Entry) {
	log = log.WithFields(r.fields())

	if r.Err == nil {
		log.Info("disbursement completed")
		return
	}

	if failed := r.Failed(); failed != nil {
		log = log.WithFields(logrus.Fields{
			"failed_stake_account": failed.StakeAccount,
			"failed_owner":         failed.Owner,
			"failed_signature":     failed.Signature,
		})
	}
	log.WithError(r.Err).Error("disbursement aborted")
}
