package disbursement

import (
	"context"
	"crypto/ed25519"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/stake-disburser/pkg/app"
	"github.com/code-payments/stake-disburser/pkg/common"
	"github.com/code-payments/stake-disburser/pkg/metrics"
	"github.com/code-payments/stake-disburser/pkg/solana"
	"github.com/code-payments/stake-disburser/pkg/solana/memo"
	"github.com/code-payments/stake-disburser/pkg/solana/stakepool"
	"github.com/code-payments/stake-disburser/pkg/solana/token"
)

// Service pays every staker of a vault one hundredth of their stake.
type Service interface {
	// Disburse runs a single disbursement. Recipients are paid one at a
	// time, and the first failure stops the run. The returned report is
	// never nil and describes the run up to the point it stopped.
	Disburse(ctx context.Context) (*Report, error)
}

type service struct {
	log  *logrus.Entry
	conf *conf
	sc   solana.Client

	vault   *common.Account
	program *common.Account
	signer  *common.Account

	scanCommitment    solana.Commitment
	confirmCommitment solana.Commitment
	skipZeroPayouts   bool
	dryRun            bool

	computeUnitPrice uint64
	computeUnitLimit uint32
	memo             string
}

// New validates the configuration and returns a Service. No RPC calls are
// made.
func New(sc solana.Client, configProvider ConfigProvider) (Service, error) {
	s := &service{
		log:  logrus.StandardLogger().WithField("service", "disbursement"),
		conf: configProvider(),
		sc:   sc,
	}

	if err := s.loadConfig(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (p *service) loadConfig(ctx context.Context) (err error) {
	log := p.log.WithField("method", "loadConfig")

	p.vault, err = loadPublicKey(p.conf.vault.Get(ctx), VaultConfigEnvName)
	if err != nil {
		log.WithError(err).Warn("invalid vault")
		return err
	}

	p.program, err = loadPublicKey(p.conf.program.Get(ctx), ProgramConfigEnvName)
	if err != nil {
		log.WithError(err).Warn("invalid program")
		return err
	}

	p.signer, err = p.loadSigner(ctx)
	if err != nil {
		log.WithError(err).Warn("invalid signer")
		return err
	}

	p.scanCommitment, err = solana.ParseCommitment(p.conf.scanCommitment.Get(ctx))
	if err != nil {
		log.WithError(err).Warn("invalid scan commitment")
		return errors.Wrapf(ErrInvalidConfig, "%s: %s", ScanCommitmentConfigEnvName, err)
	}

	p.confirmCommitment, err = solana.ParseCommitment(p.conf.confirmCommitment.Get(ctx))
	if err != nil {
		log.WithError(err).Warn("invalid confirm commitment")
		return errors.Wrapf(ErrInvalidConfig, "%s: %s", ConfirmCommitmentConfigEnvName, err)
	}

	p.skipZeroPayouts, err = p.conf.skipZeroPayouts.GetSafe(ctx)
	if err != nil {
		log.WithError(err).Warn("invalid skip zero payouts flag")
		return errors.Wrapf(ErrInvalidConfig, "%s: %s", SkipZeroPayoutsConfigEnvName, err)
	}

	p.dryRun, err = p.conf.dryRun.GetSafe(ctx)
	if err != nil {
		log.WithError(err).Warn("invalid dry run flag")
		return errors.Wrapf(ErrInvalidConfig, "%s: %s", DryRunConfigEnvName, err)
	}

	p.computeUnitPrice, err = p.conf.computeUnitPrice.GetSafe(ctx)
	if err != nil {
		log.WithError(err).Warn("invalid compute unit price")
		return errors.Wrapf(ErrInvalidConfig, "%s: %s", ComputeUnitPriceConfigEnvName, err)
	}

	computeUnitLimit, err := p.conf.computeUnitLimit.GetSafe(ctx)
	if err != nil {
		log.WithError(err).Warn("invalid compute unit limit")
		return errors.Wrapf(ErrInvalidConfig, "%s: %s", ComputeUnitLimitConfigEnvName, err)
	}
	if computeUnitLimit > math.MaxUint32 {
		log.Warn("invalid compute unit limit")
		return errors.Wrapf(ErrInvalidConfig, "%s exceeds %d", ComputeUnitLimitConfigEnvName, uint32(math.MaxUint32))
	}
	p.computeUnitLimit = uint32(computeUnitLimit)

	p.memo = p.conf.memo.Get(ctx)
	if len(p.memo) > memo.MaxMemoSize {
		log.Warn("invalid memo")
		return errors.Wrapf(ErrInvalidConfig, "%s exceeds %d bytes", MemoConfigEnvName, memo.MaxMemoSize)
	}

	return nil
}

func (p *service) loadSigner(ctx context.Context) (*common.Account, error) {
	keypair := p.conf.signerKeypair.Get(ctx)
	keypairFile := p.conf.signerKeypairFile.Get(ctx)

	switch {
	case len(keypair) > 0 && len(keypairFile) > 0:
		return nil, errors.Wrapf(ErrInvalidConfig, "only one of %s and %s may be set", SignerKeypairConfigEnvName, SignerKeypairFileConfigEnvName)
	case len(keypairFile) > 0:
		b, err := app.LoadFile(keypairFile)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "%s: %s", SignerKeypairFileConfigEnvName, err)
		}
		keypair = string(b)
	case len(keypair) == 0:
		return nil, errors.Wrapf(ErrInvalidConfig, "%s is required", SignerKeypairConfigEnvName)
	}

	signer, err := common.NewAccountFromKeypairString(strings.TrimSpace(keypair))
	if err != nil {
		// The keypair itself is never included in the error.
		return nil, errors.Wrapf(ErrInvalidConfig, "%s is not a valid keypair", SignerKeypairConfigEnvName)
	}
	return signer, nil
}

func loadPublicKey(value, name string) (*common.Account, error) {
	if len(value) == 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s is required", name)
	}

	account, err := common.NewAccountFromPublicKeyString(value)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s: %s", name, err)
	}
	return account, nil
}

func (p *service) Disburse(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:  uuid.New().String(),
		DryRun: p.dryRun,
		Vault:  p.vault.String(),
	}

	log := p.log.WithFields(logrus.Fields{
		"method":  "Disburse",
		"run_id":  report.RunID,
		"vault":   report.Vault,
		"program": p.program.String(),
		"signer":  p.signer.String(),
		"dry_run": p.dryRun,
	})

	if nr, ok := metrics.FromContext(ctx); ok {
		m := nr.StartTransaction(disbursementRunTransactionName)
		defer m.End()
		ctx = newrelic.NewContext(ctx, m)
	}

	report.Err = p.disburse(ctx, log, report)
	if report.Err != nil {
		if m := newrelic.FromContext(ctx); m != nil {
			m.NoticeError(report.Err)
		}
	}

	report.log(log)
	recordRunCompletedEvent(ctx, report)

	return report, report.Err
}

func (p *service) disburse(ctx context.Context, log *logrus.Entry, report *Report) error {
	vault, err := p.loadVault()
	if err != nil {
		log.WithError(err).Warn("failed to load vault")
		return err
	}

	mint := vault.Mint
	report.Mint = base58.Encode(mint)
	report.Decimals = vault.Decimals
	log = log.WithField("mint", report.Mint)

	source, err := token.GetAssociatedAccount(p.signer.PublicKey().ToBytes(), mint)
	if err != nil {
		log.WithError(err).Warn("failed to derive source token account")
		return errors.Wrap(err, "failed to derive source token account")
	}

	records, err := ScanStakeAccounts(p.sc, p.program.PublicKey().ToBytes(), p.vault.PublicKey().ToBytes(), p.scanCommitment)
	if err != nil {
		log.WithError(err).Warn("failed to scan stake accounts")
		return err
	}
	report.Scanned = len(records)

	log.WithField("records", len(records)).Info("found eligible stake accounts")

	p.checkFunding(log, mint, source, records)

	for _, record := range records {
		// A recipient that has started is seen through to confirmation, but
		// no new recipient is started after cancellation.
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("disbursement interrupted")
			return err
		}

		outcome := newOutcome(record)
		report.Outcomes = append(report.Outcomes, outcome)

		err := p.disburseTo(ctx, log, vault, source, record, outcome)
		recordRecipientOutcomeEvent(ctx, report.RunID, outcome)
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *service) disburseTo(ctx context.Context, log *logrus.Entry, vault *stakepool.VaultAccount, source ed25519.PublicKey, record *StakeRecord, outcome *Outcome) error {
	log = log.WithFields(logrus.Fields{
		"stake_account": outcome.StakeAccount,
		"owner":         outcome.Owner,
		"staked":        outcome.Staked,
		"amount":        outcome.Amount,
	})

	fail := func(err error) error {
		outcome.Status = OutcomeStatusFailed
		outcome.Err = err
		return err
	}

	if outcome.Amount == 0 && p.skipZeroPayouts {
		log.Debug("skipping zero payout")
		outcome.Status = OutcomeStatusSkipped
		return nil
	}

	recipient, err := ResolveRecipient(p.sc, record.Account.Owner, vault.Mint, p.confirmCommitment)
	if err != nil {
		log.WithError(err).Warn("failed to resolve recipient token account")
		return fail(err)
	}
	outcome.TokenAccount = base58.Encode(recipient.TokenAccount)
	outcome.CreatedTokenAccount = recipient.NeedsCreation

	log = log.WithFields(logrus.Fields{
		"token_account":        outcome.TokenAccount,
		"create_token_account": recipient.NeedsCreation,
	})

	instructions, err := recipient.Instructions(p.signer.PublicKey().ToBytes(), source, vault.Mint, outcome.Amount, vault.Decimals)
	if err != nil {
		log.WithError(err).Warn("failed to build instructions")
		return fail(err)
	}

	sig, err := p.submit(ctx, instructions)
	outcome.setSignature(sig)
	if err != nil {
		log.WithError(err).WithField("signature", outcome.Signature).Warn("failed to disburse")
		return fail(err)
	}

	if p.dryRun {
		outcome.Status = OutcomeStatusSigned
		log.WithField("signature", outcome.Signature).Info("signed disbursement (dry run)")
		return nil
	}

	outcome.Status = OutcomeStatusConfirmed
	log.WithField("signature", outcome.Signature).Info("disbursement confirmed")
	return nil
}

func (p *service) loadVault() (*stakepool.VaultAccount, error) {
	info, err := p.sc.GetAccountInfo(p.vault.PublicKey().ToBytes(), p.scanCommitment)
	if err == solana.ErrNoAccountInfo {
		return nil, errors.Wrap(ErrVaultNotFound, p.vault.String())
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get vault account")
	}

	var vault stakepool.VaultAccount
	if err := vault.Unmarshal(info.Data); err != nil {
		return nil, errors.Wrap(err, "invalid vault account")
	}
	return &vault, nil
}

// checkFunding warns when the signer looks unable to fund the run. Nothing is
// aborted here; an underfunded transfer fails on its own.
func (p *service) checkFunding(log *logrus.Entry, mint, source ed25519.PublicKey, records []*StakeRecord) {
	if p.dryRun {
		return
	}

	required := totalPayout(records)

	log = log.WithFields(logrus.Fields{
		"source":   base58.Encode(source),
		"required": required,
	})

	lamports, err := p.sc.GetBalance(p.signer.PublicKey().ToBytes())
	if err != nil && err != solana.ErrNoBalance {
		log.WithError(err).Warn("failed to get signer balance")
	} else if lamports == 0 {
		log.Warn("signer has no lamports to pay fees with")
	}

	balance, err := token.NewClient(p.sc, mint).GetBalance(source, p.scanCommitment)
	if err != nil {
		log.WithError(err).Warn("failed to get source token balance")
		return
	}
	if balance < required {
		log.WithField("balance", balance).Warn("source token account balance is below the total payout")
	}
}

// totalPayout sums the payouts of records, saturating at math.MaxUint64.
func totalPayout(records []*StakeRecord) uint64 {
	var total uint64
	for _, record := range records {
		payout := Payout(record.Account.Amount)
		if total > math.MaxUint64-payout {
			return math.MaxUint64
		}
		total += payout
	}
	return total
}
