package disbursement

import (
	"context"

	"github.com/code-payments/stake-disburser/pkg/metrics"
)

const (
	metricsStructName = "disbursement.service"

	disbursementRunTransactionName = "disbursement__run"

	recipientOutcomeEventName = "DisbursementRecipientOutcome"
	runCompletedEventName     = "DisbursementRunCompleted"

	confirmationLatencyMetricName = "Disbursement/confirmation_latency"
	disbursedCountMetricName      = "Disbursement/disbursed_count"
)

func recordRecipientOutcomeEvent(ctx context.Context, runID string, outcome *Outcome) {
	kvs := map[string]interface{}{
		"run_id":                runID,
		"stake_account":         outcome.StakeAccount,
		"owner":                 outcome.Owner,
		"token_account":         outcome.TokenAccount,
		"staked":                outcome.Staked,
		"amount":                outcome.Amount,
		"created_token_account": outcome.CreatedTokenAccount,
		"signature":             outcome.Signature,
		"status":                outcome.Status.String(),
	}
	if outcome.Err != nil {
		kvs["error"] = outcome.Err.Error()
	}

	metrics.RecordEvent(ctx, recipientOutcomeEventName, kvs)
}

func recordRunCompletedEvent(ctx context.Context, report *Report) {
	kvs := map[string]interface{}(report.fields())
	kvs["completed"] = report.Completed()
	if report.Err != nil {
		kvs["error"] = report.Err.Error()
	}

	metrics.RecordEvent(ctx, runCompletedEventName, kvs)
	metrics.RecordCount(ctx, disbursedCountMetricName, uint64(report.Disbursed()))
}
