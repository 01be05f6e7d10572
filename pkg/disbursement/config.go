package disbursement

import (
	"github.com/code-payments/stake-disburser/pkg/config"
	"github.com/code-payments/stake-disburser/pkg/config/env"
	"github.com/code-payments/stake-disburser/pkg/config/memory"
	"github.com/code-payments/stake-disburser/pkg/config/wrapper"
)

const (
	envConfigPrefix = "DISBURSEMENT_"

	// The connection and account settings keep the names operators already
	// export for the staking program tooling.

	RpcUrlConfigEnvName = "RPC_URL"
	defaultRpcUrl       = ""

	VaultConfigEnvName = "VAULT_PUBKEY"
	defaultVault       = ""

	ProgramConfigEnvName = "PROGRAM_PUBKEY"
	defaultProgram       = ""

	SignerKeypairConfigEnvName = "SIGNER_KEYPAIR"
	defaultSignerKeypair       = ""

	SignerKeypairFileConfigEnvName = "SIGNER_KEYPAIR_FILE"
	defaultSignerKeypairFile       = ""

	ScanCommitmentConfigEnvName = envConfigPrefix + "SCAN_COMMITMENT"
	defaultScanCommitment       = "processed"

	ConfirmCommitmentConfigEnvName = envConfigPrefix + "CONFIRM_COMMITMENT"
	defaultConfirmCommitment       = "confirmed"

	SkipZeroPayoutsConfigEnvName = envConfigPrefix + "SKIP_ZERO_PAYOUTS"
	defaultSkipZeroPayouts       = false

	DryRunConfigEnvName = envConfigPrefix + "DRY_RUN"
	defaultDryRun       = false

	RpcRequestsPerSecondConfigEnvName = envConfigPrefix + "RPC_REQUESTS_PER_SECOND"
	defaultRpcRequestsPerSecond       = 0

	ComputeUnitPriceConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_PRICE"
	defaultComputeUnitPrice       = 0 // micro-lamports, 0 omits the instruction

	ComputeUnitLimitConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_LIMIT"
	defaultComputeUnitLimit       = 0 // 0 omits the instruction

	MemoConfigEnvName = envConfigPrefix + "MEMO"
	defaultMemo       = ""
)

type conf struct {
	rpcUrl               config.String
	vault                config.String
	program              config.String
	signerKeypair        config.String
	signerKeypairFile    config.String
	scanCommitment       config.String
	confirmCommitment    config.String
	skipZeroPayouts      config.Bool
	dryRun               config.Bool
	rpcRequestsPerSecond config.Float64
	computeUnitPrice     config.Uint64
	computeUnitLimit     config.Uint64
	memo                 config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			rpcUrl:               env.NewStringConfig(RpcUrlConfigEnvName, defaultRpcUrl),
			vault:                env.NewStringConfig(VaultConfigEnvName, defaultVault),
			program:              env.NewStringConfig(ProgramConfigEnvName, defaultProgram),
			signerKeypair:        env.NewStringConfig(SignerKeypairConfigEnvName, defaultSignerKeypair),
			signerKeypairFile:    env.NewStringConfig(SignerKeypairFileConfigEnvName, defaultSignerKeypairFile),
			scanCommitment:       env.NewStringConfig(ScanCommitmentConfigEnvName, defaultScanCommitment),
			confirmCommitment:    env.NewStringConfig(ConfirmCommitmentConfigEnvName, defaultConfirmCommitment),
			skipZeroPayouts:      env.NewBoolConfig(SkipZeroPayoutsConfigEnvName, defaultSkipZeroPayouts),
			dryRun:               env.NewBoolConfig(DryRunConfigEnvName, defaultDryRun),
			rpcRequestsPerSecond: env.NewFloat64Config(RpcRequestsPerSecondConfigEnvName, defaultRpcRequestsPerSecond),
			computeUnitPrice:     env.NewUint64Config(ComputeUnitPriceConfigEnvName, defaultComputeUnitPrice),
			computeUnitLimit:     env.NewUint64Config(ComputeUnitLimitConfigEnvName, defaultComputeUnitLimit),
			memo:                 env.NewStringConfig(MemoConfigEnvName, defaultMemo),
		}
	}
}

type testOverrides struct {
	rpcUrl            string
	vault             string
	program           string
	signerKeypair     string
	signerKeypairFile string
	scanCommitment    string
	confirmCommitment string
	skipZeroPayouts   bool
	dryRun            bool
	computeUnitPrice  uint64
	computeUnitLimit  uint64
	memo              string
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		scanCommitment := defaultScanCommitment
		if len(overrides.scanCommitment) > 0 {
			scanCommitment = overrides.scanCommitment
		}
		confirmCommitment := defaultConfirmCommitment
		if len(overrides.confirmCommitment) > 0 {
			confirmCommitment = overrides.confirmCommitment
		}

		return &conf{
			rpcUrl:               wrapper.NewStringConfig(memory.NewConfig(overrides.rpcUrl), defaultRpcUrl),
			vault:                wrapper.NewStringConfig(memory.NewConfig(overrides.vault), defaultVault),
			program:              wrapper.NewStringConfig(memory.NewConfig(overrides.program), defaultProgram),
			signerKeypair:        wrapper.NewStringConfig(memory.NewConfig(overrides.signerKeypair), defaultSignerKeypair),
			signerKeypairFile:    wrapper.NewStringConfig(memory.NewConfig(overrides.signerKeypairFile), defaultSignerKeypairFile),
			scanCommitment:       wrapper.NewStringConfig(memory.NewConfig(scanCommitment), defaultScanCommitment),
			confirmCommitment:    wrapper.NewStringConfig(memory.NewConfig(confirmCommitment), defaultConfirmCommitment),
			skipZeroPayouts:      wrapper.NewBoolConfig(memory.NewConfig(overrides.skipZeroPayouts), defaultSkipZeroPayouts),
			dryRun:               wrapper.NewBoolConfig(memory.NewConfig(overrides.dryRun), defaultDryRun),
			rpcRequestsPerSecond: wrapper.NewFloat64Config(memory.NewConfig(float64(defaultRpcRequestsPerSecond)), defaultRpcRequestsPerSecond),
			computeUnitPrice:     wrapper.NewUint64Config(memory.NewConfig(overrides.computeUnitPrice), defaultComputeUnitPrice),
			computeUnitLimit:     wrapper.NewUint64Config(memory.NewConfig(overrides.computeUnitLimit), defaultComputeUnitLimit),
			memo:                 wrapper.NewStringConfig(memory.NewConfig(overrides.memo), defaultMemo),
		}
	}
}
