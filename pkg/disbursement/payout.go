package disbursement

// PayoutDivisor is the share of a stake paid out: one hundredth.
const PayoutDivisor = 100

// Payout returns the amount disbursed for a staked amount, in the mint's
// base units. Any remainder is truncated.
func Payout(staked uint64) uint64 {
	return staked / PayoutDivisor
}
