// Package retry runs actions repeatedly under a set of composable strategies.
package retry

// Action is an operation that may be retried.
type Action func() error

// Retrier retries the provided action.
type Retrier interface {
	Retry(action Action) (uint, error)
}

type retrier struct {
	strategies []Strategy
}

// NewRetrier returns a Retrier bound to strategies. With no strategies the
// action is retried in a tight loop until it succeeds.
func NewRetrier(strategies ...Strategy) Retrier {
	return &retrier{
		strategies: strategies,
	}
}

func (r *retrier) Retry(action Action) (uint, error) {
	return Retry(action, r.strategies...)
}

// Retry runs action until it succeeds or one of the strategies declines
// another attempt, returning the number of attempts made.
//
// Strategies are consulted in order after each failure and evaluation stops
// at the first one that declines, so strategies that sleep belong last.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	for attempts := uint(1); ; attempts++ {
		err := action()
		if err == nil {
			return attempts, nil
		}

		if !shouldRetry(attempts, err, strategies) {
			return attempts, err
		}
	}
}

func shouldRetry(attempts uint, err error, strategies []Strategy) bool {
	for _, s := range strategies {
		if !s(attempts, err) {
			return false
		}
	}
	return true
}
