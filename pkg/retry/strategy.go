package retry

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/stake-disburser/pkg/retry/backoff"
)

// Strategy decides whether a failed action should be retried. Strategies may
// block or cause other side effects before returning.
type Strategy func(attempts uint, err error) bool

// Limit allows at most maxAttempts executions in total, the first included.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors only retries errors matching one of retriableErrors, as
// reported by errors.Is.
func RetriableErrors(retriableErrors ...error) Strategy {
	return func(_ uint, err error) bool {
		for _, e := range retriableErrors {
			if errors.Is(err, e) {
				return true
			}
		}
		return false
	}
}

// Observe returns a strategy that reports each failed attempt to fn and never
// stops a retry. Place it after the strategies that can decline, so fn only
// sees attempts that will actually be retried.
func Observe(fn func(attempts uint, err error)) Strategy {
	return func(attempts uint, err error) bool {
		fn(attempts, err)
		return true
	}
}

// Backoff sleeps for the strategy's delay, capped at maxBackoff, before every
// retry.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return func(attempts uint, _ error) bool {
		sleeperImpl.Sleep(cappedDelay(strategy, attempts, maxBackoff))
		return true
	}
}

// BackoffWithJitter is Backoff with the capped delay randomly shifted by up
// to jitter (a fraction) in either direction. A capped delay of 100ms with a
// jitter of 0.1 sleeps between 90ms and 110ms.
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(attempts uint, _ error) bool {
		delay := float64(cappedDelay(strategy, attempts, maxBackoff))
		offset := (rand.Float64()*2 - 1) * jitter
		sleeperImpl.Sleep(time.Duration(delay * (1 + offset)))
		return true
	}
}

func cappedDelay(strategy backoff.Strategy, attempts uint, maxBackoff time.Duration) time.Duration {
	if delay := strategy(attempts); delay < maxBackoff {
		return delay
	}
	return maxBackoff
}

type sleeper interface {
	Sleep(time.Duration)
}

type realSleeper struct{}

func (r *realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

var sleeperImpl sleeper = &realSleeper{}
