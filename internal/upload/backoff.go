package upload

import "time"

// Defaults follow common streaming-insert guidance: start small, double, cap.
const (
	DefaultMaxRetries          = 5
	DefaultMaxConnectionResets = 3
	DefaultInitialRetryDelay   = 1000 * time.Millisecond
	DefaultMaxRetryDelay       = 32 * time.Second
	DefaultInterBatchDelay     = 200 * time.Millisecond
	DefaultMinSplitSize        = 10
)

// Limits bounds the per-batch retry state machine.
type Limits struct {
	MaxRetries          int
	MaxConnectionResets int
	InitialRetryDelay   time.Duration
	MaxRetryDelay       time.Duration
	InterBatchDelay     time.Duration
	MinSplitSize        int
}

// DefaultLimits provides sensible defaults.
var DefaultLimits = Limits{
	MaxRetries:          DefaultMaxRetries,
	MaxConnectionResets: DefaultMaxConnectionResets,
	InitialRetryDelay:   DefaultInitialRetryDelay,
	MaxRetryDelay:       DefaultMaxRetryDelay,
	InterBatchDelay:     DefaultInterBatchDelay,
	MinSplitSize:        DefaultMinSplitSize,
}

// Backoff returns the wait before attempt n (n >= 1): initial * 2^(n-1),
// capped at max.
func Backoff(n int, initial, max time.Duration) time.Duration {
	if n < 1 {
		n = 1
	}

	delay := initial
	for i := 1; i < n; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// Delay returns the backoff for attempt n under these limits.
func (l Limits) Delay(n int) time.Duration {
	return Backoff(n, l.InitialRetryDelay, l.MaxRetryDelay)
}
