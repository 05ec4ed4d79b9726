package conn

import (
	"math"
	"math/rand"
	"time"
)

// retrier computes reconnect delays: exponential growth from baseDelay,
// capped at maxDelay, with up to half a baseDelay of random jitter.
type retrier struct {
	baseDelay time.Duration
	maxDelay  time.Duration
	attempt   int
}

func newRetrier(base, max time.Duration) *retrier {
	return &retrier{baseDelay: base, maxDelay: max}
}

// next increments the attempt counter and returns the delay before the
// next connection attempt.
func (r *retrier) next() time.Duration {
	jitter := time.Duration(rand.Float64() * float64(r.baseDelay) * 0.5)
	delay := time.Duration(math.Min(
		float64(r.baseDelay)*math.Pow(2, float64(r.attempt)),
		float64(r.maxDelay),
	))
	r.attempt++
	return delay + jitter
}

// reset clears the attempt counter after a successful connection.
func (r *retrier) reset() {
	r.attempt = 0
}
