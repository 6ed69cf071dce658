package engine

import (
	"time"

	"golang.org/x/time/rate"
)

// newRejectLimiter returns a token-bucket limiter matching the (5, 1)
// VLOG_RATE_LIMIT_INIT used for reconciliation warnings (here, the
// unknown-meter warning in addMeters): burst of 5, refilling at 1
// token/second.
func newRejectLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(1), 5)
}

// newAsyncRejectLimiter returns a token-bucket limiter matching the
// (30, 300) VLOG_RATE_LIMIT_INIT used for async switch rejections of
// individual flow/group/meter mods during S_UPDATE_FLOWS (spec §7): a
// much slower drip than the reconciliation-warning limiter, since a
// switch rejecting every mod in a table-full condition would otherwise
// flood the log for as long as the condition persists.
func newAsyncRejectLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(1.0/300), 30)
}

// allow reports whether the rate-limited diagnostic for the current
// instant should be emitted, consuming a token if so.
func allow(l *rate.Limiter) bool {
	return l.AllowN(time.Now(), 1)
}
