// limiter/limiter.go
package limiter

import (
	"context"

	"golang.org/x/time/rate"
)

// New returns a limiter allowing perSecond storefront requests with the given
// burst. A non-positive rate returns nil, which never throttles.
func New(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Wait blocks until l allows the request
func Wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}
