// Package oauth schedules background refreshes of stored OAuth tokens. It
// performs jittered checks so several instances sharing one database do not
// refresh in lockstep; the provider-specific work (load, refresh when close
// to expiry, persist) is done by the CheckFunc.
package oauth

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// ErrNotLinked is returned by a CheckFunc when no token has been stored yet.
// The refresher logs it at debug level and keeps polling.
var ErrNotLinked = errors.New("provider not linked")

// CheckFunc refreshes the provider token if it is close to expiry.
type CheckFunc func(ctx context.Context) error

// StartRefresher launches a goroutine that calls check roughly every interval
// (±20% jitter) until ctx is cancelled. The returned channel is closed when
// the goroutine exits.
func StartRefresher(ctx context.Context, provider string, interval time.Duration, check CheckFunc) <-chan struct{} {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	logger := slog.Default().With(slog.String("component", "oauth_refresh"), slog.String("provider", provider))
	done := make(chan struct{})
	// Randomize initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	initialJitter := time.Duration(rand.Int63n(int64(interval/2) + 1))
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := check(ctx2)
			cancel()
			switch {
			case err == nil:
				logger.Debug("token checked")
			case errors.Is(err, ErrNotLinked):
				logger.Debug("no token stored yet")
			case ctx.Err() != nil:
				return
			default:
				logger.Warn("token refresh failed", slog.Any("err", err))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep(interval)):
			}
		}
	}()
	return done
}

// nextSleep returns interval with ±20% jitter, never below interval/2.
func nextSleep(interval time.Duration) time.Duration {
	jitterRange := int64(interval / 5)
	if jitterRange <= 0 {
		return interval
	}
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
	next := interval + jitter
	if next < interval/2 {
		next = interval / 2
	}
	return next
}
