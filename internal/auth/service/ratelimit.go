package service

import (
	"context"
	"errors"
	"time"

	"github.com/leafmarks/leafmarks/internal/auth/store"
	"github.com/leafmarks/leafmarks/pkg/slogx"
)

// Rate-limited actions. Keys into the shared auth_attempts table.
const (
	ActionLogin              = "login"
	ActionResendVerification = "resend_verification"
)

// RateLimiter implements a fixed-window counter over the shared store, so
// the limit holds across horizontally scaled instances. Fixed window was
// chosen over sliding: the store needs only one row per (identity, action)
// and a single upsert per failure, and the worst-case overshoot (2x burst
// straddling a boundary) is acceptable for brute-force protection.
type RateLimiter struct {
	Store       store.Store
	MaxAttempts int
	Window      time.Duration
}

// Check reports whether another attempt is allowed for (identity, action).
// It does not count the attempt; callers record failures with Fail and
// clear the window with Reset on success.
func (l *RateLimiter) Check(ctx context.Context, identity, action string, now time.Time) error {
	w, err := l.Store.Attempts().GetWindow(ctx, identity, action)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	windowEnd := w.WindowStart.Add(l.Window)
	if !now.Before(windowEnd) {
		return nil // window elapsed, counter is stale
	}
	if w.Count >= l.MaxAttempts {
		return &ThrottledError{RetryAfter: windowEnd.Sub(now)}
	}
	return nil
}

// Fail records a failed attempt. The increment is a single atomic upsert
// in the store; errors are logged and swallowed so accounting problems
// never mask the original authentication failure.
func (l *RateLimiter) Fail(ctx context.Context, identity, action string, now time.Time) {
	cutoff := now.Add(-l.Window)
	if _, err := l.Store.Attempts().Increment(ctx, identity, action, now, cutoff); err != nil {
		slogx.FromContext(ctx).Error("rate limit increment failed",
			"action", action, "err", err)
	}
}

// Reset clears the window after a successful authentication.
func (l *RateLimiter) Reset(ctx context.Context, identity, action string) {
	if err := l.Store.Attempts().Reset(ctx, identity, action); err != nil {
		slogx.FromContext(ctx).Error("rate limit reset failed",
			"action", action, "err", err)
	}
}
