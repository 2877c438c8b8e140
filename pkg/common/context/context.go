package context

import (
	"context"
	"time"
)

// IsCanceled returns true if the context has been canceled
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// IsTimedOut returns true if the context was canceled due to a timeout
func IsTimedOut(ctx context.Context) bool {
	return ctx.Err() == context.DeadlineExceeded
}

// Sleep waits for d or until ctx is done, whichever comes first. It returns
// ctx.Err() when the context ended the wait.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
