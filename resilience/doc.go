// Package resilience retries operations that fail for transient reasons.
//
// Retry backs off exponentially with optional jitter and stops early when the
// context ends or the error is not worth retrying. An AppError is retried only
// when it is marked Retryable:
//
//	db, err := resilience.Retry(ctx, resilience.RetryConfig{MaxAttempts: 5}, func() (*gorm.DB, error) {
//	    return connect(ctx)
//	})
package resilience
