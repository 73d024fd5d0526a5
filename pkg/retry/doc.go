// Package retry provides exponential backoff for operations that fail with
// transient errors.
//
// By default only errors classified as transient by the sigflow errors
// package are retried; any other error, or one wrapped with NonRetryable,
// ends the loop immediately. Config.ShouldRetry overrides the predicate.
//
// The scheduler uses Submission() when handing block invocations to a worker
// pool whose queue is momentarily full:
//
//	err := retry.Do(ctx, retry.Submission(), func() error {
//		return pool.Submit(job)
//	})
package retry
