// Package worker provides a generic worker pool: a fixed set of goroutines
// consuming a bounded queue.
//
// Submit never blocks; a full queue returns ErrQueueFull and the caller
// decides whether to retry (the scheduler retries with pkg/retry). Stop closes
// the queue and waits for queued items to finish, bounded by a timeout.
//
//	pool, err := worker.NewPool(4, 64, func(ctx context.Context, job invocation) error {
//		return job.run(ctx)
//	}, worker.WithMetricsRegistry[invocation](registry, "scheduler"))
//	if err != nil {
//		return err
//	}
//	if err := pool.Start(ctx); err != nil {
//		return err
//	}
//	defer pool.Stop(5 * time.Second)
//
// Statistics (submitted, processed, failed, rejected, busy workers) are always
// collected and available from Stats. WithMetricsRegistry exports them as
// sigflow_worker_* collectors labelled with the pool name.
package worker
