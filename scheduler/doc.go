// Package scheduler runs a graph of blocks to completion.
//
// A run moves through initialized, running and then completed or failed.
// Each round invokes every block that is not yet terminal, producers before
// consumers, with at most one invocation per block in flight. Blocks that
// finish are dropped from later rounds while their buffered output keeps
// draining to downstream consumers.
//
//	sched, err := scheduler.New(g, scheduler.WithWorkers(4))
//	if err != nil {
//		return err
//	}
//	if err := sched.Run(ctx); err != nil {
//		return err
//	}
//
// The first block error fails the run; no block is invoked after that and the
// remaining blocks are halted. A round in which no block makes progress is
// retried once and then reported as errors.ErrDeadlock.
//
// Stop and context cancellation are cooperative. Every block is asked to stop,
// observes the request on its next invocation, and the run completes normally.
// Samples left on edges whose consumer finished first are discarded and
// counted in RunStats.
package scheduler
