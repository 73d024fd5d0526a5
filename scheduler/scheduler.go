package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/c360/sigflow/block"
	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/graph"
	"github.com/c360/sigflow/health"
	"github.com/c360/sigflow/metric"
	"github.com/c360/sigflow/pkg/retry"
	"github.com/c360/sigflow/pkg/worker"
)

// State is the run-level state of a scheduler
type State int32

const (
	StateInitialized State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// idleRoundLimit is the number of consecutive rounds without progress after
// which a run is declared deadlocked.
const idleRoundLimit = 2

const poolStopTimeout = 5 * time.Second

// RunStats summarizes one run
type RunStats struct {
	RunID           string        `json:"run_id"`
	State           string        `json:"state"`
	Rounds          int64         `json:"rounds"`
	Invocations     int64         `json:"invocations"`
	Duration        time.Duration `json:"duration"`
	LeftoverSamples int           `json:"leftover_samples"`
	LeftoverTags    int           `json:"leftover_tags"`
}

// Scheduler drives a graph's blocks until every block is terminal or one fails.
// A Scheduler runs its graph once.
type Scheduler struct {
	graph    *graph.Graph
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	metrics  *schedulerMetrics
	monitor  *health.Monitor
	workers  int
	chunk    int

	state   atomic.Int32
	stopReq atomic.Bool

	mu    sync.RWMutex
	err   error
	stats RunStats
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLogger sets the scheduler logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithMetrics exports run and invocation metrics to registry
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Scheduler) {
		s.registry = registry
	}
}

// WithHealthMonitor publishes block and run health to monitor
func WithHealthMonitor(monitor *health.Monitor) Option {
	return func(s *Scheduler) {
		s.monitor = monitor
	}
}

// WithWorkers invokes blocks on a pool of n workers. n <= 1 runs every
// invocation on the calling goroutine.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		s.workers = n
	}
}

// WithChunkSize bounds the samples a block may process per invocation
func WithChunkSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.chunk = n
		}
	}
}

// New creates a scheduler for g
func New(g *graph.Graph, opts ...Option) (*Scheduler, error) {
	if g == nil {
		return nil, errors.WrapInvalid(errors.ErrConfigInvalid, "Scheduler", "New", "nil graph")
	}

	s := &Scheduler{
		graph:   g,
		logger:  slog.Default(),
		workers: 1,
		chunk:   block.DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "scheduler")

	metrics, err := newSchedulerMetrics(s.registry)
	if err != nil {
		s.logger.Error("Failed to initialize scheduler metrics", "error", err)
		metrics = nil // Continue without metrics
	}
	s.metrics = metrics

	return s, nil
}

// State returns the run-level state
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Err returns the error that failed the run, if any
func (s *Scheduler) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Stats returns a snapshot of the run statistics
func (s *Scheduler) Stats() RunStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.stats
	st.State = s.State().String()
	return st
}

// Stop asks every block to stop. Blocks observe the request on their next
// invocation and the run completes once they have drained.
func (s *Scheduler) Stop() {
	s.stopReq.Store(true)
}

// Run validates the graph, starts every block and invokes them round by
// round until all are terminal. It returns nil when the run completes and the
// first block error otherwise. Cancelling ctx behaves like Stop.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateInitialized), int32(StateRunning)) {
		return errors.WrapInvalid(
			fmt.Errorf("%w: scheduler is %s", errors.ErrAlreadyStarted, s.State()),
			"Scheduler", "Run", "state check")
	}

	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)
	s.mu.Lock()
	s.stats.RunID = runID
	s.mu.Unlock()

	start := time.Now()
	err := s.run(ctx, logger)
	duration := time.Since(start)

	final := StateCompleted
	if err != nil {
		final = StateFailed
	}
	s.mu.Lock()
	s.err = err
	s.stats.Duration = duration
	leftover := s.stats.LeftoverSamples
	s.mu.Unlock()
	s.state.Store(int32(final))

	s.metrics.recordRun(final, duration.Seconds(), leftover)
	s.publishHealth(final, err)

	if err != nil {
		logger.Error("run failed", "duration", duration, "error", err)
		return err
	}
	logger.Info("run completed", "duration", duration, "rounds", s.Stats().Rounds)
	return nil
}

func (s *Scheduler) run(ctx context.Context, logger *slog.Logger) error {
	if err := s.graph.Validate(); err != nil {
		return errors.Wrap(err, "Scheduler", "Run", "graph validation")
	}
	s.graph.Freeze()

	blocks := topoOrder(s.graph)
	logger.Info("run started", "blocks", len(blocks), "edges", len(s.graph.Edges()), "workers", s.workers)

	for _, b := range blocks {
		if err := block.Start(b); err != nil {
			s.recordError(b.Name(), err)
			s.halt(blocks)
			return errors.Wrap(err, "Scheduler", "Run", "start block "+b.Name())
		}
		s.recordBlockState(b)
	}

	exec, err := s.newExecutor(ctx)
	if err != nil {
		s.halt(blocks)
		return err
	}
	defer exec.close(logger)

	err = s.loop(ctx, exec, blocks, logger)
	if err != nil {
		s.halt(blocks)
	}
	s.drain(logger)
	for _, b := range blocks {
		s.recordBlockState(b)
	}
	return err
}

func (s *Scheduler) loop(ctx context.Context, exec executor, blocks []block.Block, logger *slog.Logger) error {
	stopping := false
	idle := 0
	results := make([]outcome, len(blocks))

	for {
		if !stopping && (s.stopReq.Load() || ctx.Err() != nil) {
			stopping = true
			logger.Info("stop requested, draining blocks")
			for _, b := range blocks {
				b.RequestStop()
			}
		}

		active := runnable(blocks)
		s.metrics.recordRound(len(active))
		if len(active) == 0 {
			return nil
		}

		clear(results)
		exec.invokeAll(active, s.chunk, results)

		s.mu.Lock()
		s.stats.Rounds++
		s.stats.Invocations += int64(len(active))
		s.mu.Unlock()

		progressed := false
		for i, b := range active {
			r := results[i]
			s.metrics.recordInvocation(b, r.res, r.err)
			if r.err != nil {
				s.recordError(b.Name(), r.err)
				return errors.Wrap(r.err, "Scheduler", "Run", "invoke block "+b.Name())
			}
			if r.res.Transitioned {
				s.recordBlockState(b)
				logger.Debug("block finished", "block", b.Name(), "state", b.State())
			}
			progressed = progressed || r.res.Progressed()
		}

		if progressed {
			idle = 0
			continue
		}
		idle++
		if idle >= idleRoundLimit {
			names := make([]string, len(active))
			for i, b := range active {
				names[i] = b.Name()
			}
			err := fmt.Errorf("%w: blocks %s", errors.ErrDeadlock, strings.Join(names, ", "))
			s.recordError("scheduler", err)
			return errors.WrapFatal(err, "Scheduler", "Run", "progress check")
		}
	}
}

// halt stops every block still running without invoking it
func (s *Scheduler) halt(blocks []block.Block) {
	for _, b := range blocks {
		block.Halt(b)
	}
}

// drain discards data left on edges whose consumer stopped first
func (s *Scheduler) drain(logger *slog.Logger) {
	var samples, tags int
	for _, e := range s.graph.Edges() {
		sum := e.Edge.Stats().Summary()
		logger.Debug("edge finished", "edge", e.Edge.Name(),
			"samples", sum.Writes, "high_water", sum.MaxSize, "rejected_writes", sum.Overflows)

		n, t := e.Edge.DrainLeftover()
		if n > 0 || t > 0 {
			logger.Debug("discarded leftover data", "edge", e.Edge.Name(), "samples", n, "tags", t)
		}
		samples += n
		tags += t
	}
	s.mu.Lock()
	s.stats.LeftoverSamples = samples
	s.stats.LeftoverTags = tags
	s.mu.Unlock()
}

func (s *Scheduler) recordBlockState(b block.Block) {
	if s.registry != nil {
		s.registry.CoreMetrics().RecordBlockState(b.Name(), int(b.State()))
	}
}

func (s *Scheduler) recordError(component string, err error) {
	if s.registry != nil {
		s.registry.CoreMetrics().RecordError(component, errors.Classify(err).String())
	}
}

func (s *Scheduler) publishHealth(final State, runErr error) {
	if s.monitor == nil {
		return
	}

	for _, b := range s.graph.Blocks() {
		st := b.Stats()
		status := health.FromBlock(b.Name(), health.BlockReport{
			State:       st.State.String(),
			Err:         st.Err,
			Started:     st.StartedAt,
			Samples:     st.SamplesIn + st.SamplesOut,
			Invocations: st.Invocations,
		})
		s.monitor.Update(b.Name(), status)
		if s.registry != nil {
			s.registry.CoreMetrics().RecordHealthStatus(b.Name(), status.IsHealthy())
		}
	}

	var status health.Status
	if runErr != nil {
		status = health.NewUnhealthy("scheduler", runErr.Error())
	} else {
		status = health.NewHealthy("scheduler", "run "+final.String())
	}
	s.monitor.Update("scheduler", status)
	if s.registry != nil {
		s.registry.CoreMetrics().RecordHealthStatus("scheduler", status.IsHealthy())
	}
}

func runnable(blocks []block.Block) []block.Block {
	out := make([]block.Block, 0, len(blocks))
	for _, b := range blocks {
		if !b.State().Terminal() {
			out = append(out, b)
		}
	}
	return out
}

// topoOrder sorts blocks so producers come before consumers. Blocks on a
// cycle keep their insertion order after every acyclic block.
func topoOrder(g *graph.Graph) []block.Block {
	blocks := g.Blocks()
	index := make(map[string]int, len(blocks))
	for i, b := range blocks {
		index[b.Name()] = i
	}

	indegree := make([]int, len(blocks))
	next := make([][]int, len(blocks))
	for _, e := range g.Edges() {
		from, to := index[e.From.Block], index[e.To.Block]
		next[from] = append(next[from], to)
		indegree[to]++
	}

	var queue []int
	for i, d := range indegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]block.Block, 0, len(blocks))
	placed := make([]bool, len(blocks))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, blocks[i])
		placed[i] = true
		for _, j := range next[i] {
			indegree[j]--
			if indegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}
	for i, b := range blocks {
		if !placed[i] {
			order = append(order, b)
		}
	}
	return order
}

// outcome is the result of one invocation within a round
type outcome struct {
	res block.Result
	err error
}

// executor invokes a round of blocks and fills results in block order
type executor interface {
	invokeAll(blocks []block.Block, chunk int, results []outcome)
	close(logger *slog.Logger)
}

func (s *Scheduler) newExecutor(ctx context.Context) (executor, error) {
	if s.workers <= 1 {
		return inlineExecutor{}, nil
	}
	return newPoolExecutor(ctx, s.workers, s.registry)
}

type inlineExecutor struct{}

func (inlineExecutor) invokeAll(blocks []block.Block, chunk int, results []outcome) {
	for i, b := range blocks {
		res, err := block.Invoke(b, chunk)
		results[i] = outcome{res: res, err: err}
		if err != nil {
			return
		}
	}
}

func (inlineExecutor) close(*slog.Logger) {}

// invocation is the unit of work handed to the pool
type invocation struct {
	blk   block.Block
	chunk int
	out   *outcome
	done  *sync.WaitGroup
}

type poolExecutor struct {
	pool     *worker.Pool[invocation]
	registry *metric.MetricsRegistry
	ctx      context.Context
	cancel   context.CancelFunc
}

const poolMetricsName = "scheduler"

func newPoolExecutor(ctx context.Context, workers int, registry *metric.MetricsRegistry) (*poolExecutor, error) {
	var opts []worker.Option[invocation]
	if registry != nil {
		opts = append(opts, worker.WithMetricsRegistry[invocation](registry, poolMetricsName))
	}

	pool, err := worker.NewPool[invocation](workers, workers*4, runInvocation, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "Scheduler", "Run", "create worker pool")
	}

	// Workers outlive ctx so a cancelled run can still drain its blocks.
	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := pool.Start(poolCtx); err != nil {
		cancel()
		return nil, errors.Wrap(err, "Scheduler", "Run", "start worker pool")
	}
	return &poolExecutor{pool: pool, registry: registry, ctx: poolCtx, cancel: cancel}, nil
}

func runInvocation(_ context.Context, inv invocation) error {
	defer inv.done.Done()
	res, err := block.Invoke(inv.blk, inv.chunk)
	*inv.out = outcome{res: res, err: err}
	return err
}

func (p *poolExecutor) invokeAll(blocks []block.Block, chunk int, results []outcome) {
	var wg sync.WaitGroup
	wg.Add(len(blocks))
	for i, b := range blocks {
		inv := invocation{blk: b, chunk: chunk, out: &results[i], done: &wg}
		err := retry.Do(p.ctx, retry.Submission(), func() error {
			return p.pool.Submit(inv)
		})
		if err != nil {
			// pool saturated or stopped; run it here
			_ = runInvocation(p.ctx, inv)
		}
	}
	wg.Wait()
}

func (p *poolExecutor) close(logger *slog.Logger) {
	if err := p.pool.Stop(poolStopTimeout); err != nil {
		logger.Warn("worker pool did not stop cleanly", "error", err)
	}
	p.cancel()
	if p.registry != nil {
		p.registry.UnregisterOwner("worker." + poolMetricsName)
	}
}
