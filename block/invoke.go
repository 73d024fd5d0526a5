package block

import (
	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/tag"
)

// DefaultChunkSize bounds the samples handled by one invocation when the
// caller passes no limit.
const DefaultChunkSize = 1024

// Result reports what one invocation did. Sample counts are summed across ports.
type Result struct {
	Status       Status
	Consumed     int
	Produced     int
	TagsIn       int
	TagsOut      int
	Transitioned bool
}

// Progressed reports whether the invocation changed any stream or lifecycle state
func (r Result) Progressed() bool {
	return r.Consumed > 0 || r.Produced > 0 || r.TagsIn > 0 || r.Transitioned
}

// window is the per-invocation plan: how many samples every port handles and
// which input tags can become due inside that span.
type window struct {
	n     int
	pos   int64
	final bool

	inPos   []int64
	pending [][]tag.Tag
	next    []int

	through   int
	delivered bool
	tagsIn    int
}

// Invoke runs one processing step of a running block on at most maxSamples
// samples per port. Calls on the same block are serialized.
//
// Before the step the block is stopped if a stop was requested, if any input
// is exhausted, or if no consumer is left on any output. The step's output is
// committed together with its tags; the consumed input is then released.
func Invoke(blk Block, maxSamples int) (res Result, err error) {
	b := blk.base()
	b.invokeMu.Lock()
	defer b.invokeMu.Unlock()

	switch st := b.State(); {
	case st == StateInitialized:
		return res, errors.WrapInvalid(errors.ErrNotStarted, "Block", "Invoke", b.name)
	case st.Terminal():
		return Result{Status: Done}, nil
	}

	if maxSamples <= 0 {
		maxSamples = DefaultChunkSize
	}
	b.invocations.Add(1)

	if b.stopReq.Load() {
		b.finish(StateStopped)
		return Result{Status: Done, Transitioned: true}, nil
	}

	w, stop := b.plan(maxSamples)
	if stop {
		b.finish(StateStopped)
		return Result{Status: Done, Transitioned: true}, nil
	}
	if w.n == 0 {
		return Result{Status: OK}, nil
	}

	defer func() {
		if r := recover(); r != nil {
			failure := &FailureError{Block: b.name, Err: &PanicError{Value: r}}
			b.fail(failure)
			res, err = Result{Status: Done, Transitioned: true}, failure
		}
	}()

	return b.run(w)
}

// plan sizes the window. stop is true when the block can never make progress again.
func (b *Base) plan(maxSamples int) (*window, bool) {
	var width int
	if v, ok := b.strategy.(vectorStrategy); ok {
		width = v.width
		maxSamples = max(maxSamples, width)
	}

	n := maxSamples
	avail := make([]int, len(b.inputs))
	closed := make([]bool, len(b.inputs))
	// short is set when some edge can never hold a full vector group
	short := false
	for i, in := range b.inputs {
		a, limit, done, connected := in.status()
		if !connected || (done && a == 0) {
			return nil, true
		}
		avail[i], closed[i] = a, done
		n = min(n, a)
		short = short || limit < width
	}

	dead := len(b.outputs) > 0
	for _, out := range b.outputs {
		free, limit, connected, outDead := out.space()
		if !outDead {
			dead = false
		}
		if connected && !outDead {
			n = min(n, free)
			short = short || limit < width
		}
	}
	if dead {
		return nil, true
	}

	// a finished input that bounds the window never grows, so the window is
	// the tail of the stream
	w := &window{n: n}
	for i, a := range avail {
		if closed[i] && a == n {
			w.final = true
		}
	}
	switch {
	case len(b.inputs) > 0:
		w.pos = b.inputs[0].position()
	case len(b.outputs) > 0:
		w.pos = b.outputs[0].position()
	}

	// vectorized groups sit on absolute multiples of the width. A final
	// window ends with a partial group, and edges smaller than the width
	// split every group across invocations.
	if width > 1 && !w.final && !short {
		end := w.pos + int64(w.n)
		end -= end % int64(width)
		w.n = max(0, int(end-w.pos))
	}
	if w.n == 0 {
		return w, false
	}

	w.inPos = make([]int64, len(b.inputs))
	w.pending = make([][]tag.Tag, len(b.inputs))
	w.next = make([]int, len(b.inputs))
	for i, in := range b.inputs {
		w.inPos[i] = in.position()
		w.pending[i] = in.pendingTags(w.inPos[i] + int64(w.n))
	}

	// a bulk step sees only the tags due at its first sample, so the window
	// ends just before the next tag
	if _, ok := b.strategy.(bulkStrategy); ok {
		for i, tags := range w.pending {
			for _, t := range tags {
				if t.Index > w.inPos[i] {
					w.n = min(w.n, int(t.Index-w.inPos[i]))
					break
				}
			}
		}
	}
	return w, false
}

// deliver merges the input tags due through window offset through and makes
// them visible to the step. Outputs publish relative to offset cursor.
func (b *Base) deliver(w *window, cursor, through int) {
	var due []tag.Tag
	for i, tags := range w.pending {
		limit := w.inPos[i] + int64(through)
		for w.next[i] < len(tags) && tags[w.next[i]].Index <= limit {
			due = append(due, tags[w.next[i]])
			w.next[i]++
		}
	}
	w.through = through
	w.delivered = true
	w.tagsIn += len(due)

	merged, ok := tag.Merge(due...)
	b.setMerged(merged, ok)
	for _, out := range b.outputs {
		out.setCursor(cursor)
		if ok && !b.noForward {
			out.forward(merged)
		}
	}
}

func (b *Base) run(w *window) (Result, error) {
	for _, in := range b.inputs {
		in.prepare(w.n)
	}
	for _, out := range b.outputs {
		out.prepare(w.n)
	}

	var (
		status    = OK
		processed int
		stepErr   error
	)
	switch s := b.strategy.(type) {
	case scalarStrategy:
		for i := 0; i < w.n; i++ {
			b.deliver(w, i, i)
			if stepErr = s.fn(i); stepErr != nil {
				break
			}
			processed = i + 1
			if b.stopReq.Load() {
				break
			}
		}

	case vectorStrategy:
		width := int64(s.width)
		for start := 0; start < w.n; {
			size := int(width - (w.pos+int64(start))%width)
			size = min(size, w.n-start)
			b.deliver(w, start, start+size-1)
			if stepErr = s.fn(start, size); stepErr != nil {
				break
			}
			start += size
			processed = start
			if b.stopReq.Load() {
				break
			}
		}

	case bulkStrategy:
		b.deliver(w, 0, 0)
		status, stepErr = s.fn()
	}
	b.clearMerged()

	if stepErr != nil {
		failure := &FailureError{Block: b.name, Err: stepErr}
		b.fail(failure)
		return Result{Status: Done, Transitioned: true}, failure
	}

	_, bulk := b.strategy.(bulkStrategy)
	res := Result{Status: status, TagsIn: w.tagsIn}

	for _, out := range b.outputs {
		n := processed
		if bulk {
			n = out.requested(w.n)
		}
		tags, err := out.commit(n)
		res.Produced += n
		res.TagsOut += tags
		if err != nil {
			failure := &FailureError{Block: b.name, Err: err}
			b.fail(failure)
			res.Status, res.Transitioned = Done, true
			return res, failure
		}
	}

	for i, in := range b.inputs {
		n := processed
		if bulk {
			n = in.requested(w.n)
		}
		in.commit(n, w.inPos[i]+int64(w.through), w.delivered)
		res.Consumed += n
	}

	b.samplesIn.Add(int64(res.Consumed))
	b.samplesOut.Add(int64(res.Produced))
	b.tagsIn.Add(int64(res.TagsIn))
	b.tagsOut.Add(int64(res.TagsOut))

	if status == Done {
		b.finish(StateStopped)
		res.Transitioned = true
	}
	return res, nil
}
