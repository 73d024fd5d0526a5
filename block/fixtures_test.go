package block

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360/sigflow/property"
	"github.com/c360/sigflow/tag"
)

// source emits values once, publishing tags[i] with sample i.
type source struct {
	Base
	out    *PortOut[int]
	values []int
	tags   map[int]property.Map
	next   int
}

func newSource(t *testing.T, name string, values []int, tags map[int]property.Map) *source {
	t.Helper()
	s := &source{values: values, tags: tags}
	s.Init(name, "test.source", Dependencies{})
	s.out = NewOutput[int](&s.Base, "out")
	require.NoError(t, s.SetStrategy(Scalar(func(i int) error {
		if m, ok := s.tags[s.next]; ok {
			if err := s.out.PublishTag(m, 0); err != nil {
				return err
			}
		}
		s.out.Set(i, s.values[s.next])
		s.next++
		if s.next == len(s.values) {
			s.RequestStop()
		}
		return nil
	})))
	return s
}

// sink records every sample, every merged tag and the window sizes it saw.
type sink struct {
	Base
	in    *PortIn[int]
	got   []int
	tags  []tag.Tag
	spans []int
	quota int
}

func newSink(t *testing.T, name string) *sink {
	t.Helper()
	s := &sink{}
	s.Init(name, "test.sink", Dependencies{})
	s.in = NewInput[int](&s.Base, "in")
	require.NoError(t, s.SetStrategy(Bulk(func() (Status, error) {
		if s.InputTagsPresent() {
			s.tags = append(s.tags, s.MergedInputTag())
		}
		span := s.in.Span()
		if s.quota > 0 && len(s.got)+len(span) >= s.quota {
			span = span[:s.quota-len(s.got)]
			s.in.Consume(len(span))
			s.got = append(s.got, span...)
			s.spans = append(s.spans, len(span))
			return Done, nil
		}
		s.got = append(s.got, span...)
		s.spans = append(s.spans, len(span))
		return OK, nil
	})))
	return s
}

// gain multiplies by k per sample and records where tags were observed.
type gain struct {
	Base
	in     *PortIn[int]
	out    *PortOut[int]
	k      int
	seenAt []int64
	failAt int
}

func newGain(t *testing.T, name string, k int) *gain {
	t.Helper()
	g := &gain{k: k, failAt: -1}
	g.Init(name, "test.gain", Dependencies{})
	g.in = NewInput[int](&g.Base, "in")
	g.out = NewOutput[int](&g.Base, "out")
	require.NoError(t, g.SetStrategy(Scalar(func(i int) error {
		pos := g.in.Position() + int64(i)
		if int(pos) == g.failAt {
			return errGain
		}
		if g.InputTagsPresent() {
			g.seenAt = append(g.seenAt, pos)
		}
		g.out.Set(i, g.in.At(i)*g.k)
		return nil
	})))
	return g
}

var errGain = stderrors.New("gain overflow")

func mustLink(t *testing.T, src, dst Port) Edge {
	t.Helper()
	e, err := Link(src, dst, EdgeConfig{})
	require.NoError(t, err)
	return e
}

// drive starts the blocks and invokes them round-robin until all are terminal.
func drive(t *testing.T, chunk int, blocks ...Block) {
	t.Helper()
	for _, b := range blocks {
		require.NoError(t, Start(b))
	}
	for round := 0; round < 1000; round++ {
		done, progress := true, false
		for _, b := range blocks {
			if b.State().Terminal() {
				continue
			}
			done = false
			res, err := Invoke(b, chunk)
			require.NoError(t, err)
			if res.Progressed() {
				progress = true
			}
		}
		if done {
			return
		}
		require.True(t, progress, "no progress in round %d", round)
	}
	t.Fatal("blocks did not finish")
}

func ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
