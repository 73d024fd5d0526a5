package probe

import (
	"sync"

	"github.com/c360/sigflow/block"
	"github.com/c360/sigflow/blocks/numeric"
	"github.com/c360/sigflow/property"
	"github.com/c360/sigflow/tag"
)

// recorder is the sample and tag log shared by TagMonitor and TagSink.
// Tags are stored at the sample count where they were observed.
type recorder[T numeric.Number] struct {
	mu       sync.Mutex
	produced uint64
	samples  []T
	tags     []tag.Tag
}

func (r *recorder[T]) record(b *block.Base, samples []T, logSamples, logTags, verbose bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.InputTagsPresent() {
		t := tag.Tag{Index: int64(r.produced), Map: b.MergedInputTag().Map.Clone()}
		if logTags {
			r.tags = append(r.tags, t)
		}
		if verbose {
			b.Logger().Debug("tag received", "tag", FormatTag(t, b.Name()))
		}
	}
	if logSamples {
		r.samples = append(r.samples, samples...)
	}
	r.produced += uint64(len(samples))
}

// Samples returns a copy of the recorded samples
func (r *recorder[T]) Samples() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.samples...)
}

// Tags returns a copy of the recorded tags
func (r *recorder[T]) Tags() []tag.Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tag.Tag(nil), r.tags...)
}

// Produced returns the number of samples seen
func (r *recorder[T]) Produced() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.produced
}

// TagMonitor copies "in" to "out" unchanged and records what passes through.
// Input tags are forwarded by the block runtime.
type TagMonitor[T numeric.Number] struct {
	block.Base
	recorder[T]
	in  *block.PortIn[T]
	out *block.PortOut[T]

	settings MonitorSettings
}

// NewTagMonitor creates a monitor from its properties
func NewTagMonitor[T numeric.Number](name string, props property.Map, deps block.Dependencies) (*TagMonitor[T], error) {
	typeName := MonitorType[T]()
	settings, err := decodeMonitor(typeName, props)
	if err != nil {
		return nil, err
	}

	m := &TagMonitor[T]{settings: settings}
	m.Init(name, typeName, deps)
	m.in = block.NewInput[T](&m.Base, "in")
	m.out = block.NewOutput[T](&m.Base, "out")

	switch settings.Mode {
	case ModeScalar:
		err = m.SetStrategy(block.Scalar(func(i int) error {
			m.out.Set(i, m.in.At(i))
			m.observe(m.in.Span()[i : i+1])
			return nil
		}))
	case ModeVectorized:
		err = m.SetStrategy(block.Vectorized(settings.VectorWidth, func(start, n int) error {
			copy(m.out.Span()[start:start+n], m.in.Span()[start:start+n])
			m.observe(m.in.Span()[start : start+n])
			return nil
		}))
	default:
		err = m.SetStrategy(block.Bulk(func() (block.Status, error) {
			copy(m.out.Span(), m.in.Span())
			m.observe(m.in.Span())
			return block.OK, nil
		}))
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Settings returns the decoded settings
func (m *TagMonitor[T]) Settings() MonitorSettings { return m.settings }

func (m *TagMonitor[T]) observe(samples []T) {
	m.record(&m.Base, samples, m.settings.LogSamples, m.settings.LogTags, m.settings.VerboseConsole)
}
