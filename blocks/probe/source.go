package probe

import (
	"sync"

	"github.com/c360/sigflow/block"
	"github.com/c360/sigflow/blocks/numeric"
	"github.com/c360/sigflow/property"
	"github.com/c360/sigflow/tag"
)

// TagSource emits n_samples_max samples on "out" and publishes the
// configured tags at their sample indices. Tags beyond the last sample are
// never published.
type TagSource[T numeric.Number] struct {
	block.Base
	out *block.PortOut[T]

	settings SourceSettings[T]
	nextTag  int

	mu        sync.Mutex
	produced  uint64
	published []tag.Tag
}

// NewTagSource creates a source from its properties
func NewTagSource[T numeric.Number](name string, props property.Map, deps block.Dependencies) (*TagSource[T], error) {
	typeName := SourceType[T]()
	settings, err := decodeSource[T](typeName, props)
	if err != nil {
		return nil, err
	}

	s := &TagSource[T]{settings: settings}
	s.Init(name, typeName, deps)
	s.out = block.NewOutput[T](&s.Base, "out")

	if settings.Mode == ModeScalar {
		err = s.SetStrategy(block.Scalar(s.emitOne))
	} else {
		err = s.SetStrategy(block.Bulk(s.emitChunk))
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Settings returns the decoded settings
func (s *TagSource[T]) Settings() SourceSettings[T] { return s.settings }

// Produced returns the number of samples emitted so far
func (s *TagSource[T]) Produced() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.produced
}

// Published returns the tags emitted so far
func (s *TagSource[T]) Published() []tag.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tag.Tag(nil), s.published...)
}

// OnStart stops an empty source before its first step
func (s *TagSource[T]) OnStart() error {
	if s.settings.SamplesMax == 0 {
		s.RequestStop()
	}
	return nil
}

func (s *TagSource[T]) emitOne(i int) error {
	tagged, err := s.publishDue()
	if err != nil {
		return err
	}
	s.out.Set(i, s.value(0, tagged))

	s.mu.Lock()
	s.produced++
	done := s.produced >= s.settings.SamplesMax
	s.mu.Unlock()
	if done {
		s.RequestStop()
	}
	return nil
}

// emitChunk publishes up to the next scheduled tag so that every tag lands
// on the first sample of a chunk.
func (s *TagSource[T]) emitChunk() (block.Status, error) {
	produced := s.Produced()
	if produced >= s.settings.SamplesMax {
		s.out.Publish(0)
		return block.Done, nil
	}

	tagged, err := s.publishDue()
	if err != nil {
		return block.Done, err
	}

	span := s.out.Span()
	n := min(uint64(len(span)), s.settings.SamplesMax-produced)
	if s.nextTag < len(s.settings.Tags) {
		nextTagIn := max(1, s.settings.Tags[s.nextTag].Index-int64(produced))
		n = min(n, uint64(nextTagIn))
	}
	for k := uint64(0); k < n; k++ {
		span[k] = s.value(k, tagged && k == 0)
	}
	s.out.Publish(int(n))

	s.mu.Lock()
	s.produced += n
	done := s.produced >= s.settings.SamplesMax
	s.mu.Unlock()
	if done {
		return block.Done, nil
	}
	return block.OK, nil
}

// publishDue attaches every tag scheduled at or before the next sample to it
func (s *TagSource[T]) publishDue() (bool, error) {
	produced := s.Produced()
	tagged := false
	for s.nextTag < len(s.settings.Tags) && s.settings.Tags[s.nextTag].Index <= int64(produced) {
		t := s.settings.Tags[s.nextTag]
		if err := s.out.PublishTag(t.Map, 0); err != nil {
			return false, err
		}
		s.nextTag++
		tagged = true

		emitted := tag.Tag{Index: int64(produced), Map: t.Map.Clone()}
		s.mu.Lock()
		s.published = append(s.published, emitted)
		s.mu.Unlock()
		if s.settings.VerboseConsole {
			s.Logger().Debug("tag published", "tag", FormatTag(emitted, s.Name()))
		}
	}
	return tagged, nil
}

// value returns the sample at offset k from the current production count
func (s *TagSource[T]) value(k uint64, tagged bool) T {
	pos := s.Produced() + k
	switch {
	case len(s.settings.Values) > 0:
		return s.settings.Values[pos%uint64(len(s.settings.Values))]
	case s.settings.MarkTag:
		if tagged {
			return 1
		}
		return 0
	default:
		return T(pos)
	}
}
