package probe

import (
	"math"
	"time"

	"github.com/c360/sigflow/block"
	"github.com/c360/sigflow/blocks/numeric"
	"github.com/c360/sigflow/property"
)

// TagSink consumes "in" and records samples and tags. With
// n_samples_expected set it stops after that many samples and leaves the
// rest of the stream unconsumed.
type TagSink[T numeric.Number] struct {
	block.Base
	recorder[T]
	in *block.PortIn[T]

	settings  SinkSettings
	startedAt time.Time
	lastAt    time.Time
}

// NewTagSink creates a sink from its properties
func NewTagSink[T numeric.Number](name string, props property.Map, deps block.Dependencies) (*TagSink[T], error) {
	typeName := SinkType[T]()
	settings, err := decodeSink(typeName, props)
	if err != nil {
		return nil, err
	}

	s := &TagSink[T]{settings: settings}
	s.Init(name, typeName, deps)
	s.in = block.NewInput[T](&s.Base, "in")

	if settings.Mode == ModeScalar {
		err = s.SetStrategy(block.Scalar(s.consumeOne))
	} else {
		err = s.SetStrategy(block.Bulk(s.consumeChunk))
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Settings returns the decoded settings
func (s *TagSink[T]) Settings() SinkSettings { return s.settings }

// OnStart resets the sample rate clock
func (s *TagSink[T]) OnStart() error {
	s.mu.Lock()
	s.startedAt = time.Now()
	s.lastAt = s.startedAt
	s.mu.Unlock()
	return nil
}

// OnStop reports the totals of a verbose sink
func (s *TagSink[T]) OnStop(final block.State) {
	if !s.settings.VerboseConsole {
		return
	}
	s.Logger().Debug("sink finished",
		"state", final.String(),
		"samples", s.Produced(),
		"tags", len(s.Tags()),
		"effective_sample_rate", s.EffectiveSampleRate())
}

// EffectiveSampleRate returns samples per second between start and the last
// consumed sample, NaN while no time has elapsed.
func (s *TagSink[T]) EffectiveSampleRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := s.lastAt.Sub(s.startedAt)
	if elapsed <= 0 {
		return math.NaN()
	}
	return float64(s.produced) / elapsed.Seconds()
}

func (s *TagSink[T]) consumeOne(i int) error {
	s.observe(s.in.Span()[i : i+1])
	if s.reached() {
		s.RequestStop()
	}
	return nil
}

func (s *TagSink[T]) consumeChunk() (block.Status, error) {
	span := s.in.Span()
	if want := s.settings.SamplesExpected; want > 0 {
		remaining := want - s.Produced()
		if uint64(len(span)) > remaining {
			span = span[:remaining]
			s.in.Consume(len(span))
		}
	}
	s.observe(span)
	if s.reached() {
		return block.Done, nil
	}
	return block.OK, nil
}

func (s *TagSink[T]) observe(samples []T) {
	s.record(&s.Base, samples, s.settings.LogSamples, s.settings.LogTags, s.settings.VerboseConsole)
	s.mu.Lock()
	s.lastAt = time.Now()
	s.mu.Unlock()
}

func (s *TagSink[T]) reached() bool {
	return s.settings.SamplesExpected > 0 && s.Produced() >= s.settings.SamplesExpected
}
