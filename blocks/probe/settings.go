package probe

import (
	"fmt"
	"sort"

	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/property"
	"github.com/c360/sigflow/tag"
)

// Processing modes accepted by the "mode" property
const (
	ModeScalar     = "scalar"
	ModeVectorized = "vectorized"
	ModeBulk       = "bulk"
)

// Defaults applied before the property map is decoded
const (
	DefaultSamplesMax  = 1024
	DefaultSampleRate  = 1000
	DefaultSignalName  = "unknown signal"
	DefaultVectorWidth = 4
)

// SourceSettings configures a TagSource
type SourceSettings[T any] struct {
	Mode           string    `property:"mode"`
	SamplesMax     uint64    `property:"n_samples_max"`
	Values         []T       `property:"values"`
	SampleRate     float32   `property:"sample_rate"`
	SignalName     string    `property:"signal_name"`
	VerboseConsole bool      `property:"verbose_console"`
	MarkTag        bool      `property:"mark_tag"` // emit 1 on tagged samples and 0 elsewhere
	Tags           []tag.Tag `property:"-"`
}

// MonitorSettings configures a TagMonitor
type MonitorSettings struct {
	Mode           string `property:"mode"`
	VectorWidth    int    `property:"vector_width"`
	LogTags        bool   `property:"log_tags"`
	LogSamples     bool   `property:"log_samples"`
	VerboseConsole bool   `property:"verbose_console"`
}

// SinkSettings configures a TagSink
type SinkSettings struct {
	Mode            string `property:"mode"`
	SamplesExpected uint64 `property:"n_samples_expected"` // 0 consumes until the input ends
	LogTags         bool   `property:"log_tags"`
	LogSamples      bool   `property:"log_samples"`
	VerboseConsole  bool   `property:"verbose_console"`
}

func decodeSource[T any](typeName string, props property.Map) (SourceSettings[T], error) {
	s := SourceSettings[T]{
		Mode:       ModeBulk,
		SamplesMax: DefaultSamplesMax,
		SampleRate: DefaultSampleRate,
		SignalName: DefaultSignalName,
		MarkTag:    true,
	}
	if err := property.Decode(props, &s); err != nil {
		return s, errors.WrapInvalid(err, typeName, "Decode", "source settings")
	}
	if err := checkMode(typeName, s.Mode, ModeScalar, ModeBulk); err != nil {
		return s, err
	}
	tags, err := parseTags(props)
	if err != nil {
		return s, errors.WrapInvalid(err, typeName, "Decode", "tags")
	}
	s.Tags = tags
	return s, nil
}

func decodeMonitor(typeName string, props property.Map) (MonitorSettings, error) {
	s := MonitorSettings{
		Mode:        ModeBulk,
		VectorWidth: DefaultVectorWidth,
		LogTags:     true,
		LogSamples:  true,
	}
	if err := property.Decode(props, &s); err != nil {
		return s, errors.WrapInvalid(err, typeName, "Decode", "monitor settings")
	}
	if s.VectorWidth < 1 {
		return s, errors.WrapInvalid(
			fmt.Errorf("%w: vector_width %d", errors.ErrConfigInvalid, s.VectorWidth),
			typeName, "Decode", "vector width")
	}
	return s, checkMode(typeName, s.Mode, ModeScalar, ModeVectorized, ModeBulk)
}

func decodeSink(typeName string, props property.Map) (SinkSettings, error) {
	s := SinkSettings{
		Mode:       ModeBulk,
		LogTags:    true,
		LogSamples: true,
	}
	if err := property.Decode(props, &s); err != nil {
		return s, errors.WrapInvalid(err, typeName, "Decode", "sink settings")
	}
	return s, checkMode(typeName, s.Mode, ModeScalar, ModeBulk)
}

func checkMode(typeName, mode string, allowed ...string) error {
	for _, a := range allowed {
		if mode == a {
			return nil
		}
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: mode %q, want one of %v", errors.ErrConfigInvalid, mode, allowed),
		typeName, "Decode", "mode")
}

// parseTags reads the "tags" property. It accepts a []tag.Tag built in code
// or a list of {index, map} entries decoded from a flowgraph file.
func parseTags(props property.Map) ([]tag.Tag, error) {
	raw, ok := props.Get("tags")
	if !ok || raw == nil {
		return nil, nil
	}

	var tags []tag.Tag
	switch v := raw.(type) {
	case []tag.Tag:
		for i, t := range v {
			if t.Index < 0 {
				return nil, fmt.Errorf("%w: tags[%d]: index %d is negative", errors.ErrConfigInvalid, i, t.Index)
			}
			tags = append(tags, t.Clone())
		}
	case []any:
		for i, item := range v {
			t, err := parseTag(item)
			if err != nil {
				return nil, fmt.Errorf("%w: tags[%d]: %v", errors.ErrConfigInvalid, i, err)
			}
			tags = append(tags, t)
		}
	default:
		return nil, fmt.Errorf("%w: tags must be a list, got %T", errors.ErrConfigInvalid, raw)
	}

	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Index < tags[j].Index })
	return tags, nil
}

func parseTag(item any) (tag.Tag, error) {
	var rawIndex, rawMap any
	switch e := item.(type) {
	case tag.Tag:
		if e.Index < 0 {
			return tag.Tag{}, fmt.Errorf("index %d is negative", e.Index)
		}
		return e.Clone(), nil
	case property.Map:
		rawIndex, _ = e.Get("index")
		rawMap, _ = e.Get("map")
	case map[string]any:
		rawIndex, rawMap = e["index"], e["map"]
	default:
		return tag.Tag{}, fmt.Errorf("entry must be a mapping, got %T", item)
	}

	index, err := toIndex(rawIndex)
	if err != nil {
		return tag.Tag{}, err
	}

	switch m := rawMap.(type) {
	case nil:
		return tag.Tag{Index: index}, nil
	case property.Map:
		return tag.Tag{Index: index, Map: m.Clone()}, nil
	case map[string]any:
		return tag.Tag{Index: index, Map: property.FromGoMap(m)}, nil
	default:
		return tag.Tag{}, fmt.Errorf("map must be a mapping, got %T", rawMap)
	}
}

func toIndex(v any) (int64, error) {
	var index int64
	switch n := v.(type) {
	case int:
		index = int64(n)
	case int64:
		index = n
	case uint64:
		index = int64(n)
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("index %v is not an integer", n)
		}
		index = int64(n)
	case nil:
		return 0, fmt.Errorf("index is required")
	default:
		return 0, fmt.Errorf("index must be an integer, got %T", v)
	}
	if index < 0 {
		return 0, fmt.Errorf("index %d is negative", index)
	}
	return index, nil
}
