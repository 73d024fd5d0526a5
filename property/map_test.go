package property

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	errs "github.com/c360/sigflow/errors"
)

func TestMap_SetKeepsInsertionOrder(t *testing.T) {
	var m Map
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("c", 3)
	m.Set("a", 20)

	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 20, v)
	assert.Equal(t, 3, m.Len())
}

func TestMap_ZeroValue(t *testing.T) {
	var m Map
	assert.True(t, m.IsEmpty())
	assert.False(t, m.Has("x"))
	_, ok := m.Get("x")
	assert.False(t, ok)
	assert.Equal(t, "{}", m.String())
	assert.True(t, m.Equal(Map{}))
}

func TestMap_Delete(t *testing.T) {
	m := New(Pair{"a", 1}, Pair{"b", 2}, Pair{"c", 3})
	m.Delete("b")
	m.Delete("missing")

	assert.Equal(t, []string{"a", "c"}, m.Keys())
	assert.False(t, m.Has("b"))
}

func TestMap_CloneIsIndependent(t *testing.T) {
	m := New(Pair{"a", 1})
	c := m.Clone()
	c.Set("b", 2)
	c.Set("a", 10)

	v, _ := m.Get("a")
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 2, c.Len())
}

func TestMap_MergeOtherWins(t *testing.T) {
	left := New(Pair{"key", "left"}, Pair{"only_left", 1})
	right := New(Pair{"key", "right"}, Pair{"only_right", 2})

	merged := left.Merge(right)

	assert.Equal(t, []string{"key", "only_left", "only_right"}, merged.Keys())
	v, _ := merged.Get("key")
	assert.Equal(t, "right", v)

	// inputs untouched
	v, _ = left.Get("key")
	assert.Equal(t, "left", v)
	assert.Equal(t, 2, left.Len())
}

func TestMap_EqualIgnoresOrder(t *testing.T) {
	a := New(Pair{"x", 1}, Pair{"y", []int{1, 2}})
	b := New(Pair{"y", []int{1, 2}}, Pair{"x", 1})
	c := New(Pair{"x", 1}, Pair{"y", []int{1, 3}})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(New(Pair{"x", 1})))
}

func TestMap_Range(t *testing.T) {
	m := New(Pair{"a", 1}, Pair{"b", 2}, Pair{"c", 3})

	var seen []string
	m.Range(func(k string, _ any) bool {
		seen = append(seen, k)
		return k != "b"
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestFromGoMap_SortsKeys(t *testing.T) {
	m := FromGoMap(map[string]any{"zeta": 1, "alpha": 2, "mid": 3})
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, m.Keys())
}

func TestMap_MarshalJSONKeepsOrder(t *testing.T) {
	m := New(Pair{"z", 1}, Pair{"a", "two"})
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":"two"}`, string(data))
}

func TestMap_UnmarshalYAML(t *testing.T) {
	doc := `
zulu: 1
alpha: 2.5
nested:
  second: x
  first: y
list: [1, 2]
`
	var m Map
	require.NoError(t, yaml.Unmarshal([]byte(doc), &m))

	assert.Equal(t, []string{"zulu", "alpha", "nested", "list"}, m.Keys())
	v, _ := m.Get("alpha")
	assert.Equal(t, 2.5, v)

	nestedRaw, ok := m.Get("nested")
	require.True(t, ok)
	nested, ok := nestedRaw.(Map)
	require.True(t, ok)
	assert.Equal(t, []string{"second", "first"}, nested.Keys())
}

func TestMap_MarshalYAMLKeepsOrder(t *testing.T) {
	m := New(Pair{"z", 1}, Pair{"a", New(Pair{"y", "x"}, Pair{"b", true})})
	data, err := yaml.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "z: 1\na:\n    y: x\n    b: true\n", string(data))

	var back Map
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.True(t, m.Equal(back))
}

func TestMap_UnmarshalYAMLRejectsScalar(t *testing.T) {
	var m Map
	err := yaml.Unmarshal([]byte(`just a string`), &m)
	assert.Error(t, err)
}

type sampleSettings struct {
	Value    float64       `property:"value"`
	Count    int           `property:"count"`
	Name     string        `property:"name"`
	Interval time.Duration `property:"interval"`
	Nested   struct {
		Enabled bool `property:"enabled"`
	} `property:"nested"`
}

func TestDecode(t *testing.T) {
	m := New(
		Pair{"value", 4.2},
		Pair{"count", 3},
		Pair{"name", "probe"},
		Pair{"interval", "250ms"},
		Pair{"nested", New(Pair{"enabled", true})},
		Pair{"unknown_key", "ignored"},
	)

	var s sampleSettings
	require.NoError(t, Decode(m, &s))

	assert.Equal(t, 4.2, s.Value)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, "probe", s.Name)
	assert.Equal(t, 250*time.Millisecond, s.Interval)
	assert.True(t, s.Nested.Enabled)
}

func TestDecode_KeepsDefaults(t *testing.T) {
	s := sampleSettings{Value: 1, Count: 7}
	require.NoError(t, Decode(New(Pair{"value", 2.0}), &s))

	assert.Equal(t, 2.0, s.Value)
	assert.Equal(t, 7, s.Count)
}

func TestDecode_TypeMismatch(t *testing.T) {
	var s sampleSettings
	err := Decode(New(Pair{"count", "three"}), &s)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConfigInvalid)
}

type numberSettings struct {
	Inputs int     `property:"n_inputs"`
	Small  int8    `property:"small"`
	Value  uint8   `property:"value"`
	Width  uint64  `property:"width"`
	Gain   float32 `property:"gain"`
	Levels []int16 `property:"levels"`
}

func TestDecode_Numbers(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		ok    bool
	}{
		{"integral float into int", "n_inputs", 3.0, true},
		{"fractional float into int", "n_inputs", 2.9, false},
		{"NaN into int", "n_inputs", math.NaN(), false},
		{"int8 at its bound", "small", -128, true},
		{"int8 overflow", "small", 128, false},
		{"uint8 at its bound", "value", 255, true},
		{"uint8 overflow", "value", 300, false},
		{"negative into uint8", "value", -1, false},
		{"negative float into uint64", "width", -2.0, false},
		{"uint64 from uint64", "width", uint64(math.MaxUint64), true},
		{"float64 into float32", "gain", 0.5, true},
		{"float32 overflow", "gain", 1e300, false},
		{"infinity into float32", "gain", math.Inf(1), true},
		{"int into float32", "gain", 7, true},
		{"slice element overflow", "levels", []any{1, 40000}, false},
		{"slice of integral floats", "levels", []any{1.0, -2.0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s numberSettings
			err := Decode(New(Pair{tt.key, tt.value}), &s)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrConfigInvalid)
		})
	}
}

func TestDecode_NumbersKeepTheirValue(t *testing.T) {
	var s numberSettings
	require.NoError(t, Decode(New(
		Pair{"n_inputs", 3.0},
		Pair{"value", 200},
		Pair{"levels", []any{1.0, -2.0}},
	), &s))

	assert.Equal(t, 3, s.Inputs)
	assert.Equal(t, uint8(200), s.Value)
	assert.Equal(t, []int16{1, -2}, s.Levels)
}
