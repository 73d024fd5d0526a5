package math_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sigflow/block"
	mathblocks "github.com/c360/sigflow/blocks/math"
	"github.com/c360/sigflow/blocks/numeric"
	"github.com/c360/sigflow/blocks/probe"
	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/graph"
	"github.com/c360/sigflow/property"
	"github.com/c360/sigflow/scheduler"
	"github.com/c360/sigflow/tag"
)

type vectorCase struct {
	op     mathblocks.Op
	inputs [][]float64
	want   []float64
}

var arithmeticCases = []vectorCase{
	{mathblocks.OpAdd, [][]float64{{1, 2, 8, 17}}, []float64{1, 2, 8, 17}},
	{mathblocks.OpAdd, [][]float64{{1, 2, 3, 4.2}, {5, 6, 7, 8.3}}, []float64{6, 8, 10, 12.5}},
	{mathblocks.OpAdd, [][]float64{{12, 35, 18, 17}, {31, 15, 27, 36}, {83, 46, 37, 41}}, []float64{126, 96, 82, 94}},
	{mathblocks.OpSubtract, [][]float64{{9, 7, 5, 3.5}, {3, 2, 0, 1.2}}, []float64{6, 5, 5, 2.3}},
	{mathblocks.OpSubtract, [][]float64{{15, 38, 88, 29}, {3, 12, 26, 18}, {0, 10, 50, 7}}, []float64{12, 16, 12, 4}},
	{mathblocks.OpMultiply, [][]float64{{1, 2, 3, 4.0}, {4, 5, 6, 7.1}}, []float64{4, 10, 18, 28.4}},
	{mathblocks.OpMultiply, [][]float64{{0, 1, 2, 3}, {4, 5, 6, 2}, {8, 9, 10, 11}}, []float64{0, 45, 120, 66}},
	{mathblocks.OpDivide, [][]float64{{9, 4, 5, 7.0}, {3, 4, 1, 2.0}}, []float64{3, 1, 5, 3.5}},
	{mathblocks.OpDivide, [][]float64{{0, 10, 40, 80}, {1, 2, 4, 20}, {1, 5, 5, 2}}, []float64{0, 1, 2, 2}},
	{mathblocks.OpMax, [][]float64{{9, 4, 5, 7.0}, {3, 4, 1, 2.0}}, []float64{9, 4, 5, 7.0}},
	{mathblocks.OpMax, [][]float64{{0, 10, 40, 80}, {1, 2, 4, 20}, {1, 5, 5, 2}}, []float64{1, 10, 40, 80}},
	{mathblocks.OpMin, [][]float64{{9, 4, 5, 7.0}, {3, 4, 1, 2.0}}, []float64{3, 4, 1, 2.0}},
	{mathblocks.OpMin, [][]float64{{0, 10, 40, 80}, {1, 2, 4, 20}, {1, 5, 5, 2}}, []float64{0, 2, 4, 2}},
}

var bitwiseCases = []vectorCase{
	{mathblocks.OpAnd, [][]float64{{0b0000, 0b0101, 0b1011, 0b1110}}, []float64{0b0000, 0b0101, 0b1011, 0b1110}},
	{mathblocks.OpAnd, [][]float64{{0b0000, 0b0101, 0b1011, 0b1110}, {0b0010, 0b1100, 0b0011, 0b0110}}, []float64{0b0000, 0b0100, 0b0011, 0b0110}},
	{mathblocks.OpAnd, [][]float64{{0b0000, 0b0101, 0b1011, 0b1110}, {0b0010, 0b1100, 0b0011, 0b0110}, {0b1010, 0b1011, 0b1111, 0b1100}}, []float64{0b0000, 0b0000, 0b0011, 0b0100}},
	{mathblocks.OpOr, [][]float64{{0b0000, 0b0101, 0b1011, 0b1110}, {0b0010, 0b1100, 0b0011, 0b0110}}, []float64{0b0010, 0b1101, 0b1011, 0b1110}},
	{mathblocks.OpOr, [][]float64{{0b0000, 0b0101, 0b1011, 0b1110}, {0b0010, 0b1100, 0b0011, 0b0110}, {0b1010, 0b1011, 0b1111, 0b1100}}, []float64{0b1010, 0b1111, 0b1111, 0b1110}},
	{mathblocks.OpXor, [][]float64{{0b0000, 0b0101, 0b1011, 0b1110}, {0b0010, 0b1100, 0b0011, 0b0110}}, []float64{0b0010, 0b1001, 0b1000, 0b1000}},
	{mathblocks.OpXor, [][]float64{{0b0000, 0b0101, 0b1011, 0b1110}, {0b0010, 0b1100, 0b0011, 0b0110}, {0b1010, 0b1011, 0b1111, 0b1100}}, []float64{0b1000, 0b0010, 0b0111, 0b0100}},
}

func convert[T numeric.Number](xs []float64) []T {
	out := make([]T, len(xs))
	for i, x := range xs {
		out[i] = T(x)
	}
	return out
}

func props(pairs ...any) property.Map {
	var m property.Map
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1])
	}
	return m
}

func newRegistry(t *testing.T) *block.Registry {
	t.Helper()
	reg := block.NewRegistry()
	require.NoError(t, mathblocks.Register(reg))
	require.NoError(t, probe.Register(reg))
	return reg
}

type flow struct {
	t   *testing.T
	reg *block.Registry
	g   *graph.Graph
}

func newFlow(t *testing.T) *flow {
	return &flow{t: t, reg: newRegistry(t), g: graph.New(graph.WithEdgeCapacity(16))}
}

func (f *flow) add(typeName, name string, props property.Map) block.Block {
	f.t.Helper()
	b, err := f.reg.Create(typeName, name, props, block.Dependencies{})
	require.NoError(f.t, err)
	require.NoError(f.t, f.g.AddBlock(b))
	return b
}

func (f *flow) connect(from, to string) {
	f.t.Helper()
	_, err := f.g.ConnectRefs(from, to)
	require.NoError(f.t, err)
}

func (f *flow) run() error {
	sched, err := scheduler.New(f.g, scheduler.WithChunkSize(16))
	require.NoError(f.t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Run(ctx)
}

// source adds a TagSource emitting values once
func source[T numeric.Number](f *flow, name string, values []T, tags ...tag.Tag) {
	f.add(probe.SourceType[T](), name, props("values", values, "n_samples_max", len(values), "tags", tags))
}

func sink[T numeric.Number](f *flow, name string) *probe.TagSink[T] {
	return f.add(probe.SinkType[T](), name, property.Map{}).(*probe.TagSink[T])
}

// runFold feeds each input into a fresh n-ary block and returns what reached the sink
func runFold[T numeric.Number](t *testing.T, op mathblocks.Op, inputs [][]float64) []T {
	f := newFlow(t)
	f.add(mathblocks.MultiType[T](op), "op", props("n_inputs", len(inputs)))
	for i, in := range inputs {
		name := fmt.Sprintf("src%d", i)
		source(f, name, convert[T](in))
		f.connect(name+".out", fmt.Sprintf("op.in#%d", i))
	}
	snk := sink[T](f, "snk")
	f.connect("op.out", "snk.in")
	require.NoError(t, f.run())
	return snk.Samples()
}

func checkArithmetic[T numeric.Number](t *testing.T) {
	for _, c := range arithmeticCases {
		t.Run(fmt.Sprintf("%s/%d-inputs", c.op, len(c.inputs)), func(t *testing.T) {
			got := runFold[T](t, c.op, c.inputs)
			assert.InDeltaSlice(t, convert[T](c.want), got, 1e-4)
		})
	}
}

func checkBitwise[T numeric.Integer](t *testing.T) {
	for _, c := range bitwiseCases {
		t.Run(fmt.Sprintf("%s/%d-inputs", c.op, len(c.inputs)), func(t *testing.T) {
			assert.Equal(t, convert[T](c.want), runFold[T](t, c.op, c.inputs))
		})
	}
}

func TestMulti_Arithmetic(t *testing.T) {
	t.Run("float32", checkArithmetic[float32])
	t.Run("float64", checkArithmetic[float64])
	t.Run("int16", checkArithmetic[int16])
	t.Run("int64", checkArithmetic[int64])
	t.Run("uint8", checkArithmetic[uint8])
	t.Run("uint32", checkArithmetic[uint32])
}

func TestMulti_Bitwise(t *testing.T) {
	t.Run("int8", checkBitwise[int8])
	t.Run("int32", checkBitwise[int32])
	t.Run("uint16", checkBitwise[uint16])
	t.Run("uint64", checkBitwise[uint64])
}

func TestMulti_IntegerDivideByZeroFailsRun(t *testing.T) {
	f := newFlow(t)
	f.add(mathblocks.MultiType[int32](mathblocks.OpDivide), "op", props("n_inputs", 2))
	source(f, "a", []int32{4, 6, 8})
	source(f, "b", []int32{2, 0, 4})
	sink[int32](f, "snk")
	f.connect("a.out", "op.in#0")
	f.connect("b.out", "op.in#1")
	f.connect("op.out", "snk.in")

	err := f.run()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBlockFailure)
	assert.ErrorIs(t, err, mathblocks.ErrDivideByZero)
}

func TestMulti_FloatDivideByZero(t *testing.T) {
	got := runFold[float64](t, mathblocks.OpDivide, [][]float64{{1, 0}, {0, 2}})
	require.Len(t, got, 2)
	assert.True(t, got[0] > 1e308)
	assert.Zero(t, got[1])
}

func TestMulti_MergesInputTags(t *testing.T) {
	f := newFlow(t)
	f.add(mathblocks.MultiType[float32](mathblocks.OpAdd), "op", props("n_inputs", 2))
	source(f, "a", make([]float32, 10), tag.New(4, property.Pair{Key: "a", Value: 1}))
	source(f, "b", make([]float32, 10), tag.New(4, property.Pair{Key: "a", Value: 2}, property.Pair{Key: "b", Value: 3}))
	snk := sink[float32](f, "snk")
	f.connect("a.out", "op.in#0")
	f.connect("b.out", "op.in#1")
	f.connect("op.out", "snk.in")
	require.NoError(t, f.run())

	want := []tag.Tag{tag.New(4, property.Pair{Key: "a", Value: 2}, property.Pair{Key: "b", Value: 3})}
	assert.True(t, probe.EqualTagLists(want, snk.Tags()), probe.TagListDiff(want, snk.Tags()))
}

func TestMulti_Arity(t *testing.T) {
	reg := newRegistry(t)
	b, err := reg.Create(mathblocks.MultiType[uint8](mathblocks.OpXor), "x", props("n_inputs", 3), block.Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, 3, b.(*mathblocks.Multi[uint8]).Arity())
	assert.Len(t, b.Inputs(), 3)

	_, err = b.Port("in#3")
	assert.ErrorIs(t, err, errors.ErrArityMismatch)

	_, err = reg.Create(mathblocks.MultiType[uint8](mathblocks.OpAdd), "y", props("n_inputs", 0), block.Dependencies{})
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)

	_, err = reg.Create("math.and:float32", "z", property.Map{}, block.Dependencies{})
	assert.ErrorIs(t, err, errors.ErrUnknownBlockType)
}

func TestConst(t *testing.T) {
	tests := []struct {
		op    mathblocks.Op
		value any
		want  float64
	}{
		{mathblocks.OpAdd, nil, 5},
		{mathblocks.OpAdd, 2, 6},
		{mathblocks.OpSubtract, nil, 3},
		{mathblocks.OpSubtract, 2, 2},
		{mathblocks.OpMultiply, nil, 4},
		{mathblocks.OpMultiply, 2, 8},
		{mathblocks.OpDivide, nil, 4},
		{mathblocks.OpDivide, 2, 2},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.op, tt.value), func(t *testing.T) {
			f := newFlow(t)
			var p property.Map
			if tt.value != nil {
				p.Set("value", tt.value)
			}
			f.add(mathblocks.ConstType[int32](tt.op), "op", p)
			in := make([]int32, 20)
			for i := range in {
				in[i] = 4
			}
			source(f, "src", in)
			snk := sink[int32](f, "snk")
			f.connect("src.out", "op.in")
			f.connect("op.out", "snk.in")
			require.NoError(t, f.run())

			want := make([]int32, 20)
			for i := range want {
				want[i] = int32(tt.want)
			}
			assert.Equal(t, want, snk.Samples())
		})
	}
}

func TestConst_ForwardsTagsOnGroupStarts(t *testing.T) {
	f := newFlow(t)
	op := f.add(mathblocks.ConstType[float64](mathblocks.OpMultiply), "op", props("value", 0.5))
	assert.Equal(t, block.CapabilityVectorized, op.Capability())
	assert.Equal(t, 0.5, op.(*mathblocks.Const[float64]).Value())

	tags := []tag.Tag{
		tag.New(0, property.Pair{Key: tag.KeySignalName, Value: "x"}),
		tag.New(8, property.Pair{Key: "marker", Value: "a"}),
		tag.New(16, property.Pair{Key: "marker", Value: "b"}),
	}
	source(f, "src", convert[float64]([]float64{2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22, 24, 26, 28, 30, 32, 34, 36}), tags...)
	snk := sink[float64](f, "snk")
	f.connect("src.out", "op.in")
	f.connect("op.out", "snk.in")
	require.NoError(t, f.run())

	assert.Equal(t, convert[float64]([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18}), snk.Samples())
	assert.True(t, probe.EqualTagLists(tags, snk.Tags()), probe.TagListDiff(tags, snk.Tags()))
}

func TestConst_Errors(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.Create(mathblocks.ConstType[uint16](mathblocks.OpDivide), "d", props("value", 0), block.Dependencies{})
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)
	assert.ErrorIs(t, err, mathblocks.ErrDivideByZero)

	_, err = reg.Create(mathblocks.ConstType[float32](mathblocks.OpDivide), "f", props("value", 0), block.Dependencies{})
	assert.NoError(t, err)

	_, err = reg.Create(mathblocks.ConstType[float32](mathblocks.OpAdd), "w", props("vector_width", 0), block.Dependencies{})
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)

	_, err = reg.Create(mathblocks.ConstType[int8](mathblocks.OpAdd), "s", props("value", "one"), block.Dependencies{})
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)

	_, err = mathblocks.NewConst[int8](mathblocks.OpAnd, "m", property.Map{}, block.Dependencies{})
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)

	_, err = reg.Create(mathblocks.ConstType[uint8](mathblocks.OpAdd), "wrap", props("value", 300), block.Dependencies{})
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)

	c, err := reg.Create(mathblocks.ConstType[uint8](mathblocks.OpAdd), "json", props("value", 200.0), block.Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, uint8(200), c.(*mathblocks.Const[uint8]).Value())
}

func TestMulti_InputCountMustBeIntegral(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.Create(mathblocks.MultiType[float32](mathblocks.OpAdd), "add", props("n_inputs", 2.9), block.Dependencies{})
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)

	b, err := reg.Create(mathblocks.MultiType[float32](mathblocks.OpAdd), "add", props("n_inputs", 3.0), block.Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, 3, b.(*mathblocks.Multi[float32]).Arity())
}

func TestUnary(t *testing.T) {
	t.Run("negate int16", func(t *testing.T) {
		f := newFlow(t)
		f.add(mathblocks.MultiType[int16](mathblocks.OpNegate), "op", property.Map{})
		source(f, "src", []int16{1, 2, 8, 17})
		snk := sink[int16](f, "snk")
		f.connect("src.out", "op.in")
		f.connect("op.out", "snk.in")
		require.NoError(t, f.run())
		assert.Equal(t, []int16{-1, -2, -8, -17}, snk.Samples())
	})

	t.Run("negate uint8 wraps", func(t *testing.T) {
		f := newFlow(t)
		f.add(mathblocks.MultiType[uint8](mathblocks.OpNegate), "op", property.Map{})
		source(f, "src", []uint8{1, 2})
		snk := sink[uint8](f, "snk")
		f.connect("src.out", "op.in")
		f.connect("op.out", "snk.in")
		require.NoError(t, f.run())
		assert.Equal(t, []uint8{255, 254}, snk.Samples())
	})

	t.Run("not uint8", func(t *testing.T) {
		f := newFlow(t)
		f.add(mathblocks.MultiType[uint8](mathblocks.OpNot), "op", property.Map{})
		source(f, "src", []uint8{0b0000, 0b0101, 0b1011, 0b1110})
		snk := sink[uint8](f, "snk")
		f.connect("src.out", "op.in")
		f.connect("op.out", "snk.in")
		require.NoError(t, f.run())
		assert.Equal(t, []uint8{0b11111111, 0b11111010, 0b11110100, 0b11110001}, snk.Samples())
	})
}

func TestRegister(t *testing.T) {
	reg := block.NewRegistry()
	require.NoError(t, mathblocks.Register(reg))
	assert.Len(t, reg.Types(), 142)

	for _, typeName := range []string{"math.add_const:uint8", "math.max:float64", "math.xor:int64", "math.not:uint32", "math.negate:float32"} {
		_, ok := reg.Lookup(typeName)
		assert.True(t, ok, typeName)
	}
	_, ok := reg.Lookup("math.not:float64")
	assert.False(t, ok)

	assert.ErrorIs(t, mathblocks.Register(reg), errors.ErrDuplicateName)
	assert.True(t, errors.IsFatal(mathblocks.Register(nil)))
}
