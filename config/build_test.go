package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sigflow/block"
	"github.com/c360/sigflow/blocks/probe"
	"github.com/c360/sigflow/componentregistry"
	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/graph"
	"github.com/c360/sigflow/metric"
	"github.com/c360/sigflow/property"
	"github.com/c360/sigflow/scheduler"
)

type counterSettings struct {
	Count int `property:"count"`
}

type testCounter struct {
	block.Base
	out  *block.PortOut[int]
	next int
}

type testSink struct {
	block.Base
	in  *block.PortIn[int]
	got []int
}

func newTestRegistry(t *testing.T) *block.Registry {
	t.Helper()
	reg := block.NewRegistry()
	require.NoError(t, reg.Register(block.Registration{
		Type:       "test.counter",
		Capability: block.CapabilityScalar,
		Factory: func(name string, props property.Map, deps block.Dependencies) (block.Block, error) {
			settings := counterSettings{Count: 1}
			if err := property.Decode(props, &settings); err != nil {
				return nil, err
			}
			c := &testCounter{}
			c.Init(name, "test.counter", deps)
			c.out = block.NewOutput[int](&c.Base, "out")
			err := c.SetStrategy(block.Scalar(func(i int) error {
				c.out.Set(i, c.next)
				c.next++
				if c.next == settings.Count {
					c.RequestStop()
				}
				return nil
			}))
			return c, err
		},
	}))
	require.NoError(t, reg.Register(block.Registration{
		Type:       "test.sink",
		Capability: block.CapabilityBulk,
		Factory: func(name string, _ property.Map, deps block.Dependencies) (block.Block, error) {
			s := &testSink{}
			s.Init(name, "test.sink", deps)
			s.in = block.NewInput[int](&s.Base, "in")
			err := s.SetStrategy(block.Bulk(func() (block.Status, error) {
				s.got = append(s.got, s.in.Span()...)
				return block.OK, nil
			}))
			return s, err
		},
	}))
	return reg
}

func TestBuild_AndRun(t *testing.T) {
	cfg, err := Parse([]byte(flowYAML))
	require.NoError(t, err)

	reg := metric.NewMetricsRegistry(metric.WithoutRuntimeCollectors())
	g, err := Build(cfg, newTestRegistry(t), block.Dependencies{MetricsRegistry: reg})
	require.NoError(t, err)

	edges := g.Edges()
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.True(t, e.Broadcast)
	}

	sched, err := scheduler.New(g, cfg.Scheduler.Options()...)
	require.NoError(t, err)
	require.NoError(t, sched.Run(context.Background()))

	for _, name := range []string{"a", "b"} {
		b, ok := g.Block(name)
		require.True(t, ok)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, b.(*testSink).got, name)
	}
}

func TestBuild_EdgeCapacity(t *testing.T) {
	cfg := &Config{
		Scheduler: SchedulerConfig{BufferSize: 4},
		Blocks: []BlockConfig{
			{Name: "src", Type: "test.counter", Properties: property.New(property.Pair{Key: "count", Value: 20})},
			{Name: "snk", Type: "test.sink"},
		},
		Connections: []ConnectionConfig{{From: "src.out", To: Targets{"snk.in"}}},
	}
	g, err := Build(cfg, newTestRegistry(t), block.Dependencies{})
	require.NoError(t, err)

	src, _ := g.Block("src")
	require.NoError(t, block.Start(src))
	res, err := block.Invoke(src, 100)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Produced)
}

func TestBuild_EdgeSmallerThanVectorWidth(t *testing.T) {
	doc := `
scheduler:
  buffer_size: 4
blocks:
  - name: src
    type: probe.tag_source:float32
    properties:
      n_samples_max: 50
      mark_tag: false
  - name: offset
    type: math.add_const:float32
    properties:
      value: 2
  - name: snk
    type: probe.tag_sink:float32
connections:
  - from: src.out
    to: offset.in
  - from: offset.out
    to: snk.in
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	registry, err := componentregistry.NewRegistry()
	require.NoError(t, err)

	g, err := Build(cfg, registry, block.Dependencies{})
	require.NoError(t, err)
	sched, err := scheduler.New(g, cfg.Scheduler.Options()...)
	require.NoError(t, err)
	require.NoError(t, sched.Run(context.Background()))
	assert.Equal(t, scheduler.StateCompleted.String(), sched.Stats().State)

	b, ok := g.Block("snk")
	require.True(t, ok)
	got := b.(*probe.TagSink[float32]).Samples()
	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, float32(i)+2, v, "sample %d", i)
	}
}

func TestBuild_Errors(t *testing.T) {
	base := func() *Config {
		return &Config{
			Blocks: []BlockConfig{
				{Name: "src", Type: "test.counter"},
				{Name: "snk", Type: "test.sink"},
			},
			Connections: []ConnectionConfig{{From: "src.out", To: Targets{"snk.in"}}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"unknown type", func(c *Config) { c.Blocks[1].Type = "test.nope" }, errors.ErrUnknownBlockType},
		{"bad property", func(c *Config) {
			c.Blocks[0].Properties = property.New(property.Pair{Key: "count", Value: "many"})
		}, errors.ErrConfigInvalid},
		{"unknown port", func(c *Config) { c.Connections[0].To = Targets{"snk.input"} }, errors.ErrPortNotFound},
		{"reversed", func(c *Config) {
			c.Connections[0] = ConnectionConfig{From: "snk.in", To: Targets{"src.out"}}
		}, errors.ErrPortNotFound},
		{"broadcast to one port twice", func(c *Config) { c.Connections[0].To = Targets{"snk.in", "snk.in"} }, errors.ErrAlreadyConnected},
		{"undeclared block", func(c *Config) { c.Connections[0].From = "ghost.out" }, errors.ErrConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			g, err := Build(cfg, newTestRegistry(t), block.Dependencies{})
			assert.Nil(t, g)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Build(nil, newTestRegistry(t), block.Dependencies{})
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)

	var ce *graph.ConnectionError
	cfg := base()
	cfg.Connections[0].To = Targets{"snk.input"}
	_, err = Build(cfg, newTestRegistry(t), block.Dependencies{})
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "snk.input", ce.To.String())
}

func TestSchedulerConfig_Options(t *testing.T) {
	assert.Empty(t, SchedulerConfig{}.Options())
	assert.Len(t, SchedulerConfig{Workers: 2, ChunkSize: 16, BufferSize: 8}.Options(), 2)
}
