package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/c360/sigflow/block"
	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/graph"
	"github.com/c360/sigflow/property"
)

// Defaults applied by the Loader before any layer
const (
	DefaultWorkers = 1
)

// Config describes a flowgraph and how to run it
type Config struct {
	Version     string             `json:"version,omitempty" yaml:"version,omitempty"`
	Scheduler   SchedulerConfig    `json:"scheduler" yaml:"scheduler"`
	Blocks      []BlockConfig      `json:"blocks" yaml:"blocks"`
	Connections []ConnectionConfig `json:"connections" yaml:"connections"`
}

// SchedulerConfig holds run settings
type SchedulerConfig struct {
	Workers    int `json:"workers,omitempty" yaml:"workers,omitempty"`         // Invocation workers; 1 runs inline
	ChunkSize  int `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`   // Max samples per invocation
	BufferSize int `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty"` // Edge capacity in samples
}

// BlockConfig declares one block instance
type BlockConfig struct {
	Name       string       `json:"name" yaml:"name"`
	Type       string       `json:"type" yaml:"type"` // Registered type, e.g. "math.add:float32"
	Properties property.Map `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// ConnectionConfig binds one producer port to one or more consumer ports.
// More than one target creates a broadcast.
type ConnectionConfig struct {
	From string  `json:"from" yaml:"from"` // "block.port"
	To   Targets `json:"to" yaml:"to"`
}

// Targets accepts a single "block.port" string or a list of them
type Targets []string

// UnmarshalYAML decodes a scalar or a sequence
func (t *Targets) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*t = Targets{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*t = list
		return nil
	default:
		return fmt.Errorf("line %d: connection target must be a string or a list", node.Line)
	}
}

// Clone returns a deep copy
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	out := &Config{
		Version:     c.Version,
		Scheduler:   c.Scheduler,
		Blocks:      make([]BlockConfig, len(c.Blocks)),
		Connections: make([]ConnectionConfig, len(c.Connections)),
	}
	for i, b := range c.Blocks {
		out.Blocks[i] = BlockConfig{Name: b.Name, Type: b.Type, Properties: b.Properties.Clone()}
	}
	for i, conn := range c.Connections {
		out.Connections[i] = ConnectionConfig{From: conn.From, To: append(Targets(nil), conn.To...)}
	}
	return out
}

// Block returns the block declaration with the given name
func (c *Config) Block(name string) (BlockConfig, bool) {
	for _, b := range c.Blocks {
		if b.Name == name {
			return b, true
		}
	}
	return BlockConfig{}, false
}

// Validate checks the structure of the configuration without creating
// blocks. Every problem is reported.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Scheduler.Workers < 0 {
		result = multierror.Append(result, fmt.Errorf("scheduler.workers must not be negative"))
	}
	if c.Scheduler.ChunkSize < 0 {
		result = multierror.Append(result, fmt.Errorf("scheduler.chunk_size must not be negative"))
	}
	if c.Scheduler.BufferSize < 0 {
		result = multierror.Append(result, fmt.Errorf("scheduler.buffer_size must not be negative"))
	}

	if len(c.Blocks) == 0 {
		result = multierror.Append(result, fmt.Errorf("at least one block is required"))
	}
	names := make(map[string]bool, len(c.Blocks))
	for i, b := range c.Blocks {
		if err := block.ValidateName(b.Name); err != nil {
			result = multierror.Append(result, fmt.Errorf("blocks[%d].name: %w", i, err))
		} else if names[b.Name] {
			result = multierror.Append(result, fmt.Errorf("blocks[%d]: %w: %q", i, errors.ErrDuplicateName, b.Name))
		}
		names[b.Name] = true
		if b.Type == "" {
			result = multierror.Append(result, fmt.Errorf("blocks[%d].type is required", i))
		}
	}

	for i, conn := range c.Connections {
		if err := checkRef(conn.From, names); err != nil {
			result = multierror.Append(result, fmt.Errorf("connections[%d].from: %w", i, err))
		}
		if len(conn.To) == 0 {
			result = multierror.Append(result, fmt.Errorf("connections[%d].to is required", i))
		}
		for j, to := range conn.To {
			if err := checkRef(to, names); err != nil {
				result = multierror.Append(result, fmt.Errorf("connections[%d].to[%d]: %w", i, j, err))
			}
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrConfigInvalid, err), "Config", "Validate", "config validation")
	}
	return nil
}

func checkRef(ref string, names map[string]bool) error {
	r, err := graph.ParsePortRef(ref)
	if err != nil {
		return err
	}
	if !names[r.Block] {
		return fmt.Errorf("%w: block %q is not declared", errors.ErrPortNotFound, r.Block)
	}
	return nil
}

// String renders the configuration as YAML
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return strings.TrimSpace(string(data))
}
