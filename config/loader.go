package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment overrides read by a Loader
const EnvPrefix = "SIGFLOW"

// Loader loads configuration with layers and environment overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: true,
		envPrefix:  EnvPrefix,
	}
}

// AddLayer adds a configuration file layer. Later layers override scheduler
// settings and replace blocks and connections declared by earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	cfg := l.getDefaults()

	for _, path := range l.layers {
		layer, err := l.loadLayer(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cfg = mergeConfigs(cfg, layer)
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Parse decodes a YAML or JSON document without layers or overrides.
// yaml.v3 reads JSON documents as well.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := checkNesting(&doc, 0); err != nil {
		return nil, fmt.Errorf("invalid config structure: %w", err)
	}

	var cfg Config
	if doc.Kind == 0 {
		return &cfg, nil
	}
	if err := doc.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func (l *Loader) getDefaults() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Workers: DefaultWorkers,
		},
	}
}

func (l *Loader) loadLayer(path string) (*Config, error) {
	data, err := readFlowFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// mergeConfigs overlays override on base. Non-zero scheduler fields win,
// blocks with the same name are replaced in place and connections from the
// same producer port are replaced.
func mergeConfigs(base, override *Config) *Config {
	result := base.Clone()

	if override.Version != "" {
		result.Version = override.Version
	}
	if override.Scheduler.Workers != 0 {
		result.Scheduler.Workers = override.Scheduler.Workers
	}
	if override.Scheduler.ChunkSize != 0 {
		result.Scheduler.ChunkSize = override.Scheduler.ChunkSize
	}
	if override.Scheduler.BufferSize != 0 {
		result.Scheduler.BufferSize = override.Scheduler.BufferSize
	}

	for _, b := range override.Blocks {
		replaced := false
		for i := range result.Blocks {
			if result.Blocks[i].Name == b.Name {
				result.Blocks[i] = BlockConfig{Name: b.Name, Type: b.Type, Properties: b.Properties.Clone()}
				replaced = true
				break
			}
		}
		if !replaced {
			result.Blocks = append(result.Blocks, BlockConfig{Name: b.Name, Type: b.Type, Properties: b.Properties.Clone()})
		}
	}

	for _, c := range override.Connections {
		conn := ConnectionConfig{From: c.From, To: append(Targets(nil), c.To...)}
		replaced := false
		for i := range result.Connections {
			if result.Connections[i].From == c.From {
				result.Connections[i] = conn
				replaced = true
				break
			}
		}
		if !replaced {
			result.Connections = append(result.Connections, conn)
		}
	}
	return result
}

// applyEnvOverrides applies PREFIX_WORKERS, PREFIX_CHUNK_SIZE and PREFIX_BUFFER_SIZE
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	overrides := []struct {
		name   string
		target *int
	}{
		{"WORKERS", &cfg.Scheduler.Workers},
		{"CHUNK_SIZE", &cfg.Scheduler.ChunkSize},
		{"BUFFER_SIZE", &cfg.Scheduler.BufferSize},
	}
	for _, o := range overrides {
		key := l.envPrefix + "_" + o.name
		val := os.Getenv(key)
		if val == "" {
			continue
		}
		if err := checkEnvValue(key, val); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("environment variable %s: %w", key, err)
		}
		*o.target = n
	}
	return nil
}

// SaveToFile writes the configuration as JSON for .json paths and YAML otherwise
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return writeFlowFile(path, data)
}
