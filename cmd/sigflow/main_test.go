package main

import (
	"bytes"
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sigflow/errors"
)

const scaleFlow = `
scheduler:
  workers: 2
  chunk_size: 32
blocks:
  - name: src
    type: probe.tag_source:float32
    properties:
      n_samples_max: 100
      tags:
        - index: 0
          map: {signal_name: test}
        - index: 40
          map: {marker: 1}
  - name: scale
    type: math.multiply_const:float32
    properties:
      value: 2
  - name: snk
    type: probe.tag_sink:float32
connections:
  - from: src.out
    to: scale.in
  - from: scale.out
    to: snk.in
`

const divideFlow = `
blocks:
  - name: a
    type: probe.tag_source:int32
    properties: {n_samples_max: 4, values: [8, 6, 4, 2]}
  - name: b
    type: probe.tag_source:int32
    properties: {n_samples_max: 4, values: [2, 0, 2, 1]}
  - name: div
    type: math.divide:int32
    properties: {n_inputs: 2}
  - name: snk
    type: probe.tag_sink:int32
connections:
  - {from: a.out, to: "div.in#0"}
  - {from: b.out, to: "div.in#1"}
  - {from: div.out, to: snk.in}
`

func writeFlow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_Flow(t *testing.T) {
	_, logs, err := runCommand(t, "--config", writeFlow(t, scaleFlow), "--log-format", "text")
	require.NoError(t, err)
	assert.Contains(t, logs, "Run finished")
	assert.Contains(t, logs, "state=completed")
	assert.Contains(t, logs, "leftover_samples=0")
}

func TestRun_Validate(t *testing.T) {
	_, logs, err := runCommand(t, "-c", writeFlow(t, scaleFlow), "--validate")
	require.NoError(t, err)
	assert.Contains(t, logs, "Flowgraph is valid")
	assert.NotContains(t, logs, "Run finished")
}

func TestRun_BlockFailure(t *testing.T) {
	_, logs, err := runCommand(t, "--config", writeFlow(t, divideFlow), "--workers", "3")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBlockFailure)
	assert.Contains(t, logs, `"state":"failed"`)
}

func TestRun_BuildErrors(t *testing.T) {
	bad := `
blocks:
  - name: src
    type: probe.tag_source:complex64
`
	_, _, err := runCommand(t, "--config", writeFlow(t, bad))
	assert.ErrorIs(t, err, errors.ErrUnknownBlockType)

	unbound := `
blocks:
  - name: src
    type: probe.tag_source:float32
`
	_, _, err = runCommand(t, "--config", writeFlow(t, unbound), "--validate")
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)
}

func TestRun_Flags(t *testing.T) {
	out, _, err := runCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "sigflow version "+Version+"\n", out)

	_, help, err := runCommand(t, "--help")
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, help, "--validate")

	out, _, err = runCommand(t, "--list-types")
	require.NoError(t, err)
	assert.Contains(t, out, "math.add:float32")
	assert.Contains(t, out, "probe.tag_sink:uint8")

	flow := writeFlow(t, scaleFlow)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, "config file not found"},
		{"log level", []string{"--config", flow, "--log-level", "loud"}, "invalid log level"},
		{"log format", []string{"--config", flow, "--log-format", "xml"}, "invalid log format"},
		{"workers", []string{"--config", flow, "--workers", "-1"}, "invalid workers"},
		{"metrics port", []string{"--config", flow, "--metrics-port", "70000"}, "invalid metrics port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCommand(t, tt.args...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("SIGFLOW_TEST_INT", "7")
	t.Setenv("SIGFLOW_TEST_BAD", "seven")
	assert.Equal(t, 7, getEnvInt("SIGFLOW_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("SIGFLOW_TEST_BAD", 1))
	assert.Equal(t, "x", getEnv("SIGFLOW_TEST_UNSET", "x"))
}

func TestSetupLogger(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
	assert.Equal(t, slog.LevelInfo, parseLevel("chatty"))

	var buf bytes.Buffer
	logger := setupLogger(&buf, "warn", "text")
	logger.Info("dropped")
	logger.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "msg=kept")
	assert.Contains(t, buf.String(), "process.name="+appName)
}
