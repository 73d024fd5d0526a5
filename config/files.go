package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Limits applied to flowgraph files and environment overrides
const (
	maxFileSize  = 10 << 20 // 10MB
	maxNesting   = 100      // nested mappings and sequences
	maxEnvVarLen = 10000
	maxPathLen   = 4096
)

var flowExtensions = []string{".json", ".yaml", ".yml"}

// checkPath rejects paths that escape the working directory, are too long
// or do not name a JSON or YAML file.
func checkPath(path string) error {
	if path == "" {
		return errors.New("empty config path")
	}
	if len(path) > maxPathLen {
		return fmt.Errorf("path too long: %d > %d", len(path), maxPathLen)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("cannot resolve absolute path: %w", err)
	}
	if filepath.IsAbs(path) {
		if strings.Contains(filepath.ToSlash(absPath), "..") {
			return fmt.Errorf("path traversal not allowed: %s", path)
		}
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("cannot get working directory: %w", err)
		}
		if rel, err := filepath.Rel(cwd, absPath); err != nil || strings.HasPrefix(rel, "..") {
			return fmt.Errorf("path traversal not allowed: %s resolves outside working directory", path)
		}
	}

	if !slices.Contains(flowExtensions, strings.ToLower(filepath.Ext(path))) {
		return fmt.Errorf("only JSON or YAML config files allowed: %s", path)
	}
	return nil
}

// readFlowFile reads a regular file of bounded size
func readFlowFile(path string) ([]byte, error) {
	if err := checkPath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes > %d", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}
	return data, nil
}

// writeFlowFile writes data readable by the owner only
func writeFlowFile(path string, data []byte) error {
	if err := checkPath(path); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}
	if len(data) > maxFileSize {
		return fmt.Errorf("config data too large: %d bytes > %d", len(data), maxFileSize)
	}
	return os.WriteFile(path, data, 0600)
}

// checkEnvValue bounds an override value and rejects NUL bytes
func checkEnvValue(key, value string) error {
	if len(value) > maxEnvVarLen {
		return fmt.Errorf("environment variable %s too long: %d > %d", key, len(value), maxEnvVarLen)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("null byte in environment variable %s", key)
	}
	return nil
}

// checkNesting walks a parsed document and fails once collections nest
// deeper than maxNesting. It applies to JSON and YAML alike.
func checkNesting(node *yaml.Node, depth int) error {
	switch node.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		depth++
		if depth > maxNesting {
			return fmt.Errorf("nesting too deep: line %d exceeds %d levels", node.Line, maxNesting)
		}
	}
	for _, child := range node.Content {
		if err := checkNesting(child, depth); err != nil {
			return err
		}
	}
	return nil
}
