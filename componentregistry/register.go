// Package componentregistry registers the built-in block types of sigflow.
package componentregistry

import (
	"errors"

	"github.com/c360/sigflow/block"
	mathblocks "github.com/c360/sigflow/blocks/math"
	"github.com/c360/sigflow/blocks/probe"
	pkgerrors "github.com/c360/sigflow/errors"
)

// Register registers all built-in block types with the provided registry:
//
//   - math: constant-operand, n-ary arithmetic and bitwise blocks
//   - probe: tag source, monitor and sink blocks
//
// Every type is registered once per numeric sample type.
func Register(registry *block.Registry) error {
	// Nil registry is a programming error (fatal), not invalid input
	if registry == nil {
		return pkgerrors.WrapFatal(
			errors.New("registry cannot be nil"),
			"ComponentRegistry", "Register", "registry validation")
	}

	if err := mathblocks.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "math block registration")
	}

	if err := probe.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "probe block registration")
	}

	return nil
}

// NewRegistry returns a registry holding every built-in block type
func NewRegistry() (*block.Registry, error) {
	registry := block.NewRegistry()
	if err := Register(registry); err != nil {
		return nil, err
	}
	return registry, nil
}
