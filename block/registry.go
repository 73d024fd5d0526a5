package block

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/property"
)

// MaxNameLength bounds block instance and type names
const MaxNameLength = 256

// Factory creates a block from its construction-time properties.
// Factories only build ports and settings; they never start processing.
type Factory func(name string, props property.Map, deps Dependencies) (Block, error)

// Registration holds a factory and metadata for one block type
type Registration struct {
	Type        string     `json:"type"`        // e.g. "math.add:float64"
	Description string     `json:"description"` // Human-readable description
	Capability  Capability `json:"capability"`  // Processing shape of created blocks
	Factory     Factory    `json:"-"`           // Factory function (not serializable)
}

// Registry manages block factories. It is safe for concurrent use.
type Registry struct {
	factories map[string]*Registration
	mu        sync.RWMutex
}

// NewRegistry creates a new empty block registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]*Registration),
	}
}

// Register adds a block type. Registering the same type twice is an error.
func (r *Registry) Register(reg Registration) error {
	if err := ValidateTypeName(reg.Type); err != nil {
		return errors.Wrap(err, "Registry", "Register", "type name validation")
	}
	if reg.Factory == nil {
		return errors.WrapInvalid(errors.ErrConfigInvalid, "Registry", "Register", "factory function validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[reg.Type]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("%w: block type %q", errors.ErrDuplicateName, reg.Type),
			"Registry", "Register", "duplicate type check")
	}
	r.factories[reg.Type] = &reg
	return nil
}

// Create builds a block instance of the given type
func (r *Registry) Create(typeName, name string, props property.Map, deps Dependencies) (Block, error) {
	if err := ValidateName(name); err != nil {
		return nil, errors.Wrap(err, "Registry", "Create", "instance name validation")
	}

	r.mu.RLock()
	reg, exists := r.factories[typeName]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownBlockType, typeName),
			"Registry", "Create", "factory lookup")
	}

	blk, err := reg.Factory(name, props, deps)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "Create", fmt.Sprintf("factory %s", typeName))
	}
	return blk, nil
}

// Lookup returns the registration for a block type
func (r *Registry) Lookup(typeName string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.factories[typeName]
	if !ok {
		return Registration{}, false
	}
	return *reg, true
}

// Types returns the registered type names in sorted order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ValidateName checks a block instance name. Names are addressed as
// "name.port" so they may contain letters, digits, '-' and '_' only.
func ValidateName(name string) error {
	return validateChars(name, "ValidateName", "")
}

// ValidateTypeName checks a block type name, which may also contain '.' and ':'.
func ValidateTypeName(name string) error {
	return validateChars(name, "ValidateTypeName", ".:")
}

func validateChars(name, op, extra string) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrConfigInvalid, "Registry", op, "empty name")
	}
	if len(name) > MaxNameLength {
		return errors.WrapInvalid(errors.ErrConfigInvalid, "Registry", op, "name too long")
	}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			continue
		}
		allowed := false
		for _, e := range extra {
			if r == e {
				allowed = true
			}
		}
		if !allowed {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %q contains %q", errors.ErrConfigInvalid, name, r),
				"Registry", op, "invalid name characters")
		}
	}
	return nil
}
