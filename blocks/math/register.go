package math

import (
	"github.com/c360/sigflow/block"
	"github.com/c360/sigflow/blocks/numeric"
	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/property"
)

var (
	constOps   = []Op{OpAdd, OpSubtract, OpMultiply, OpDivide}
	arithOps   = []Op{OpAdd, OpSubtract, OpMultiply, OpDivide, OpMin, OpMax}
	bitwiseOps = []Op{OpAnd, OpOr, OpXor}
)

// ConstType returns the registered type name of a constant-operand block, e.g. "math.add_const:int16"
func ConstType[T numeric.Number](op Op) string {
	return "math." + string(op) + "_const:" + numeric.TypeName[T]()
}

// MultiType returns the registered type name of an n-ary or unary block, e.g. "math.max:float64"
func MultiType[T numeric.Number](op Op) string {
	return "math." + string(op) + ":" + numeric.TypeName[T]()
}

// Register registers every math block for every numeric sample type
func Register(registry *block.Registry) error {
	if registry == nil {
		return errors.WrapFatal(errors.ErrConfigInvalid, "math", "Register", "nil registry")
	}
	for _, register := range []func(*block.Registry) error{
		registerArithmetic[int8], registerArithmetic[int16], registerArithmetic[int32], registerArithmetic[int64],
		registerArithmetic[uint8], registerArithmetic[uint16], registerArithmetic[uint32], registerArithmetic[uint64],
		registerArithmetic[float32], registerArithmetic[float64],
		registerBitwise[int8], registerBitwise[int16], registerBitwise[int32], registerBitwise[int64],
		registerBitwise[uint8], registerBitwise[uint16], registerBitwise[uint32], registerBitwise[uint64],
	} {
		if err := register(registry); err != nil {
			return err
		}
	}
	return nil
}

func registerArithmetic[T numeric.Number](registry *block.Registry) error {
	var regs []block.Registration
	for _, op := range constOps {
		regs = append(regs, block.Registration{
			Type:        ConstType[T](op),
			Description: "Applies " + string(op) + " with a constant operand to every sample",
			Capability:  block.CapabilityVectorized,
			Factory: func(name string, props property.Map, deps block.Dependencies) (block.Block, error) {
				return NewConst[T](op, name, props, deps)
			},
		})
	}
	for _, op := range arithOps {
		regs = append(regs, block.Registration{
			Type:        MultiType[T](op),
			Description: "Folds n_inputs streams with " + string(op),
			Capability:  block.CapabilityBulk,
			Factory: func(name string, props property.Map, deps block.Dependencies) (block.Block, error) {
				return NewMulti[T](op, name, props, deps)
			},
		})
	}
	regs = append(regs, block.Registration{
		Type:        MultiType[T](OpNegate),
		Description: "Negates every sample",
		Capability:  block.CapabilityScalar,
		Factory: func(name string, props property.Map, deps block.Dependencies) (block.Block, error) {
			return NewNegate[T](name, props, deps)
		},
	})
	return registerAll(registry, regs)
}

func registerBitwise[T numeric.Integer](registry *block.Registry) error {
	var regs []block.Registration
	for _, op := range bitwiseOps {
		regs = append(regs, block.Registration{
			Type:        MultiType[T](op),
			Description: "Folds n_inputs streams with bitwise " + string(op),
			Capability:  block.CapabilityBulk,
			Factory: func(name string, props property.Map, deps block.Dependencies) (block.Block, error) {
				return NewLogical[T](op, name, props, deps)
			},
		})
	}
	regs = append(regs, block.Registration{
		Type:        MultiType[T](OpNot),
		Description: "Complements every sample bitwise",
		Capability:  block.CapabilityScalar,
		Factory: func(name string, props property.Map, deps block.Dependencies) (block.Block, error) {
			return NewNot[T](name, props, deps)
		},
	})
	return registerAll(registry, regs)
}

func registerAll(registry *block.Registry, regs []block.Registration) error {
	for _, reg := range regs {
		if err := registry.Register(reg); err != nil {
			return errors.Wrap(err, "math", "Register", reg.Type)
		}
	}
	return nil
}
