package math

import (
	"fmt"

	"github.com/c360/sigflow/block"
	"github.com/c360/sigflow/blocks/numeric"
	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/property"
)

// Op names an elementwise operation
type Op string

// Supported operations
const (
	OpAdd      Op = "add"
	OpSubtract Op = "subtract"
	OpMultiply Op = "multiply"
	OpDivide   Op = "divide"
	OpMin      Op = "min"
	OpMax      Op = "max"
	OpAnd      Op = "and"
	OpOr       Op = "or"
	OpXor      Op = "xor"
	OpNegate   Op = "negate"
	OpNot      Op = "not"
)

// DefaultVectorWidth is the group size of the constant-operand blocks
const DefaultVectorWidth = 8

// ErrDivideByZero is returned by integer division blocks
var ErrDivideByZero = errors.New("integer division by zero")

// ConstSettings configures a constant-operand block
type ConstSettings[T numeric.Number] struct {
	Value       T   `property:"value"`
	VectorWidth int `property:"vector_width"`
}

// MultiSettings configures an n-ary block
type MultiSettings struct {
	Inputs int `property:"n_inputs"`
}

// Const applies op with a fixed operand to every sample
type Const[T numeric.Number] struct {
	block.Base
	in  *block.PortIn[T]
	out *block.PortOut[T]

	op       Op
	settings ConstSettings[T]
}

// NewConst creates a constant-operand block for add, subtract, multiply or divide
func NewConst[T numeric.Number](op Op, name string, props property.Map, deps block.Dependencies) (*Const[T], error) {
	typeName := ConstType[T](op)
	settings := ConstSettings[T]{Value: 1, VectorWidth: DefaultVectorWidth}
	if err := property.Decode(props, &settings); err != nil {
		return nil, errors.WrapInvalid(err, typeName, "NewConst", "decode settings")
	}
	if settings.VectorWidth < 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: vector_width %d", errors.ErrConfigInvalid, settings.VectorWidth),
			typeName, "NewConst", "vector width")
	}
	if op == OpDivide && settings.Value == 0 && !numeric.IsFloat[T]() {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %w", errors.ErrConfigInvalid, ErrDivideByZero), typeName, "NewConst", "operand")
	}

	apply, err := arithmetic[T](op)
	if err != nil {
		return nil, errors.WrapInvalid(err, typeName, "NewConst", "operation")
	}

	c := &Const[T]{op: op, settings: settings}
	c.Init(name, typeName, deps)
	c.in = block.NewInput[T](&c.Base, "in")
	c.out = block.NewOutput[T](&c.Base, "out")

	value := settings.Value
	err = c.SetStrategy(block.Vectorized(settings.VectorWidth, func(start, n int) error {
		in, out := c.in.Span()[start:start+n], c.out.Span()[start:start+n]
		for i, v := range in {
			out[i] = apply(v, value)
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Value returns the constant operand
func (c *Const[T]) Value() T { return c.settings.Value }

// Multi folds n inputs into one output with a binary operation
type Multi[T numeric.Number] struct {
	block.Base
	in  []*block.PortIn[T]
	out *block.PortOut[T]

	op    Op
	apply func(a, b T) T
}

// NewMulti creates an n-ary arithmetic block: add, subtract, multiply, divide, min or max
func NewMulti[T numeric.Number](op Op, name string, props property.Map, deps block.Dependencies) (*Multi[T], error) {
	apply, err := arithmetic[T](op)
	if err != nil {
		return nil, errors.WrapInvalid(err, MultiType[T](op), "NewMulti", "operation")
	}
	return newMulti(op, apply, name, props, deps)
}

// NewLogical creates an n-ary bitwise block: and, or or xor
func NewLogical[T numeric.Integer](op Op, name string, props property.Map, deps block.Dependencies) (*Multi[T], error) {
	apply, err := bitwise[T](op)
	if err != nil {
		return nil, errors.WrapInvalid(err, MultiType[T](op), "NewLogical", "operation")
	}
	return newMulti(op, apply, name, props, deps)
}

func newMulti[T numeric.Number](op Op, apply func(a, b T) T, name string, props property.Map, deps block.Dependencies) (*Multi[T], error) {
	typeName := MultiType[T](op)
	settings := MultiSettings{Inputs: 1}
	if err := property.Decode(props, &settings); err != nil {
		return nil, errors.WrapInvalid(err, typeName, "NewMulti", "decode settings")
	}

	m := &Multi[T]{op: op, apply: apply}
	m.Init(name, typeName, deps)
	in, err := block.NewInputGroup[T](&m.Base, "in", settings.Inputs)
	if err != nil {
		return nil, err
	}
	m.in = in
	m.out = block.NewOutput[T](&m.Base, "out")

	if err := m.SetStrategy(block.Bulk(m.process)); err != nil {
		return nil, err
	}
	return m, nil
}

// Arity returns the number of input ports
func (m *Multi[T]) Arity() int { return len(m.in) }

func (m *Multi[T]) process() (block.Status, error) {
	out := m.out.Span()
	copy(out, m.in[0].Span())

	divide := m.op == OpDivide && !numeric.IsFloat[T]()
	for k := 1; k < len(m.in); k++ {
		for i, v := range m.in[k].Span() {
			if divide && v == 0 {
				return block.Done, fmt.Errorf("%w: %s at sample %d", ErrDivideByZero, m.in[k].String(), m.in[k].Position()+int64(i))
			}
			out[i] = m.apply(out[i], v)
		}
	}
	return block.OK, nil
}

// Unary maps every sample through a single-operand function
type Unary[T numeric.Number] struct {
	block.Base
	in  *block.PortIn[T]
	out *block.PortOut[T]
	op  Op
}

// NewNegate creates a block producing -x
func NewNegate[T numeric.Number](name string, _ property.Map, deps block.Dependencies) (*Unary[T], error) {
	return newUnary(OpNegate, func(v T) T { return -v }, name, deps)
}

// NewNot creates a block producing the bitwise complement ^x
func NewNot[T numeric.Integer](name string, _ property.Map, deps block.Dependencies) (*Unary[T], error) {
	return newUnary(OpNot, func(v T) T { return ^v }, name, deps)
}

func newUnary[T numeric.Number](op Op, fn func(T) T, name string, deps block.Dependencies) (*Unary[T], error) {
	u := &Unary[T]{op: op}
	u.Init(name, MultiType[T](op), deps)
	u.in = block.NewInput[T](&u.Base, "in")
	u.out = block.NewOutput[T](&u.Base, "out")

	err := u.SetStrategy(block.Scalar(func(i int) error {
		u.out.Set(i, fn(u.in.At(i)))
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return u, nil
}

func arithmetic[T numeric.Number](op Op) (func(a, b T) T, error) {
	switch op {
	case OpAdd:
		return func(a, b T) T { return a + b }, nil
	case OpSubtract:
		return func(a, b T) T { return a - b }, nil
	case OpMultiply:
		return func(a, b T) T { return a * b }, nil
	case OpDivide:
		return func(a, b T) T { return a / b }, nil
	case OpMin:
		return func(a, b T) T { return min(a, b) }, nil
	case OpMax:
		return func(a, b T) T { return max(a, b) }, nil
	default:
		return nil, fmt.Errorf("%w: unsupported arithmetic operation %q", errors.ErrConfigInvalid, op)
	}
}

func bitwise[T numeric.Integer](op Op) (func(a, b T) T, error) {
	switch op {
	case OpAnd:
		return func(a, b T) T { return a & b }, nil
	case OpOr:
		return func(a, b T) T { return a | b }, nil
	case OpXor:
		return func(a, b T) T { return a ^ b }, nil
	default:
		return nil, fmt.Errorf("%w: unsupported bitwise operation %q", errors.ErrConfigInvalid, op)
	}
}
