package block

// Capability names the processing shape a block advertises
type Capability int

const (
	// CapabilityScalar processes one sample per call
	CapabilityScalar Capability = iota
	// CapabilityBulk processes every available sample in one call
	CapabilityBulk
	// CapabilityVectorized processes a fixed-width group of samples per call
	CapabilityVectorized
)

// String returns a string representation of the capability
func (c Capability) String() string {
	switch c {
	case CapabilityScalar:
		return "scalar"
	case CapabilityBulk:
		return "bulk"
	case CapabilityVectorized:
		return "vectorized"
	default:
		return "unknown"
	}
}

// Strategy is a block's processing step. Exactly one is attached per block
// and it never changes. Build one with Scalar, Bulk or Vectorized.
type Strategy interface {
	Capability() Capability
	sealed()
}

// ScalarFunc processes sample i of the current window: it reads inputs with
// PortIn.At(i) and writes outputs with PortOut.Set(i, v).
type ScalarFunc func(i int) error

// BulkFunc processes the whole window. It may consume and publish fewer
// samples than offered with PortIn.Consume and PortOut.Publish.
type BulkFunc func() (Status, error)

// VectorFunc processes samples [start, start+n) of the current window.
// n equals the width except for the final group of a finished stream.
type VectorFunc func(start, n int) error

type scalarStrategy struct{ fn ScalarFunc }

func (scalarStrategy) Capability() Capability { return CapabilityScalar }
func (scalarStrategy) sealed()                {}

type bulkStrategy struct{ fn BulkFunc }

func (bulkStrategy) Capability() Capability { return CapabilityBulk }
func (bulkStrategy) sealed()                {}

type vectorStrategy struct {
	width int
	fn    VectorFunc
}

func (vectorStrategy) Capability() Capability { return CapabilityVectorized }
func (vectorStrategy) sealed()                {}

// Scalar creates a per-sample strategy.
func Scalar(fn ScalarFunc) Strategy {
	return scalarStrategy{fn: fn}
}

// Bulk creates a whole-window strategy.
func Bulk(fn BulkFunc) Strategy {
	return bulkStrategy{fn: fn}
}

// Vectorized creates a group-of-width strategy. Tags are observed only at
// group starts, so a tag inside a group is seen at the start of that group.
// A width below 1 is treated as 1.
func Vectorized(width int, fn VectorFunc) Strategy {
	if width < 1 {
		width = 1
	}
	return vectorStrategy{width: width, fn: fn}
}
