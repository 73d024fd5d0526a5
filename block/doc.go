// Package block provides the execution contract for sigflow blocks: typed
// ports, edges, the lifecycle state machine, the three processing strategies
// and the tag propagation protocol.
//
// # Overview
//
// A block embeds Base, creates its ports during construction and attaches
// exactly one Strategy:
//
//	type Gain struct {
//		block.Base
//		in  *block.PortIn[float32]
//		out *block.PortOut[float32]
//		k   float32
//	}
//
//	func NewGain(name string, k float32, deps block.Dependencies) (*Gain, error) {
//		g := &Gain{k: k}
//		g.Init(name, "gain", deps)
//		g.in = block.NewInput[float32](&g.Base, "in")
//		g.out = block.NewOutput[float32](&g.Base, "out")
//		return g, g.SetStrategy(block.Scalar(func(i int) error {
//			g.out.Set(i, g.in.At(i)*g.k)
//			return nil
//		}))
//	}
//
// # Strategies
//
// Scalar steps run once per sample and observe tags at exact sample
// positions. Vectorized steps run once per group of a fixed width; groups are
// aligned to absolute multiples of the width and tags anywhere inside a group
// are observed at its start. Bulk steps receive the whole window, may commit
// fewer samples than offered, and report OK or Done.
//
// # Tags
//
// Every edge carries an index-ordered tag queue next to its sample buffer.
// Samples and tags are committed under the same edge lock. A tag is delivered
// once, at the first invocation in which its index is at or before the sample
// being processed, and is then removed from the queue. Tags due at the same
// position on several inputs are merged by key union; on collision the input
// created later wins. The merged tag is republished at offset 0 on every
// output unless the block calls DisableTagForwarding.
//
// # Lifecycle
//
//	initialized -> running -> stopped
//	                       -> error
//
// Start moves a block to running. Invoke moves it to stopped when a stop was
// requested, when an input is exhausted, when every consumer of its outputs
// is done, or when a bulk step returns Done. A failing or panicking step moves
// it to error and returns a *FailureError. Terminal transitions close output
// edges so downstream blocks drain and stop in turn.
package block
