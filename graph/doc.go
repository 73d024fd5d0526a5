// Package graph provides flowgraph construction, connection validation and
// topology analysis for sigflow blocks.
//
// # Building a graph
//
//	g := graph.New(graph.WithEdgeCapacity(8192))
//	_ = g.AddBlock(src)
//	_ = g.AddBlock(add)
//	_, err := g.Connect("src", "out", "add", "in#0")
//
// Connect fails with a *ConnectionError whose Kind is one of
// errors.ErrTypeMismatch, errors.ErrPortNotFound, errors.ErrAlreadyConnected,
// errors.ErrArityMismatch or errors.ErrImplicitFanOut. A failed call leaves the
// graph unchanged and fails the same way on every retry.
//
// A consumer port accepts one producer. A producer port feeds one consumer
// unless it is bound with Broadcast, which validates every target before
// creating any edge.
//
// # Validation
//
// Validate reports every unconnected port and every block that is no longer
// in the initialized state, aggregated with go-multierror. Analyze returns
// sources, sinks, weakly connected components and unconnected ports without
// failing.
package graph
