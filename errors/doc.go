// Package errors provides standardized error handling patterns for sigflow.
//
// # Overview
//
// The package implements a three-class error classification system: Transient
// (temporary, retryable), Invalid (bad input or configuration, caller decides
// how to proceed) and Fatal (unrecoverable, the run stops).
//
// # Taxonomy
//
// Connection errors are returned synchronously by graph connect calls and are
// classified Invalid. A failed connect leaves the graph unchanged:
//
//   - ErrTypeMismatch: producer and consumer element types differ
//   - ErrPortNotFound: unknown port name or index for that block
//   - ErrAlreadyConnected: the consumer port already has a bound producer
//   - ErrArityMismatch: a dynamic port collection was addressed past its size
//
// Runtime errors end a scheduler run. They are never retried:
//
//   - ErrBlockFailure: a processing step reported an unrecoverable error (Fatal)
//   - ErrDeadlock: no block can make progress and not all are terminal (Fatal)
//   - ErrConfigInvalid: a property value could not be applied (Invalid)
//
// # Wrapping
//
// All wrapping follows the format "component.method: action failed: cause":
//
//	if err := props.Decode(&settings); err != nil {
//	    return errors.WrapInvalid(err, "TagSource", "New", "decode properties")
//	}
//
// Classification survives wrapping, so callers can use IsInvalid, IsFatal,
// IsTransient and the standard errors.Is against the sentinels above.
package errors
