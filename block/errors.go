package block

import (
	"fmt"

	"github.com/c360/sigflow/errors"
)

// FailureError reports an unrecoverable error raised by a block's processing
// step or lifecycle hook. It matches both errors.ErrBlockFailure and the cause.
type FailureError struct {
	Block string
	Err   error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("block %q failed: %v", e.Block, e.Err)
}

// Unwrap exposes the sentinel and the cause to errors.Is / errors.As
func (e *FailureError) Unwrap() []error {
	return []error{errors.ErrBlockFailure, e.Err}
}

// PanicError carries a value recovered from a panicking processing step
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
