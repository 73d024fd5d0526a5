package graph

import (
	"fmt"

	"github.com/c360/sigflow/errors"
)

// ConnectionError reports a rejected Connect or Broadcast call. It matches
// its Kind sentinel and the underlying detail with errors.Is.
type ConnectionError struct {
	Kind   error
	From   PortRef
	To     PortRef
	Detail error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s -> %s: %v", e.From, e.To, e.Detail)
}

// Unwrap exposes the kind and the detail
func (e *ConnectionError) Unwrap() []error {
	return []error{e.Kind, e.Detail}
}

var connectionKinds = []error{
	errors.ErrTypeMismatch,
	errors.ErrPortNotFound,
	errors.ErrAlreadyConnected,
	errors.ErrArityMismatch,
	errors.ErrImplicitFanOut,
}

func newConnectionError(from, to PortRef, detail error) *ConnectionError {
	kind := errors.ErrPortNotFound
	for _, k := range connectionKinds {
		if errors.Is(detail, k) {
			kind = k
			break
		}
	}
	return &ConnectionError{Kind: kind, From: from, To: to, Detail: detail}
}
