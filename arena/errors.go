// ABOUTME: Fatal error taxonomy for the arena collector
// ABOUTME: Runtime failures panic with *FatalError after logging; creation errors are returned

package arena

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports an arena or catalog that cannot be used:
	// capacity too small, zero registers, bad slot size, invalid types.
	ErrConfiguration = errors.New("zgc: configuration error")

	// ErrBounds reports programmer error: a register index or handle out of
	// range, or a reentrant call from inside a collection callback.
	ErrBounds = errors.New("zgc: bounds error")

	// ErrOutOfMemory reports an allocation that could not be satisfied even
	// after a collection. The arena never grows.
	ErrOutOfMemory = errors.New("zgc: out of memory")

	// ErrCorruption reports an unknown type tag or an impossible handle seen
	// during dispatch. The arena must not be used afterwards.
	ErrCorruption = errors.New("zgc: corruption")
)

// FatalError is the panic value raised by the arena when an operation cannot
// complete. Kind is one of the sentinel errors above.
type FatalError struct {
	Kind error
	Msg  string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
}

func (e *FatalError) Unwrap() error {
	return e.Kind
}

func configErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// fatal logs and aborts the current operation. There is no recovery path
// inside the arena: a broken liveness or layout invariant cannot be repaired.
func (a *Arena) fatal(kind error, format string, args ...interface{}) {
	err := &FatalError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
	a.log.WithError(err).WithField("next_handle", a.nextII).Error("arena fatal error")
	panic(err)
}
