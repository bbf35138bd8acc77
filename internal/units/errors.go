package units

import "errors"

// Domain errors for unit handling.
var (
	// ErrUnknownUnit indicates a unit symbol not present in the table.
	ErrUnknownUnit = errors.New("units: unknown unit")

	// ErrDimension indicates a quantity with the wrong physical dimension.
	ErrDimension = errors.New("units: wrong dimension")

	// ErrMissingReference indicates a reference value that has not been set.
	ErrMissingReference = errors.New("units: missing reference value")
)

// ReferenceError reports an operation that needs reference units which were
// never supplied.
type ReferenceError struct {
	Msg string
}

func (e *ReferenceError) Error() string {
	return "units: " + e.Msg
}

func (e *ReferenceError) Unwrap() error {
	return ErrMissingReference
}
