package engine

import "errors"

// Kind tags the engine's part of the error taxonomy of spec.md §7: storage,
// not_found, invalid_argument, invariant_violation (bug). unknown_command and
// invalid_syntax are not engine kinds; admin/ reports them as Response kinds.
type Kind string

const (
	KindStorage            Kind = "storage"
	KindNotFound           Kind = "not_found"
	KindInvalidArgument    Kind = "invalid_argument"
	KindInvariantViolation Kind = "invariant_violation"
)

// Error wraps an underlying cause with the taxonomy kind the engine's
// callers (admin dispatch, adapters) branch on.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind) + ": " + e.Op
	}
	return string(e.Kind) + ": " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// ErrAllIsMetaName is returned by VerifyManually when field_name is the
// meta-name "All", which only the higher-level admin dispatch may expand.
var ErrAllIsMetaName = errors.New("engine: field name 'all' cannot be verified individually")
