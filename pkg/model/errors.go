package model

import "errors"

// Query-time errors. Callers match them with errors.Is; the returned error
// usually wraps one of these with the offending name or index.
var (
	ErrUnknownType            = errors.New("unknown type")
	ErrUnknownActionSchema    = errors.New("unknown action schema")
	ErrArityMismatch          = errors.New("arity mismatch")
	ErrInvalidObjectReference = errors.New("invalid object reference")
)

// Load-time errors. Any of these aborts loading the whole domain or problem;
// no partially built schema is ever published.
var (
	ErrUnsupportedPreconditionForm = errors.New("unsupported precondition form")
	ErrUnknownPredicate            = errors.New("unknown predicate")
	ErrUnknownVariable             = errors.New("unknown variable")
	ErrDuplicateName               = errors.New("duplicate name")
	ErrTypeCycle                   = errors.New("type hierarchy cycle")
	ErrNoDomain                    = errors.New("no domain loaded")
	ErrNoProblem                   = errors.New("no problem loaded")
	ErrDomainMismatch              = errors.New("problem built against another domain")
)
