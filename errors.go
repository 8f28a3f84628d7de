package sqlexec

import (
	"errors"
)

// ErrorKind is the closed set of failure kinds reported by Executor
type ErrorKind int

const (
	// KindGeneric is any preparation, execution or retrieval failure
	KindGeneric ErrorKind = iota
	// KindUniqueViolation is a write rejected by a unique (or primary key) constraint
	KindUniqueViolation
)

func (k ErrorKind) String() string {
	switch k {
	case KindUniqueViolation:
		return "unique violation"
	default:
		return "generic"
	}
}

// OrmError is returned for any failure that is not a uniqueness violation
//
// Message carries the driver's diagnostic text, when there is one
type OrmError struct {
	Message string
	Err     error
}

func newOrmError(err error) *OrmError {
	return &OrmError{Message: err.Error(), Err: err}
}

func (e *OrmError) Error() string {
	if e.Message == "" {
		return "orm error"
	}
	return "orm error: " + e.Message
}

func (e *OrmError) Unwrap() error {
	return e.Err
}

// Kind always returns KindGeneric
func (e *OrmError) Kind() ErrorKind {
	return KindGeneric
}

// UniquenessError is returned by Executor.Insert and Executor.Exec when the database rejects a duplicate value
//
// It deliberately carries no message - branch on the kind alone
type UniquenessError struct{}

// ErrNotUnique can be used with errors.Is to detect a UniquenessError
var ErrNotUnique error = &UniquenessError{}

func (e *UniquenessError) Error() string {
	return "value is not unique"
}

// Kind always returns KindUniqueViolation
func (e *UniquenessError) Kind() ErrorKind {
	return KindUniqueViolation
}

// Is reports whether target is also a *UniquenessError, so errors.Is matches any instance
func (e *UniquenessError) Is(target error) bool {
	_, ok := target.(*UniquenessError)
	return ok
}

// KindOf returns the ErrorKind of an error returned by Executor
//
// nil and errors that did not come from an Executor are reported as KindGeneric
func KindOf(err error) ErrorKind {
	var kinded interface{ Kind() ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	return KindGeneric
}
