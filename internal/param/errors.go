package param

import "errors"

var (
	// ErrUnknownParameter is returned when a name or alias is not registered.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrDuplicateParameter is returned when a name or alias is registered twice.
	ErrDuplicateParameter = errors.New("duplicate parameter")
	// ErrDuplicateBind is returned when two parameters share a bind name.
	ErrDuplicateBind = errors.New("duplicate bind name")
	// ErrImmutable is returned when an immutable parameter is given a second,
	// different value.
	ErrImmutable = errors.New("parameter is immutable")
	// ErrSwitchConflict is returned when a parameter is set while a member of
	// its switch group already holds a value.
	ErrSwitchConflict = errors.New("switch conflict")
)
