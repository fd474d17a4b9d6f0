package core

import "errors"

var (
	// ErrConfiguration marks initialization-time failures: an
	// unresolvable material name, a geometry that violates containment,
	// or an unrecognized physics configuration. Surfaced before any
	// event runs; never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrResource marks a failure to acquire the output log. A run
	// without a writable sink has no value, so this is fatal.
	ErrResource = errors.New("resource error")
)
