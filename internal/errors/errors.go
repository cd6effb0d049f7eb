package errors

import (
	"errors"
)

// Common error types
var (
	ErrNoPrivileges       = errors.New("no privileges")
	ErrCannotActOnAdmin   = errors.New("cannot act on admin")
	ErrUnresolvableTarget = errors.New("unresolvable target")
)
