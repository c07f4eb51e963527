package core

import (
	"errors"
	"io/fs"
)

var (
	// ErrNotExist is returned when a file or directory does not exist.
	ErrNotExist = fs.ErrNotExist

	// ErrExist is returned when a file or directory already exists.
	ErrExist = fs.ErrExist

	// ErrPermission is returned when permission is denied.
	ErrPermission = fs.ErrPermission

	// ErrClosed is returned when an operation is performed on a closed file.
	ErrClosed = fs.ErrClosed

	// ErrUnsupported is returned when an operation is not supported by the provider.
	ErrUnsupported = errors.New("operation not supported")

	// ErrReadOnly is returned by read-only providers for every mutating
	// operation. It wraps ErrPermission so generic callers treat it as a
	// permission failure.
	ErrReadOnly = &readOnlyError{}
)

type readOnlyError struct{}

func (*readOnlyError) Error() string { return "read-only filesystem" }

func (*readOnlyError) Unwrap() error { return fs.ErrPermission }
