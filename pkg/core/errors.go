package core

import "errors"

// Common errors.
var (
	ErrInvalidName       = errors.New("invalid workbench name")
	ErrNotFound          = errors.New("not found")
	ErrProtected         = errors.New("workbench is protected")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrNotAHeading       = errors.New("location is not inside a heading")
	ErrNoIdentifier      = errors.New("card has no identifier")
	ErrInvalidOrder      = errors.New("order is not a permutation of the workbench")
	ErrReadOnly          = errors.New("store is in read-only mode")
)
