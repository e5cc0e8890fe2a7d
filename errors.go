package composels

import "errors"

var (
	// ErrOutOfRange is returned when a position or edit range lies outside the document.
	ErrOutOfRange = errors.New("position out of range")

	// ErrResolutionFailed is returned when a document has structural content
	// but no items a position can be resolved against.
	ErrResolutionFailed = errors.New("no structural items to resolve against")

	// ErrConfigNotFound is returned by FindConfig when no config file exists
	// in the directory or any of its parents.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrNoDocument is returned when a request names a document that is not open.
	ErrNoDocument = errors.New("document not open")

	// ErrSyntax wraps YAML syntax errors reported by the serializer.
	ErrSyntax = errors.New("yaml syntax error")
)
