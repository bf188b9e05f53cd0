package adex

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures the indexer and linter produce.
type ErrorKind string

const (
	// KindNotFound means a requested path or id does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindStorage is a backend failure: I/O, constraint violation, or
	// lock contention beyond the retry budget.
	KindStorage ErrorKind = "storage"
	// KindSerialization means a value could not be decoded from a
	// backend row.
	KindSerialization ErrorKind = "serialization"
	// KindParse means tree-sitter produced no tree for a file.
	KindParse ErrorKind = "parse"
	// KindIO is a filesystem error outside the storage layer.
	KindIO ErrorKind = "io"
	// KindConfig is a malformed rule or config file.
	KindConfig ErrorKind = "config"
	// KindTimeout means an exec rule exceeded its timeout.
	KindTimeout ErrorKind = "timeout"
	// KindCancelled means cooperative cancellation was requested.
	KindCancelled ErrorKind = "cancelled"
	// KindInvalidArgument means the caller supplied bad parameters.
	KindInvalidArgument ErrorKind = "invalid_argument"
)

// Error is the typed error the core subsystems return. Path is set for
// per-file failures (Parse, IO); the wrapped error, when present, carries
// backend detail.
type Error struct {
	Kind ErrorKind
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Msg)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Errors by kind, so errors.Is(err, &Error{Kind: KindNotFound})
// works without comparing paths or messages.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the ErrorKind of err, or "" if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound reports whether err is a KindNotFound error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

func parseErr(path string) error {
	return &Error{Kind: KindParse, Path: path}
}

func ioErr(path string, err error) error {
	return &Error{Kind: KindIO, Path: path, Msg: err.Error(), Err: err}
}
