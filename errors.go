package acf

import (
	"errors"
	"fmt"
)

// Errors returned by parsing, accessing and writing documents.
var (
	// ErrUnclosedSection indicates a section left open at end of input or an extra ')'.
	ErrUnclosedSection = errors.New("non closed section path")

	// ErrRepeatedSection indicates a section name repeated among its siblings.
	ErrRepeatedSection = errors.New("repeated section definition")

	// ErrRepeatedKey indicates a key bound twice in the same section or keyed list.
	ErrRepeatedKey = errors.New("repeated key definition")

	// ErrInvalidBinding indicates a malformed key, quote or arrow.
	ErrInvalidBinding = errors.New("invalid key -> value definition")

	// ErrMixedList indicates keyed and simple items in the same list block.
	ErrMixedList = errors.New("mixed list")

	// ErrUnclosedList indicates a list block left open at end of input.
	ErrUnclosedList = errors.New("non closed list")

	// ErrUnterminatedQuote indicates a quoted value without its closing quote.
	ErrUnterminatedQuote = errors.New("unterminated quote")

	// ErrUnterminatedComment indicates a '*(' block comment without ')*'.
	ErrUnterminatedComment = errors.New("unterminated block comment")

	// ErrRootSection indicates a missing, misnamed or repeated root section.
	ErrRootSection = errors.New("invalid root section")

	// ErrUnexpectedContent indicates a line that fits no rule of the grammar.
	ErrUnexpectedContent = errors.New("unexpected content")

	// ErrTypeMismatch indicates an element requested as the wrong variant.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnencodable indicates a value the format cannot represent.
	ErrUnencodable = errors.New("value cannot be encoded")

	// ErrNoBackingFile indicates a save on a document that was not opened from a file.
	ErrNoBackingFile = errors.New("document has no backing file")

	// ErrUnknownDocument indicates a registry lookup for an id that was never opened.
	ErrUnknownDocument = errors.New("unknown document")

	// ErrRegistryClosed indicates use of a registry after Close.
	ErrRegistryClosed = errors.New("registry is closed")
)

// FormatError reports a grammar violation. Parsing stops at the first one.
type FormatError struct {
	// Source names the file or stream being parsed.
	Source string
	// Line is the 1-based line number, 0 when unknown.
	Line int
	// Text is the offending raw line.
	Text string
	// Detail adds context to Err.
	Detail string
	// Err is one of the package sentinels.
	Err error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	src := e.Source
	if src == "" {
		src = "<input>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("format error in %s at line %d: %s (%q)", src, e.Line, msg, e.Text)
	}
	return fmt.Sprintf("format error in %s: %s", src, msg)
}

// Unwrap returns the underlying sentinel.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// TypeError is returned when an element is requested as a variant it is not.
type TypeError struct {
	Path string
	Want Kind
	Got  Kind
}

func (e *TypeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("type mismatch: want %s, got %s", e.Want, e.Got)
	}
	return fmt.Sprintf("type mismatch at %s: want %s, got %s", e.Path, e.Want, e.Got)
}

func (e *TypeError) Unwrap() error {
	return ErrTypeMismatch
}
