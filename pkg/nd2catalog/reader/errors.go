package reader

import (
	"errors"
	"fmt"
)

// ErrNotND2 indicates a path that does not name an ND2 file.
var ErrNotND2 = errors.New("not an nd2 file")

// ErrNoFrameRate indicates a stack whose metadata lacks the frame rate.
var ErrNoFrameRate = errors.New("frame rate not found in metadata")

// FormatError reports a file passed to the ND2 reader without the ".nd2"
// extension.
type FormatError struct {
	Path string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("the file is not an nd2-file: %s", e.Path)
}

func (e *FormatError) Unwrap() error {
	return ErrNotND2
}

// ReaderError represents a failure of an underlying reader.
type ReaderError struct {
	Path      string
	Component string // "metadata", "exposure", "pixels"
	Err       error
}

func (e *ReaderError) Error() string {
	return fmt.Sprintf("%s reader error for %q: %v", e.Component, e.Path, e.Err)
}

func (e *ReaderError) Unwrap() error {
	return e.Err
}

// NewReaderError creates a new ReaderError.
func NewReaderError(path, component string, err error) *ReaderError {
	return &ReaderError{
		Path:      path,
		Component: component,
		Err:       err,
	}
}
