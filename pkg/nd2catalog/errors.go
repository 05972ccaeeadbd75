package nd2catalog

import (
	"errors"
	"fmt"
)

// ErrCatalogNotFound indicates a directory holds no catalog workbook.
var ErrCatalogNotFound = errors.New("catalog not found")

// ErrRecordNotFound indicates no catalog row matches a lookup key.
var ErrRecordNotFound = errors.New("record not found")

// NotFoundError represents a failed catalog lookup.
type NotFoundError struct {
	// Key is the requested file number or experiment ID.
	Key string
	// Dir is the directory, or registry, that was searched.
	Dir string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find #%s in folder: %s", e.Key, e.Dir)
}

func (e *NotFoundError) Unwrap() error {
	return ErrRecordNotFound
}
