package document

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for file extensions the extractor cannot read.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtractionFailed is returned when a supported file cannot be decoded.
	ErrExtractionFailed = errors.New("document extraction failed")
)

// ExtractionError carries the file and format alongside the failure kind.
// errors.Is matches both the kind sentinel and the underlying cause.
type ExtractionError struct {
	Path   string
	Format Format
	Kind   error
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s (%s)", e.Kind, e.Path, e.Format)
	}
	return fmt.Sprintf("%v: %s (%s): %v", e.Kind, e.Path, e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func unsupported(path string, format Format) error {
	return &ExtractionError{Path: path, Format: format, Kind: ErrUnsupportedFormat}
}

func failed(path string, format Format, err error) error {
	return &ExtractionError{Path: path, Format: format, Kind: ErrExtractionFailed, Err: err}
}
