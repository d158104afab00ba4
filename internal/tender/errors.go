package tender

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmptyDocument is returned when no text could be read from a tender document.
	ErrEmptyDocument = errors.New("could not read text from the tender document")
	// ErrNotReady is returned when rendering is requested before pricing completed.
	ErrNotReady = errors.New("pricing data missing, run the commercial phase first")
)

// ExtractionError means the reasoning capability output could not be parsed as JSON.
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "extraction output is not valid json"
	}
	return fmt.Sprintf("extraction output is not valid json: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// UnresolvedProductError means a candidate referenced a product missing from the catalog.
type UnresolvedProductError struct {
	ProductID int
}

func (e *UnresolvedProductError) Error() string {
	return fmt.Sprintf("matched product id %d not found in catalog", e.ProductID)
}

// SchemaVersionError means a stored record lacks the layout the requested stage needs.
type SchemaVersionError struct {
	Found  int
	Want   int
	Reason string
}

func (e *SchemaVersionError) Error() string {
	return fmt.Sprintf("technical data schema v%d required, found v%d (%s): re-run technical analysis", e.Want, e.Found, e.Reason)
}

// CapabilityError wraps a failure of the reasoning capability itself.
type CapabilityError struct {
	Op  string
	Err error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s: reasoning capability failed: %v", e.Op, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }
