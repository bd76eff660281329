package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexNotFound signals a missing similarity index artifact.
	ErrIndexNotFound = errors.New("index not found")
	// ErrMetadataNotFound signals a missing index metadata artifact.
	ErrMetadataNotFound = errors.New("index metadata not found")
	// ErrUnsupportedSchema signals a metadata file in none of the known shapes.
	ErrUnsupportedSchema = errors.New("unsupported metadata schema")
	// ErrCorruptIndex signals an index file that cannot be decoded.
	ErrCorruptIndex = errors.New("corrupt index")
	// ErrIndexMismatch signals a vector count that differs from the item count.
	ErrIndexMismatch = errors.New("index and metadata length mismatch")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrBackendUnavailable signals that the similarity-search backend cannot be used in this process.
	ErrBackendUnavailable = errors.New("similarity backend unavailable")

	// ErrInvalidRequest signals a malformed search request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")

	// ErrNoManuals signals that no manual could be loaded or searched.
	ErrNoManuals = errors.New("no manuals available")
	// ErrCategoryNotFound signals a category that matches no loaded manual.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrProductNotFound signals a product that is not loaded.
	ErrProductNotFound = errors.New("product not found")
)

// ManualError attributes a failure to a single manual.
type ManualError struct {
	Product string
	Err     error
}

func (e *ManualError) Error() string {
	return fmt.Sprintf("manual %q: %s", e.Product, e.Err.Error())
}

func (e *ManualError) Unwrap() error { return e.Err }
