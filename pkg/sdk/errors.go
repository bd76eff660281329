package manualrag

import "github.com/kailas-cloud/manualrag/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNoManuals              = domain.ErrNoManuals
	ErrProductNotFound        = domain.ErrProductNotFound
	ErrCategoryNotFound       = domain.ErrCategoryNotFound
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrBackendUnavailable     = domain.ErrBackendUnavailable
	ErrIndexNotFound          = domain.ErrIndexNotFound
)
