package chi

import (
	"github.com/kailas-cloud/manualrag/internal/domain/manual"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
	"github.com/kailas-cloud/manualrag/internal/usecase/evidence"
)

// ErrorCode is the machine-readable error code returned to clients.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeValidationFailed       ErrorCode = "validation_failed"
	ErrorCodeNotFound               ErrorCode = "not_found"
	ErrorCodeProductNotFound        ErrorCode = "product_not_found"
	ErrorCodeCategoryNotFound       ErrorCode = "category_not_found"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	ErrorCodeNoManuals              ErrorCode = "no_manuals"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Mode       result.Mode       `json:"mode"`
	Manuals    int               `json:"manuals_loaded"`
	Categories []string          `json:"categories"`
	Checks     map[string]string `json:"checks"`
	Version    string            `json:"version"`
}

// ProductsResponse is the body of GET /products.
type ProductsResponse struct {
	Products        []manual.Product `json:"products"`
	Categories      []string         `json:"categories"`
	TotalProducts   int              `json:"total_products"`
	TotalCategories int              `json:"total_categories"`
}

// CategoriesResponse is the body of GET /categories.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Total      int      `json:"total"`
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"`
	result.Multi
	Evidence evidence.Evidence `json:"evidence"`
}

// ManualSearchResponse is the body of GET /manuals/{product}/search.
type ManualSearchResponse struct {
	Query   string         `json:"query"`
	Product manual.Product `json:"product_info"`
	result.Result
	Evidence evidence.Evidence `json:"evidence"`
}
