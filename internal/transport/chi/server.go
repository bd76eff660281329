package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/manualrag/internal/logger"
	"github.com/kailas-cloud/manualrag/internal/usecase/evidence"
	healthuc "github.com/kailas-cloud/manualrag/internal/usecase/health"
	"github.com/kailas-cloud/manualrag/internal/version"
)

const headerEmbeddingTokens = "X-Embedding-Tokens"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Limits bounds the top_k query parameter.
type Limits struct {
	DefaultTopK int
	MaxTopK     int
}

// Server serves the manual search API.
type Server struct {
	manuals       Searcher
	evidence      *evidence.Builder
	health        HealthChecker
	limits        Limits
	weights       result.Weights
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. Default weights fill in the w_* parameters
// a request leaves out.
func NewServer(
	manuals Searcher,
	ev *evidence.Builder,
	health HealthChecker,
	limits Limits,
	weights result.Weights,
	logger *zap.Logger,
) *Server {
	if limits.DefaultTopK <= 0 {
		limits.DefaultTopK = 10
	}
	if limits.MaxTopK < limits.DefaultTopK {
		limits.MaxTopK = limits.DefaultTopK
	}
	s := &Server{
		manuals:  manuals,
		evidence: ev,
		health:   health,
		limits:   limits,
		weights:  weights,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrProductNotFound, http.StatusNotFound, ErrorCodeProductNotFound),
		sentinelHandler(domain.ErrCategoryNotFound, http.StatusNotFound, ErrorCodeCategoryNotFound),
		sentinelHandler(domain.ErrNoManuals, http.StatusServiceUnavailable, ErrorCodeNoManuals),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrVectorDimMismatch,
			http.StatusInternalServerError, ErrorCodeVectorDimMismatch),
	}
	return s
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:     string(report.Status),
		Mode:       report.Mode,
		Manuals:    report.Manuals,
		Categories: s.manuals.Categories(),
		Checks:     checks,
		Version:    version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ListProducts handles GET /products.
func (s *Server) ListProducts(w http.ResponseWriter, _ *http.Request) {
	products := s.manuals.Products()
	categories := s.manuals.Categories()
	writeJSON(w, http.StatusOK, ProductsResponse{
		Products:        products,
		Categories:      categories,
		TotalProducts:   len(products),
		TotalCategories: len(categories),
	})
}

// ListCategories handles GET /categories.
func (s *Server) ListCategories(w http.ResponseWriter, _ *http.Request) {
	categories := s.manuals.Categories()
	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: categories, Total: len(categories)})
}

// searchParams are the query parameters shared by both search routes.
type searchParams struct {
	Query    string
	TopK     *int
	Category *string
	WText    *float64
	WTables  *float64
	WImages  *float64
}

func bindSearchParams(r *http.Request, withCategory bool) (searchParams, error) {
	var p searchParams
	q := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, true, "query", q, &p.Query); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "top_k", q, &p.TopK); err != nil {
		return p, err
	}
	if withCategory {
		if err := runtime.BindQueryParameter("form", true, false, "category", q, &p.Category); err != nil {
			return p, err
		}
	}
	if err := runtime.BindQueryParameter("form", true, false, "w_text", q, &p.WText); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "w_tables", q, &p.WTables); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "w_images", q, &p.WImages); err != nil {
		return p, err
	}
	return p, nil
}

// topK resolves the requested result count against the configured limits.
// The API rejects top_k=0 even though the searchers accept it: an empty
// result is never what an HTTP caller asked for.
func (s *Server) topK(requested *int) (int, error) {
	if requested == nil {
		return s.limits.DefaultTopK, nil
	}
	k := *requested
	if k < 1 || k > s.limits.MaxTopK {
		return 0, fmt.Errorf("top_k must be between 1 and %d (got %d; 0 is not accepted)", s.limits.MaxTopK, k)
	}
	return k, nil
}

// weightsOverride returns nil when no weight parameter was given, so the
// searcher falls back to its own defaults.
func (s *Server) weightsOverride(p searchParams) *result.Weights {
	if p.WText == nil && p.WTables == nil && p.WImages == nil {
		return nil
	}
	w := s.weights
	if p.WText != nil {
		w.Text = *p.WText
	}
	if p.WTables != nil {
		w.Tables = *p.WTables
	}
	if p.WImages != nil {
		w.Images = *p.WImages
	}
	return &w
}

// Search handles GET /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	topK, err := s.topK(params.TopK)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	weights := s.weightsOverride(params)

	var (
		res      result.Multi
		category string
	)
	if params.Category != nil && strings.TrimSpace(*params.Category) != "" {
		category = strings.TrimSpace(*params.Category)
		res, err = s.manuals.SearchByCategory(ctx, params.Query, category, topK, weights)
	} else {
		res, err = s.manuals.SearchAll(ctx, params.Query, topK, weights)
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{
		Query:    params.Query,
		Category: category,
		Multi:    res,
		Evidence: s.evidence.BuildMulti(res),
	})
}

// SearchManual handles GET /manuals/{product}/search.
func (s *Server) SearchManual(w http.ResponseWriter, r *http.Request) {
	product := chi.URLParam(r, "product")

	mm, err := s.manuals.Manual(product)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	params, err := bindSearchParams(r, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	topK, err := s.topK(params.TopK)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.manuals.SearchProduct(ctx, mm.Product.Name, params.Query, topK, s.weightsOverride(params))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, ManualSearchResponse{
		Query:    params.Query,
		Product:  mm.Product,
		Result:   res,
		Evidence: s.evidence.Build(mm.Product, res),
	})
}

// Image handles GET /images/{product}/{file}: one extracted page image of a manual.
func (s *Server) Image(w http.ResponseWriter, r *http.Request) {
	product := chi.URLParam(r, "product")
	file := chi.URLParam(r, "file")

	if !safeFilename(file) {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid image name")
		return
	}

	mm, err := s.manuals.Manual(product)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	f, err := os.Open(filepath.Join(mm.Product.ImagesDir(), file))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.requestLogger(r).Warn("Open image failed", zap.String("product", mm.Product.Name), zap.Error(err))
		}
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "image not found")
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "image not found")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// safeFilename accepts a single path element.
func safeFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set(headerEmbeddingTokens, strconv.Itoa(usage.TotalTokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// clientErrors carry caller input only, so their full text is safe to return.
var clientErrors = []error{
	domain.ErrInvalidRequest,
	domain.ErrProductNotFound,
	domain.ErrCategoryNotFound,
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range clientErrors {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	sentinels := []error{
		domain.ErrNoManuals,
		domain.ErrEmbeddingProviderError,
		domain.ErrVectorDimMismatch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// requestLogger carries request_id when the request came through WideEventLogger.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return logpkg.FromContextOr(r.Context(), s.logger)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := s.requestLogger(r)
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
