package health

import (
	"context"

	"github.com/kailas-cloud/manualrag/internal/domain/search/result"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure or substring-only search.
	Degraded Status = "degraded"
	// Unhealthy indicates no manual can be searched.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check names.
const (
	CheckEmbeddingText  = "embedding_text"
	CheckEmbeddingImage = "embedding_image"
	CheckCache          = "cache"
	CheckManuals        = "manuals"
)

// Report aggregates health check results.
type Report struct {
	Status  Status
	Mode    result.Mode
	Manuals int
	Checks  map[string]CheckResult
}

// Deps lists the components to check. Nil embedders and a nil cache are skipped:
// embedders are absent in substring mode, the cache is optional.
type Deps struct {
	TextEmbedding  EmbeddingChecker
	ImageEmbedding EmbeddingChecker
	Cache          CachePinger
	Manuals        ManualCounter
	Mode           result.Mode
}

// Service coordinates health checks.
type Service struct {
	deps Deps
}

// New creates a Service.
func New(deps Deps) *Service {
	return &Service{deps: deps}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.deps.TextEmbedding != nil {
		checks[CheckEmbeddingText] = outcome(s.deps.TextEmbedding.HealthCheck(ctx))
	}
	if s.deps.ImageEmbedding != nil {
		checks[CheckEmbeddingImage] = outcome(s.deps.ImageEmbedding.HealthCheck(ctx))
	}
	if s.deps.Cache != nil {
		checks[CheckCache] = outcome(s.deps.Cache.Ping(ctx))
	}

	manuals := 0
	if s.deps.Manuals != nil {
		manuals = s.deps.Manuals.Len()
	}
	checks[CheckManuals] = CheckOK
	if manuals == 0 {
		checks[CheckManuals] = CheckError
	}

	status := Healthy
	if s.deps.Mode == result.ModeSubstring {
		status = Degraded
	}
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if manuals == 0 {
		status = Unhealthy
	}

	return Report{Status: status, Mode: s.deps.Mode, Manuals: manuals, Checks: checks}
}

func outcome(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
