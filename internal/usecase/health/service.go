package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the search engine is unreachable.
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

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 3 * time.Second

const searchEngine = "search_engine"

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type component struct {
	name    string
	checker Checker
}

// Service coordinates health checks. A failing search engine makes the
// service Unhealthy; any other failing component makes it Degraded.
type Service struct {
	engine     Checker
	components []component
	timeout    time.Duration
}

// New creates a Service around the search engine check.
func New(engine Checker) *Service {
	return &Service{engine: engine, timeout: DefaultCheckTimeout}
}

// WithComponent adds an optional dependency. nil checkers are ignored.
func (s *Service) WithComponent(name string, c Checker) *Service {
	if c != nil {
		s.components = append(s.components, component{name: name, checker: c})
	}
	return s
}

// Check runs all checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	all := append([]component{{name: searchEngine, checker: s.engine}}, s.components...)
	results := make([]CheckResult, len(all))

	var wg sync.WaitGroup
	for i, c := range all {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := c.checker.HealthCheck(cctx); err != nil {
				results[i] = CheckError
				return
			}
			results[i] = CheckOK
		}()
	}
	wg.Wait()

	checks := make(map[string]CheckResult, len(all))
	status := Healthy
	for i, c := range all {
		checks[c.name] = results[i]
		if results[i] != CheckError {
			continue
		}
		if c.name == searchEngine {
			status = Unhealthy
		} else if status == Healthy {
			status = Degraded
		}
	}

	return Report{Status: status, Checks: checks}
}
