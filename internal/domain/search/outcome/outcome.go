package outcome

import (
	"time"

	"github.com/kailas-cloud/searchlens/internal/domain"
	"github.com/kailas-cloud/searchlens/internal/domain/search/result"
)

// Stage names a pipeline step.
type Stage string

// Pipeline stages in execution order.
const (
	StageValidate  Stage = "validate"
	StageEmbed     Stage = "embed"
	StageSearch    Stage = "search"
	StageNormalize Stage = "normalize"
	StageEnrich    Stage = "enrich"
	StageDone      Stage = "done"
)

// Timings holds per-stage wall-clock durations.
type Timings struct {
	Embed     time.Duration `json:"embed"`
	Search    time.Duration `json:"search"`
	Normalize time.Duration `json:"normalize"`
	Enrich    time.Duration `json:"enrich"`
}

// Outcome is the result of one pipeline run.
// ElapsedMillis covers embedding, search, and normalization; enrichment is in Timings.Enrich.
type Outcome struct {
	Results       []result.Enriched    `json:"results"`
	ElapsedMillis float64              `json:"elapsed_ms"`
	Succeeded     bool                 `json:"succeeded"`
	ErrorMessage  string               `json:"error,omitempty"`
	FailedAt      Stage                `json:"failed_at,omitempty"`
	Timings       Timings              `json:"timings"`
	Usage         domain.UsageSnapshot `json:"usage"`

	cause error
}

// Empty is the outcome of a blank query: nothing searched, nothing failed.
func Empty() Outcome {
	return Outcome{Results: []result.Enriched{}, Succeeded: true}
}

// Failed builds an outcome for an aborted run. The error message is surfaced verbatim.
func Failed(stage Stage, err error, elapsed time.Duration, timings Timings) Outcome {
	return Outcome{
		Results:       []result.Enriched{},
		ElapsedMillis: Millis(elapsed),
		Succeeded:     false,
		ErrorMessage:  err.Error(),
		FailedAt:      stage,
		Timings:       timings,
		cause:         err,
	}
}

// Succeeded builds an outcome for a completed run.
func Succeeded(results []result.Enriched, elapsed time.Duration, timings Timings) Outcome {
	if results == nil {
		results = []result.Enriched{}
	}
	return Outcome{
		Results:       results,
		ElapsedMillis: Millis(elapsed),
		Succeeded:     true,
		Timings:       timings,
	}
}

// Err returns the error that aborted the run, or nil.
func (o Outcome) Err() error { return o.cause }

// Millis converts a duration to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
