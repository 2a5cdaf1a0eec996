package outcome

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/searchlens/internal/domain"
)

func TestEmpty(t *testing.T) {
	o := Empty()
	if !o.Succeeded {
		t.Error("Succeeded = false")
	}
	if o.Results == nil || len(o.Results) != 0 {
		t.Errorf("Results = %v, want empty non-nil", o.Results)
	}
	if o.ElapsedMillis != 0 {
		t.Errorf("ElapsedMillis = %f", o.ElapsedMillis)
	}
}

func TestFailed(t *testing.T) {
	err := errors.Join(domain.ErrSearch, errors.New("connection refused"))
	o := Failed(StageSearch, err, 1500*time.Microsecond, Timings{})

	if o.Succeeded {
		t.Error("Succeeded = true")
	}
	if o.ErrorMessage != err.Error() {
		t.Errorf("ErrorMessage = %q", o.ErrorMessage)
	}
	if !errors.Is(o.Err(), domain.ErrSearch) {
		t.Errorf("Err() = %v", o.Err())
	}
	if o.FailedAt != StageSearch {
		t.Errorf("FailedAt = %q", o.FailedAt)
	}
	if o.ElapsedMillis != 1.5 {
		t.Errorf("ElapsedMillis = %f, want 1.5", o.ElapsedMillis)
	}
	if len(o.Results) != 0 {
		t.Errorf("Results = %v", o.Results)
	}
}

func TestSucceeded_NilResults(t *testing.T) {
	o := Succeeded(nil, time.Millisecond, Timings{})
	if o.Results == nil {
		t.Error("Results should be non-nil")
	}
	if o.Err() != nil {
		t.Errorf("Err() = %v", o.Err())
	}
}
