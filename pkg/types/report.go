package types

import (
	"sort"
	"time"
)

// StepStatus is the settled state of a single teardown step.
type StepStatus string

const (
	StepStatusSucceeded StepStatus = "succeeded"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// CategoryStatus is the settled state of a whole category.
type CategoryStatus string

const (
	CategoryStatusSucceeded CategoryStatus = "succeeded"
	CategoryStatusFailed    CategoryStatus = "failed"
	CategoryStatusSkipped   CategoryStatus = "skipped"
)

// StepResult records one named operation performed for a category.
type StepResult struct {
	// Name is the operation, e.g. "delete-registry"
	Name string `json:"name" yaml:"name"`

	// Target is the resource the step acted on, when there is one
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	Status StepStatus `json:"status" yaml:"status"`

	// Detail is free-form information such as counts or skip reasons
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`

	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// CategoryOutcome is the result of processing one selected category.
type CategoryOutcome struct {
	Category ArtifactCategory `json:"category" yaml:"category"`
	Status   CategoryStatus   `json:"status" yaml:"status"`
	Steps    []StepResult     `json:"steps,omitempty" yaml:"steps,omitempty"`
	Note     string           `json:"note,omitempty" yaml:"note,omitempty"`

	// Errs holds the failures behind a failed status. They are rendered
	// into Errors for serialization.
	Errs   []error  `json:"-" yaml:"-"`
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Failed reports whether the category failed.
func (o CategoryOutcome) Failed() bool {
	return o.Status == CategoryStatusFailed
}

// RunReport describes what a teardown run processed. It is built once, at the
// end of a run, and not modified afterwards.
type RunReport struct {
	RunID      string            `json:"run_id" yaml:"run_id"`
	Region     string            `json:"region" yaml:"region"`
	Deployment string            `json:"deployment" yaml:"deployment"`
	Durable    bool              `json:"durable" yaml:"durable"`
	DryRun     bool              `json:"dry_run" yaml:"dry_run"`
	StartedAt  time.Time         `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time         `json:"finished_at" yaml:"finished_at"`
	Categories []CategoryOutcome `json:"categories" yaml:"categories"`
}

// Processed returns the categories that were attempted, sorted by name.
func (r *RunReport) Processed() []ArtifactCategory {
	out := make([]ArtifactCategory, 0, len(r.Categories))
	for _, c := range r.Categories {
		out = append(out, c.Category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Outcome returns the outcome recorded for c.
func (r *RunReport) Outcome(c ArtifactCategory) (CategoryOutcome, bool) {
	for _, o := range r.Categories {
		if o.Category == c {
			return o, true
		}
	}
	return CategoryOutcome{}, false
}

// FailedCategories returns the categories that failed, sorted by name.
func (r *RunReport) FailedCategories() []ArtifactCategory {
	var out []ArtifactCategory
	for _, c := range r.Categories {
		if c.Failed() {
			out = append(out, c.Category)
		}
	}
	return out
}

// Failed reports whether any category failed.
func (r *RunReport) Failed() bool {
	return len(r.FailedCategories()) > 0
}

// Err returns an *AggregateError when any category failed, nil otherwise.
func (r *RunReport) Err() error {
	failed := r.FailedCategories()
	if len(failed) == 0 {
		return nil
	}
	var errs []error
	for _, c := range r.Categories {
		if c.Failed() {
			errs = append(errs, c.Errs...)
		}
	}
	return &AggregateError{Failed: failed, Errs: errs}
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
