package teardown

import (
	"errors"
	"time"

	"github.com/letsgo-sh/ops/pkg/types"
)

// errNotProcessed marks a selected category that produced no outcome.
var errNotProcessed = errors.New("not processed")

// RunMeta describes the run a report belongs to.
type RunMeta struct {
	RunID      string
	Region     string
	Deployment string
	Durable    bool
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Summarize builds the final report for a run. Categories appear sorted by
// name. A selected category with no outcome is reported as failed, and
// outcomes for categories outside the selection are dropped.
func Summarize(meta RunMeta, selection types.SelectionSet, outcomes []types.CategoryOutcome) *types.RunReport {
	byCategory := make(map[types.ArtifactCategory]types.CategoryOutcome, len(outcomes))
	for _, o := range outcomes {
		if selection.Has(o.Category) {
			byCategory[o.Category] = o
		}
	}

	report := &types.RunReport{
		RunID:      meta.RunID,
		Region:     meta.Region,
		Deployment: meta.Deployment,
		Durable:    meta.Durable,
		DryRun:     meta.DryRun,
		StartedAt:  meta.StartedAt,
		FinishedAt: meta.FinishedAt,
		Categories: make([]types.CategoryOutcome, 0, len(selection)),
	}
	for _, c := range selection.Categories() {
		o, ok := byCategory[c]
		if !ok {
			o = types.CategoryOutcome{
				Category: c,
				Status:   types.CategoryStatusFailed,
				Note:     errNotProcessed.Error(),
				Errs:     []error{&types.OperationError{Category: c, Step: "run", Err: errNotProcessed}},
			}
		}
		if o.Failed() && len(o.Errs) == 0 {
			o.Errs = []error{&types.OperationError{Category: c, Step: "run", Err: errors.New("failed")}}
		}
		o.Errors = make([]string, 0, len(o.Errs))
		for _, err := range o.Errs {
			o.Errors = append(o.Errors, err.Error())
		}
		if len(o.Errors) == 0 {
			o.Errors = nil
		}
		report.Categories = append(report.Categories, o)
	}
	return report
}
