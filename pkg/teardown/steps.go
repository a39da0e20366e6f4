package teardown

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/letsgo-sh/ops/pkg/log"
	"github.com/letsgo-sh/ops/pkg/metrics"
	"github.com/letsgo-sh/ops/pkg/types"
)

// Step names recorded in a CategoryOutcome.
const (
	StepListInstances     = "list-instances"
	StepDeleteInstance    = "delete-instance"
	StepDeleteRegistry    = "delete-registry"
	StepDeleteAutoScaling = "delete-autoscaling-config"
	StepDeleteRole        = "delete-role"
	StepDeleteFunction    = "delete-function"
	StepDeleteQueue       = "delete-queue"
	StepDeleteConfig      = "delete-config"
	StepDeleteDataStore   = "delete-data-store"
)

const (
	alreadyGoneDetail     = "already gone"
	durableRetainedDetail = "durable data retained"
	durableRetainedNote   = "durable data retained (use --kill-data)"
)

// stepLog collects the steps of one category. Steps inside a category run
// concurrently, so every mutation holds mu.
type stepLog struct {
	category types.ArtifactCategory
	reporter Reporter
	logger   log.Logger
	metrics  *metrics.Recorder
	now      func() time.Time

	mu    sync.Mutex
	steps []types.StepResult
	errs  []error
}

func newStepLog(category types.ArtifactCategory, env *env) *stepLog {
	return &stepLog{
		category: category,
		reporter: env.reporter,
		logger:   env.logger.With(log.Category(string(category))),
		metrics:  env.metrics,
		now:      env.now,
	}
}

// report forwards a progress line to the reporter.
func (l *stepLog) report(step string) {
	l.reporter(l.category, step)
}

// run executes fn as the named step against target and records its result.
// fn may return a detail string describing what it did.
func (l *stepLog) run(ctx context.Context, name, target string, fn func(ctx context.Context) (string, error)) error {
	started := l.now()
	detail, err := fn(ctx)
	finished := l.now()
	if errors.Is(err, ErrNotFound) {
		detail, err = alreadyGoneDetail, nil
	}

	result := types.StepResult{
		Name:       name,
		Target:     target,
		Status:     types.StepStatusSucceeded,
		Detail:     detail,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if err != nil {
		err = &types.OperationError{Category: l.category, Step: name, Target: target, Err: err}
		result.Status = types.StepStatusFailed
		result.Error = err.Error()
		l.logger.Error("Step failed", log.Step(name), log.Str("target", target), log.Err(err))
	} else {
		l.logger.Debug("Step completed", log.Step(name), log.Str("target", target),
			log.Duration("took", finished.Sub(started)))
	}
	l.metrics.ObserveOperation(string(l.category), name, string(result.Status), finished.Sub(started))

	l.mu.Lock()
	l.steps = append(l.steps, result)
	if err != nil {
		l.errs = append(l.errs, err)
	}
	l.mu.Unlock()

	return err
}

// skip records a step that was intentionally not performed.
func (l *stepLog) skip(name, target, reason string) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, types.StepResult{
		Name:       name,
		Target:     target,
		Status:     types.StepStatusSkipped,
		Detail:     reason,
		StartedAt:  now,
		FinishedAt: now,
	})
}

// fail records an error that did not come from a named step, such as a
// panicking task.
func (l *stepLog) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

func (l *stepLog) failed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errs) > 0
}

// absorb records settlements that failed without going through run.
func (l *stepLog) absorb(settlements []Settlement) {
	for _, s := range Failed(settlements) {
		var opErr *types.OperationError
		if errors.As(s.Err, &opErr) {
			continue
		}
		l.fail(&types.OperationError{Category: l.category, Step: s.Name, Err: s.Err})
	}
}

// outcome builds the category outcome from the recorded steps.
func (l *stepLog) outcome() types.CategoryOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := types.CategoryOutcome{
		Category: l.category,
		Status:   types.CategoryStatusSucceeded,
		Steps:    append([]types.StepResult(nil), l.steps...),
		Errs:     append([]error(nil), l.errs...),
	}
	if len(l.errs) > 0 {
		out.Status = types.CategoryStatusFailed
	}
	return out
}
