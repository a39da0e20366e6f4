// Package teardown removes the resources of a deployment in dependency
// order.
//
// Categories run in three stages. The compute services (web and api) go
// first, then the worker, then configuration and the data store. Categories
// inside a stage run concurrently and a stage starts only after the previous
// one has fully settled. A failing category never stops later stages; every
// failure is collected into the final report.
package teardown

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/letsgo-sh/ops/pkg/log"
	"github.com/letsgo-sh/ops/pkg/metrics"
	"github.com/letsgo-sh/ops/pkg/types"
)

// Stages lists the categories of each stage in execution order.
var Stages = [][]types.ArtifactCategory{
	{types.CategoryWeb, types.CategoryAPI},
	{types.CategoryWorker},
	{types.CategoryConfiguration, types.CategoryDB},
}

// DefaultMaxParallel bounds concurrent service deletions in one category.
const DefaultMaxParallel = 8

// Orchestrator runs teardowns against a Cloud.
type Orchestrator struct {
	cloud       Cloud
	settings    Settings
	logger      log.Logger
	reporter    Reporter
	metrics     *metrics.Recorder
	maxParallel int
	dryRun      bool
	now         func() time.Time
	newRunID    func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithReporter sets the per-step progress callback. It defaults to logging
// each step.
func WithReporter(reporter Reporter) Option {
	return func(o *Orchestrator) {
		o.reporter = reporter
	}
}

// WithMetrics records operation metrics on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.metrics = r
	}
}

// WithMaxParallel bounds concurrent service deletions in one category.
func WithMaxParallel(n int) Option {
	return func(o *Orchestrator) {
		o.maxParallel = n
	}
}

// WithDryRun marks reports as dry runs. It does not change the Cloud; pair it
// with a DryRunCloud.
func WithDryRun(dryRun bool) Option {
	return func(o *Orchestrator) {
		o.dryRun = dryRun
	}
}

// WithClock replaces time.Now for report and step timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithRunID replaces the run identifier generator.
func WithRunID(fn func() string) Option {
	return func(o *Orchestrator) {
		o.newRunID = fn
	}
}

// New creates an Orchestrator.
func New(cloud Cloud, settings Settings, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cloud:       cloud,
		settings:    settings,
		logger:      log.GetDefaultLogger(),
		maxParallel: DefaultMaxParallel,
		now:         time.Now,
		newRunID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.WithComponent("teardown")
	if o.reporter == nil {
		o.reporter = LogReporter(o.logger)
	}
	return o
}

// Teardown validates requested and removes the selected categories from the
// deployment. An unknown category fails the call before anything is deleted.
// When any category fails the report is returned together with a
// *types.AggregateError.
func (o *Orchestrator) Teardown(ctx context.Context, requested []string, region, deployment string, durable bool) (*types.RunReport, error) {
	selection, err := Select(requested, types.Catalog)
	if err != nil {
		return nil, err
	}

	report := o.Run(ctx, selection, Request{
		Region:     region,
		Deployment: deployment,
		Durable:    durable,
	})
	return report, report.Err()
}

// Run removes every category in selection, stage by stage, and reports the
// outcome. Categories outside selection are never touched.
func (o *Orchestrator) Run(ctx context.Context, selection types.SelectionSet, req Request) *types.RunReport {
	meta := RunMeta{
		RunID:      o.newRunID(),
		Region:     req.Region,
		Deployment: req.Deployment,
		Durable:    req.Durable,
		DryRun:     o.dryRun,
		StartedAt:  o.now(),
	}
	logger := o.logger.With(log.RunID(meta.RunID), log.Region(req.Region), log.Deployment(req.Deployment))

	if selection.Empty() {
		logger.Debug("Nothing selected for removal")
		meta.FinishedAt = o.now()
		return Summarize(meta, selection, nil)
	}

	logger.Info("Starting teardown",
		log.Str("categories", selection.String()),
		log.Bool("durable", req.Durable),
		log.Bool("dry_run", o.dryRun))

	e := &env{
		cloud:       o.cloud,
		reporter:    o.reporter,
		logger:      logger,
		metrics:     o.metrics,
		now:         o.now,
		maxParallel: o.maxParallel,
	}

	var outcomes []types.CategoryOutcome
	for i, stage := range Stages {
		var deleters []CategoryDeleter
		for _, c := range stage {
			if selection.Has(c) {
				deleters = append(deleters, o.deleterFor(c, e))
			}
		}
		if len(deleters) == 0 {
			continue
		}

		logger.Debug("Running stage", log.Int("stage", i+1), log.Int("categories", len(deleters)))
		outcomes = append(outcomes, o.runStage(ctx, deleters, req)...)
	}

	meta.FinishedAt = o.now()
	report := Summarize(meta, selection, outcomes)

	for _, c := range report.Categories {
		o.metrics.ObserveCategory(string(c.Category), string(c.Status))
	}
	o.metrics.ObserveRun(report.Failed())

	if report.Failed() {
		logger.Warn("Teardown finished with failures",
			log.Strs("failed", types.CatalogNames(report.FailedCategories())),
			log.Duration("took", report.Duration()))
	} else {
		logger.Info("Teardown finished", log.Duration("took", report.Duration()))
	}
	return report
}

// runStage runs deleters concurrently and returns their outcomes in order.
func (o *Orchestrator) runStage(ctx context.Context, deleters []CategoryDeleter, req Request) []types.CategoryOutcome {
	outcomes := make([]types.CategoryOutcome, len(deleters))
	tasks := make([]Task, len(deleters))
	for i, d := range deleters {
		i, d := i, d
		tasks[i] = Task{
			Name: string(d.Category()),
			Run: func(ctx context.Context) error {
				outcomes[i] = d.Delete(ctx, req)
				return nil
			},
		}
	}

	for i, s := range RunSettled(ctx, 0, tasks...) {
		if s.Err == nil {
			continue
		}
		c := deleters[i].Category()
		outcomes[i] = types.CategoryOutcome{
			Category: c,
			Status:   types.CategoryStatusFailed,
			Errs:     []error{&types.OperationError{Category: c, Step: "run", Err: s.Err}},
		}
	}
	return outcomes
}

func (o *Orchestrator) deleterFor(c types.ArtifactCategory, e *env) CategoryDeleter {
	switch c {
	case types.CategoryWeb:
		return &computeDeleter{category: c, service: o.settings.Web, env: e}
	case types.CategoryAPI:
		return &computeDeleter{category: c, service: o.settings.API, env: e}
	case types.CategoryWorker:
		return &workerDeleter{worker: o.settings.Worker, env: e}
	case types.CategoryConfiguration:
		return &configurationDeleter{env: e}
	case types.CategoryDB:
		return &dataStoreDeleter{settings: o.settings.DataStore, env: e}
	default:
		panic(fmt.Sprintf("teardown: no deleter for category %q", c))
	}
}
