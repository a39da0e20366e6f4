package teardown

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsgo-sh/ops/pkg/log"
	"github.com/letsgo-sh/ops/pkg/metrics"
	"github.com/letsgo-sh/ops/pkg/naming"
	"github.com/letsgo-sh/ops/pkg/types"
)

const (
	testRegion     = "us-west-2"
	testDeployment = "main"
)

func testSettings() Settings {
	n := naming.New(naming.DefaultPrefix)
	return Settings{
		Web:       n.Service("web"),
		API:       n.Service("api"),
		Worker:    n.Worker(),
		DataStore: n.DataStore(),
	}
}

func newTestCloud() *FakeCloud {
	cloud := NewFakeCloud()
	cloud.Instances["api"] = []ServiceInstance{
		{ARN: "arn:aws:apprunner:us-west-2:1:service/api-1", Name: "letsgo-main-api-1"},
		{ARN: "arn:aws:apprunner:us-west-2:1:service/api-2", Name: "letsgo-main-api-2"},
	}
	cloud.Instances["web"] = []ServiceInstance{
		{ARN: "arn:aws:apprunner:us-west-2:1:service/web-1", Name: "letsgo-main-web-1"},
	}
	cloud.ConfigEntries[testDeployment] = 5
	return cloud
}

type stepRecorder struct {
	mu    sync.Mutex
	steps map[types.ArtifactCategory][]string
}

func (r *stepRecorder) report(c types.ArtifactCategory, step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.steps == nil {
		r.steps = make(map[types.ArtifactCategory][]string)
	}
	r.steps[c] = append(r.steps[c], step)
}

func newTestOrchestrator(cloud Cloud, opts ...Option) (*Orchestrator, *stepRecorder) {
	rec := &stepRecorder{}
	base := []Option{
		WithLogger(log.NewTestLogger()),
		WithReporter(rec.report),
		WithRunID(func() string { return "test-run" }),
	}
	return New(cloud, testSettings(), append(base, opts...)...), rec
}

// categoryOf attributes a fake call to the category that made it.
func categoryOf(c FakeCall) types.ArtifactCategory {
	switch c.Operation {
	case StepListInstances, StepDeleteInstance:
		return types.ArtifactCategory(c.Component)
	case StepDeleteFunction, StepDeleteQueue:
		return types.CategoryWorker
	case StepDeleteConfig:
		return types.CategoryConfiguration
	case StepDeleteDataStore:
		return types.CategoryDB
	}
	for _, cat := range []types.ArtifactCategory{types.CategoryAPI, types.CategoryWeb, types.CategoryWorker} {
		name := string(cat)
		if strings.HasSuffix(c.Target, "-"+name) || strings.Contains(c.Target, "-"+name+"-") {
			return cat
		}
	}
	return ""
}

func callsOf(calls []FakeCall, categories ...types.ArtifactCategory) []FakeCall {
	var out []FakeCall
	for _, c := range calls {
		for _, cat := range categories {
			if categoryOf(c) == cat {
				out = append(out, c)
			}
		}
	}
	return out
}

func callsWithOps(calls []FakeCall, ops ...string) []FakeCall {
	var out []FakeCall
	for _, c := range calls {
		for _, op := range ops {
			if c.Operation == op {
				out = append(out, c)
			}
		}
	}
	return out
}

func maxEnd(calls []FakeCall) int64 {
	var m int64
	for _, c := range calls {
		if c.End > m {
			m = c.End
		}
	}
	return m
}

func minStart(calls []FakeCall) int64 {
	var m int64 = -1
	for _, c := range calls {
		if m < 0 || c.Start < m {
			m = c.Start
		}
	}
	return m
}

func TestTeardownOnlyTouchesSelectedCategories(t *testing.T) {
	cloud := newTestCloud()
	o, _ := newTestOrchestrator(cloud)

	report, err := o.Teardown(context.Background(), []string{"api"}, testRegion, testDeployment, true)
	require.NoError(t, err)

	assert.Equal(t, []types.ArtifactCategory{types.CategoryAPI}, report.Processed())
	calls := cloud.Calls()
	require.NotEmpty(t, calls)
	for _, c := range calls {
		assert.Equal(t, types.CategoryAPI, categoryOf(c), "unexpected call %s %s", c.Operation, c.Target)
	}
	assert.Len(t, cloud.Instances["web"], 1)
}

func TestTeardownStagesAreBarriers(t *testing.T) {
	cloud := newTestCloud()
	cloud.Delay = 2 * time.Millisecond
	o, _ := newTestOrchestrator(cloud)

	_, err := o.Teardown(context.Background(), []string{"all"}, testRegion, testDeployment, true)
	require.NoError(t, err)
	calls := cloud.Calls()

	compute := callsOf(calls, types.CategoryAPI, types.CategoryWeb)
	worker := callsOf(calls, types.CategoryWorker)
	last := callsOf(calls, types.CategoryConfiguration, types.CategoryDB)
	require.NotEmpty(t, compute)
	require.NotEmpty(t, worker)
	require.Len(t, last, 2)

	assert.Less(t, maxEnd(compute), minStart(worker), "worker started before compute settled")
	assert.Less(t, maxEnd(worker), minStart(last), "configuration or db started before worker settled")

	for _, c := range []types.ArtifactCategory{types.CategoryAPI, types.CategoryWeb} {
		own := callsOf(calls, c)
		first := callsWithOps(own, StepListInstances, StepDeleteInstance, StepDeleteRegistry)
		second := callsWithOps(own, StepDeleteAutoScaling, StepDeleteRole)
		require.Len(t, second, 2)
		assert.Less(t, maxEnd(first), minStart(second), "%s: role or autoscaling removed while services remained", c)
	}

	fn := callsWithOps(worker, StepDeleteFunction)
	rest := callsWithOps(worker, StepDeleteRole, StepDeleteQueue, StepDeleteRegistry)
	require.Len(t, fn, 1)
	require.Len(t, rest, 3)
	assert.Less(t, fn[0].End, minStart(rest))
}

func TestTeardownKeepsDurableDataByDefault(t *testing.T) {
	cloud := newTestCloud()
	o, _ := newTestOrchestrator(cloud)

	report, err := o.Teardown(context.Background(), []string{"all"}, testRegion, testDeployment, false)
	require.NoError(t, err)

	assert.Empty(t, cloud.CallsFor(StepDeleteDataStore))
	assert.Empty(t, cloud.CallsFor(StepDeleteQueue))
	assert.Empty(t, cloud.CallsFor(StepDeleteRegistry))
	assert.Len(t, cloud.CallsFor(StepDeleteInstance), 3)
	assert.Len(t, cloud.CallsFor(StepDeleteConfig), 1)

	db, ok := report.Outcome(types.CategoryDB)
	require.True(t, ok)
	assert.Equal(t, types.CategoryStatusSkipped, db.Status)
	assert.Contains(t, db.Note, "--kill-data")

	worker, _ := report.Outcome(types.CategoryWorker)
	assert.Equal(t, types.CategoryStatusSucceeded, worker.Status)
	skipped := 0
	for _, s := range worker.Steps {
		if s.Status == types.StepStatusSkipped {
			skipped++
		}
	}
	assert.Equal(t, 2, skipped)
	assert.False(t, report.Failed())
}

func TestTeardownIsolatesFailures(t *testing.T) {
	cloud := newTestCloud()
	denied := errors.New("AccessDenied")
	apiRole := testSettings().API.RoleName(testRegion, testDeployment)
	cloud.FailOn(StepDeleteRole, apiRole, denied)
	o, _ := newTestOrchestrator(cloud)

	report, err := o.Teardown(context.Background(), []string{"all"}, testRegion, testDeployment, true)
	require.Error(t, err)

	var agg *types.AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Equal(t, []types.ArtifactCategory{types.CategoryAPI}, agg.Failed)
	assert.ErrorIs(t, err, denied)

	var opErr *types.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, StepDeleteRole, opErr.Step)
	assert.Equal(t, apiRole, opErr.Target)

	for _, c := range []types.ArtifactCategory{types.CategoryWeb, types.CategoryWorker, types.CategoryConfiguration, types.CategoryDB} {
		out, ok := report.Outcome(c)
		require.True(t, ok)
		assert.Equal(t, types.CategoryStatusSucceeded, out.Status, c)
	}
	assert.Len(t, cloud.CallsFor(StepDeleteDataStore), 1)
}

func TestTeardownContinuesAfterListFailure(t *testing.T) {
	cloud := newTestCloud()
	cloud.FailOn(StepListInstances, "web", errors.New("throttled"))
	o, _ := newTestOrchestrator(cloud)

	report, err := o.Teardown(context.Background(), []string{"web"}, testRegion, testDeployment, true)
	require.Error(t, err)

	web, _ := report.Outcome(types.CategoryWeb)
	assert.Equal(t, types.CategoryStatusFailed, web.Status)
	assert.Len(t, callsOf(cloud.CallsFor(StepDeleteAutoScaling), types.CategoryWeb), 1)
	assert.Len(t, callsOf(cloud.CallsFor(StepDeleteRole), types.CategoryWeb), 1)
	assert.Len(t, callsOf(cloud.CallsFor(StepDeleteRegistry), types.CategoryWeb), 1)
}

func TestTeardownIsIdempotent(t *testing.T) {
	cloud := newTestCloud()
	o, _ := newTestOrchestrator(cloud)
	ctx := context.Background()

	_, err := o.Teardown(ctx, []string{"all"}, testRegion, testDeployment, true)
	require.NoError(t, err)
	cloud.Reset()

	report, err := o.Teardown(ctx, []string{"all"}, testRegion, testDeployment, true)
	require.NoError(t, err)
	assert.False(t, report.Failed())

	assert.Empty(t, cloud.CallsFor(StepDeleteInstance))
	for _, c := range cloud.Calls() {
		if c.Operation == StepListInstances || c.Operation == StepDeleteConfig {
			continue
		}
		assert.True(t, c.Gone, "%s %s should already be gone", c.Operation, c.Target)
	}

	cfg, _ := report.Outcome(types.CategoryConfiguration)
	require.Len(t, cfg.Steps, 1)
	assert.Equal(t, "0 keys deleted", cfg.Steps[0].Detail)
}

func TestTeardownAPIAndWorkerWithoutDurableData(t *testing.T) {
	cloud := newTestCloud()
	o, rec := newTestOrchestrator(cloud)

	report, err := o.Teardown(context.Background(), []string{"api", "worker"}, testRegion, testDeployment, false)
	require.NoError(t, err)
	assert.Equal(t, []types.ArtifactCategory{types.CategoryAPI, types.CategoryWorker}, report.Processed())

	calls := cloud.Calls()
	api := callsOf(calls, types.CategoryAPI)
	worker := callsOf(calls, types.CategoryWorker)

	assert.Len(t, callsWithOps(api, StepDeleteInstance), 2)
	assert.Empty(t, callsWithOps(api, StepDeleteRegistry))
	assert.Len(t, callsWithOps(api, StepDeleteAutoScaling, StepDeleteRole), 2)

	assert.Len(t, callsWithOps(worker, StepDeleteFunction, StepDeleteRole), 2)
	assert.Empty(t, callsWithOps(worker, StepDeleteQueue, StepDeleteRegistry))
	assert.Less(t, maxEnd(api), minStart(worker))

	assert.Empty(t, callsOf(calls, types.CategoryWeb, types.CategoryConfiguration, types.CategoryDB))
	assert.Contains(t, rec.steps[types.CategoryAPI], "all service components except image repository were deleted")
	assert.Contains(t, rec.steps[types.CategoryAPI], "deleting 2 service(s)")
}

func TestTeardownEmptyRequest(t *testing.T) {
	cloud := newTestCloud()
	o, _ := newTestOrchestrator(cloud)

	report, err := o.Teardown(context.Background(), nil, testRegion, testDeployment, true)
	require.NoError(t, err)
	assert.Empty(t, report.Categories)
	assert.Empty(t, cloud.Calls())
}

func TestTeardownRejectsUnknownCategory(t *testing.T) {
	cloud := newTestCloud()
	o, _ := newTestOrchestrator(cloud)

	report, err := o.Teardown(context.Background(), []string{"api", "cache"}, testRegion, testDeployment, true)
	assert.Nil(t, report)
	assert.True(t, types.IsInvalidSelection(err))
	assert.Empty(t, cloud.Calls())
}

func TestTeardownAllDurable(t *testing.T) {
	cloud := newTestCloud()
	rec := metrics.NewRecorder()
	o, steps := newTestOrchestrator(cloud, WithMetrics(rec), WithMaxParallel(1))

	report, err := o.Teardown(context.Background(), []string{"all"}, testRegion, testDeployment, true)
	require.NoError(t, err)

	assert.Equal(t, "test-run", report.RunID)
	assert.True(t, report.Durable)
	assert.Len(t, report.Categories, 5)
	for _, c := range report.Categories {
		assert.Equal(t, types.CategoryStatusSucceeded, c.Status, c.Category)
	}

	assert.Len(t, cloud.CallsFor(StepDeleteRegistry), 3)
	assert.Len(t, cloud.CallsFor(StepDeleteRole), 3)
	assert.Len(t, cloud.CallsFor(StepDeleteAutoScaling), 2)
	assert.Len(t, cloud.CallsFor(StepDeleteQueue), 1)
	assert.Len(t, cloud.CallsFor(StepDeleteDataStore), 1)
	assert.Empty(t, cloud.Instances["api"])

	cfg, _ := report.Outcome(types.CategoryConfiguration)
	assert.Equal(t, "5 keys deleted", cfg.Steps[0].Detail)
	assert.Contains(t, steps.steps[types.CategoryConfiguration], "deleted 5 configuration keys")

	n, err := testutil.GatherAndCount(rec.Registry(), "letsgo_teardown_categories_total")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestTeardownWorkerContinuesAfterFunctionFailure(t *testing.T) {
	cloud := newTestCloud()
	busy := errors.New("ResourceConflictException")
	cloud.FailOn(StepDeleteFunction, "", busy)
	o, _ := newTestOrchestrator(cloud)

	report, err := o.Teardown(context.Background(), []string{"worker", "configuration"}, testRegion, testDeployment, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, busy)

	worker, _ := report.Outcome(types.CategoryWorker)
	assert.Equal(t, types.CategoryStatusFailed, worker.Status)
	rest := callsWithOps(callsOf(cloud.Calls(), types.CategoryWorker), StepDeleteRole, StepDeleteQueue, StepDeleteRegistry)
	assert.Len(t, rest, 3)
	for _, c := range rest {
		assert.NoError(t, c.Err, c.Operation)
	}

	cfg, _ := report.Outcome(types.CategoryConfiguration)
	assert.Equal(t, types.CategoryStatusSucceeded, cfg.Status)
}

func TestTeardownContinuesAfterWebRegistryFailure(t *testing.T) {
	cloud := newTestCloud()
	webRegistry := testSettings().Web.RegistryName(testDeployment)
	cloud.FailOn(StepDeleteRegistry, webRegistry, errors.New("RepositoryPolicyNotFound"))
	o, _ := newTestOrchestrator(cloud)

	report, err := o.Teardown(context.Background(), []string{"all"}, testRegion, testDeployment, true)
	require.Error(t, err)

	var agg *types.AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Equal(t, []types.ArtifactCategory{types.CategoryWeb}, agg.Failed)

	web, _ := report.Outcome(types.CategoryWeb)
	assert.Equal(t, types.CategoryStatusFailed, web.Status)
	assert.Len(t, callsWithOps(callsOf(cloud.Calls(), types.CategoryWeb), StepDeleteAutoScaling, StepDeleteRole), 2)

	api, _ := report.Outcome(types.CategoryAPI)
	assert.Equal(t, types.CategoryStatusSucceeded, api.Status)

	worker := callsOf(cloud.Calls(), types.CategoryWorker)
	assert.Len(t, callsWithOps(worker, StepDeleteFunction, StepDeleteRole, StepDeleteQueue, StepDeleteRegistry), 4)
	out, _ := report.Outcome(types.CategoryWorker)
	assert.Equal(t, types.CategoryStatusSucceeded, out.Status)
}

// panickingCloud panics while deleting a service instance.
type panickingCloud struct {
	*FakeCloud
}

func (panickingCloud) DeleteServiceInstance(context.Context, string, string, ServiceInstance) error {
	panic("connection reset")
}

func TestTeardownRecordsPanicOnce(t *testing.T) {
	cloud := newTestCloud()
	o, _ := newTestOrchestrator(panickingCloud{cloud})

	report, err := o.Teardown(context.Background(), []string{"web"}, testRegion, testDeployment, true)
	require.Error(t, err)

	web, _ := report.Outcome(types.CategoryWeb)
	assert.Equal(t, types.CategoryStatusFailed, web.Status)
	assert.Len(t, web.Errs, 1)
	assert.Contains(t, web.Errs[0].Error(), "connection reset")
	assert.Len(t, callsWithOps(cloud.Calls(), StepDeleteAutoScaling, StepDeleteRole), 2)
}

func TestTeardownTreatsNotFoundAsSuccess(t *testing.T) {
	cloud := newTestCloud()
	cloud.FailOn(StepDeleteQueue, "", fmt.Errorf("queue %s: %w", testDeployment, ErrNotFound))
	cloud.FailOn(StepDeleteDataStore, "", ErrNotFound)
	o, _ := newTestOrchestrator(cloud)

	report, err := o.Teardown(context.Background(), []string{"worker", "db"}, testRegion, testDeployment, true)
	require.NoError(t, err)

	for _, c := range []types.ArtifactCategory{types.CategoryWorker, types.CategoryDB} {
		out, _ := report.Outcome(c)
		assert.Equal(t, types.CategoryStatusSucceeded, out.Status, c)
	}
	db, _ := report.Outcome(types.CategoryDB)
	require.Len(t, db.Steps, 1)
	assert.Equal(t, types.StepStatusSucceeded, db.Steps[0].Status)
	assert.Equal(t, "already gone", db.Steps[0].Detail)
}
