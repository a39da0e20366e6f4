package teardown

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// FakeCall records one call made to a FakeCloud. Start and End are taken from
// a counter shared by all calls, so comparing them orders calls across
// goroutines.
type FakeCall struct {
	Operation string
	Region    string
	Component string
	Target    string
	Start     int64
	End       int64

	// Gone is set when the target had already been deleted.
	Gone bool
	Err  error
}

// FakeCloud implements Cloud in memory for tests. Deleting a resource twice
// succeeds, the way the real provider treats absence.
type FakeCloud struct {
	mu       sync.Mutex
	seq      atomic.Int64
	calls    []FakeCall
	deleted  map[string]bool
	failures map[string]error

	// Instances holds the services returned by ListServiceInstances, keyed
	// by component. Deleted instances are removed.
	Instances map[string][]ServiceInstance

	// ConfigEntries holds the configuration entry count per deployment.
	ConfigEntries map[string]int

	// Delay is applied to every call to widen concurrency windows.
	Delay time.Duration
}

// NewFakeCloud creates an empty FakeCloud.
func NewFakeCloud() *FakeCloud {
	return &FakeCloud{
		deleted:       make(map[string]bool),
		failures:      make(map[string]error),
		Instances:     make(map[string][]ServiceInstance),
		ConfigEntries: make(map[string]int),
	}
}

// FailOn makes operation fail with err for target. An empty target matches
// every target.
func (f *FakeCloud) FailOn(operation, target string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[operation+"/"+target] = err
}

// ClearFailures removes every injected failure.
func (f *FakeCloud) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]error)
}

// Calls returns the recorded calls in completion order.
func (f *FakeCloud) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}

// CallsFor returns the recorded calls of one operation.
func (f *FakeCloud) CallsFor(operation string) []FakeCall {
	var out []FakeCall
	for _, c := range f.Calls() {
		if c.Operation == operation {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls but keeps the deleted state.
func (f *FakeCloud) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *FakeCloud) do(ctx context.Context, call FakeCall, fn func() error) error {
	call.Start = f.seq.Add(1)
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	err := f.failures[call.Operation+"/"+call.Target]
	if err == nil {
		err = f.failures[call.Operation+"/"]
	}
	if err == nil {
		key := call.Operation + "/" + call.Target
		call.Gone = f.deleted[key]
		if fn != nil {
			err = fn()
		}
		if err == nil && call.Operation != StepListInstances {
			f.deleted[key] = true
		}
	}
	call.Err = err
	call.End = f.seq.Add(1)
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	return err
}

func (f *FakeCloud) ListServiceInstances(ctx context.Context, region, deployment, component string) ([]ServiceInstance, error) {
	var out []ServiceInstance
	err := f.do(ctx, FakeCall{Operation: StepListInstances, Region: region, Component: component, Target: component}, func() error {
		out = append(out, f.Instances[component]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *FakeCloud) DeleteServiceInstance(ctx context.Context, region, component string, instance ServiceInstance) error {
	return f.do(ctx, FakeCall{Operation: StepDeleteInstance, Region: region, Component: component, Target: instance.Name}, func() error {
		remaining := f.Instances[component][:0:0]
		for _, i := range f.Instances[component] {
			if i.ARN != instance.ARN {
				remaining = append(remaining, i)
			}
		}
		f.Instances[component] = remaining
		return nil
	})
}

func (f *FakeCloud) DeleteRegistry(ctx context.Context, region, repository string) error {
	return f.do(ctx, FakeCall{Operation: StepDeleteRegistry, Region: region, Target: repository}, nil)
}

func (f *FakeCloud) DeleteAutoScalingConfig(ctx context.Context, region, name string) error {
	return f.do(ctx, FakeCall{Operation: StepDeleteAutoScaling, Region: region, Target: name}, nil)
}

func (f *FakeCloud) DeleteRoleAndPolicy(ctx context.Context, roleName, _ string) error {
	return f.do(ctx, FakeCall{Operation: StepDeleteRole, Target: roleName}, nil)
}

func (f *FakeCloud) DeleteFunction(ctx context.Context, region, functionName string) error {
	return f.do(ctx, FakeCall{Operation: StepDeleteFunction, Region: region, Target: functionName}, nil)
}

func (f *FakeCloud) DeleteQueue(ctx context.Context, region, deployment string) error {
	return f.do(ctx, FakeCall{Operation: StepDeleteQueue, Region: region, Target: deployment}, nil)
}

func (f *FakeCloud) DeleteConfigEntries(ctx context.Context, region, deployment string) (int, error) {
	var n int
	err := f.do(ctx, FakeCall{Operation: StepDeleteConfig, Region: region, Target: deployment}, func() error {
		n = f.ConfigEntries[deployment]
		f.ConfigEntries[deployment] = 0
		return nil
	})
	return n, err
}

func (f *FakeCloud) DeleteDataStore(ctx context.Context, region, deployment string, settings DataStoreSettings) error {
	return f.do(ctx, FakeCall{Operation: StepDeleteDataStore, Region: region, Target: settings.TableName(deployment)}, nil)
}

var _ Cloud = (*FakeCloud)(nil)
