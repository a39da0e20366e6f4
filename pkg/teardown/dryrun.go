package teardown

import (
	"context"
	"sync"

	"github.com/letsgo-sh/ops/pkg/log"
)

// PlannedOperation is a delete a DryRunCloud would have performed.
type PlannedOperation struct {
	Operation string `json:"operation"`
	Region    string `json:"region,omitempty"`
	Target    string `json:"target"`
}

// DryRunCloud is a Cloud that deletes nothing. Deletes are logged and
// recorded; listing is forwarded to an optional read-only source so the plan
// shows the services that exist.
type DryRunCloud struct {
	source Cloud
	logger log.Logger

	mu      sync.Mutex
	planned []PlannedOperation
}

// NewDryRunCloud creates a DryRunCloud. source may be nil.
func NewDryRunCloud(source Cloud, logger log.Logger) *DryRunCloud {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &DryRunCloud{
		source: source,
		logger: logger.WithComponent("dry-run"),
	}
}

// Planned returns the operations recorded so far, in call order.
func (c *DryRunCloud) Planned() []PlannedOperation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]PlannedOperation(nil), c.planned...)
}

func (c *DryRunCloud) plan(op, region, target string) {
	c.logger.Info("Would delete", log.Str("operation", op), log.Region(region), log.Str("target", target))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.planned = append(c.planned, PlannedOperation{Operation: op, Region: region, Target: target})
}

func (c *DryRunCloud) ListServiceInstances(ctx context.Context, region, deployment, component string) ([]ServiceInstance, error) {
	if c.source == nil {
		return nil, nil
	}
	return c.source.ListServiceInstances(ctx, region, deployment, component)
}

func (c *DryRunCloud) DeleteServiceInstance(_ context.Context, region, _ string, instance ServiceInstance) error {
	c.plan(StepDeleteInstance, region, instance.Name)
	return nil
}

func (c *DryRunCloud) DeleteRegistry(_ context.Context, region, repository string) error {
	c.plan(StepDeleteRegistry, region, repository)
	return nil
}

func (c *DryRunCloud) DeleteAutoScalingConfig(_ context.Context, region, name string) error {
	c.plan(StepDeleteAutoScaling, region, name)
	return nil
}

func (c *DryRunCloud) DeleteRoleAndPolicy(_ context.Context, roleName, _ string) error {
	c.plan(StepDeleteRole, "", roleName)
	return nil
}

func (c *DryRunCloud) DeleteFunction(_ context.Context, region, functionName string) error {
	c.plan(StepDeleteFunction, region, functionName)
	return nil
}

func (c *DryRunCloud) DeleteQueue(_ context.Context, region, deployment string) error {
	c.plan(StepDeleteQueue, region, deployment)
	return nil
}

func (c *DryRunCloud) DeleteConfigEntries(_ context.Context, region, deployment string) (int, error) {
	c.plan(StepDeleteConfig, region, deployment)
	return 0, nil
}

func (c *DryRunCloud) DeleteDataStore(_ context.Context, region, deployment string, settings DataStoreSettings) error {
	c.plan(StepDeleteDataStore, region, settings.TableName(deployment))
	return nil
}

var _ Cloud = (*DryRunCloud)(nil)
