package teardown

import (
	"context"
	"errors"
)

// ErrNotFound may be returned, or wrapped, by a Cloud delete whose target is
// already gone. The step is then recorded as succeeded.
var ErrNotFound = errors.New("resource not found")

// ServiceInstance is a running compute service found for a deployment.
type ServiceInstance struct {
	ARN    string `json:"arn"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// Cloud is the set of cloud operations teardown relies on.
//
// Every delete must treat an already-absent resource as success, either by
// returning nil or ErrNotFound, so a run can be repeated after a partial
// failure. Retries for transient errors belong to
// the implementation.
type Cloud interface {
	// ListServiceInstances returns the compute services tagged with the
	// deployment and component.
	ListServiceInstances(ctx context.Context, region, deployment, component string) ([]ServiceInstance, error)

	// DeleteServiceInstance deletes a compute service and waits until it is
	// gone.
	DeleteServiceInstance(ctx context.Context, region, component string, instance ServiceInstance) error

	// DeleteRegistry deletes an image repository together with its images.
	DeleteRegistry(ctx context.Context, region, repository string) error

	// DeleteAutoScalingConfig deletes every unused revision of the named
	// autoscaling configuration.
	DeleteAutoScalingConfig(ctx context.Context, region, name string) error

	// DeleteRoleAndPolicy deletes an inline policy and then its role.
	DeleteRoleAndPolicy(ctx context.Context, roleName, policyName string) error

	// DeleteFunction deletes the worker function and its event source
	// mappings.
	DeleteFunction(ctx context.Context, region, functionName string) error

	// DeleteQueue deletes the deployment's worker queue and dead-letter queue.
	DeleteQueue(ctx context.Context, region, deployment string) error

	// DeleteConfigEntries deletes every configuration entry of the deployment
	// and returns how many were removed.
	DeleteConfigEntries(ctx context.Context, region, deployment string) (int, error)

	// DeleteDataStore deletes the deployment's table.
	DeleteDataStore(ctx context.Context, region, deployment string, settings DataStoreSettings) error
}

// ServiceSettings names the resources owned by one compute component.
type ServiceSettings interface {
	Name() string
	RegistryName(deployment string) string
	AutoScalingConfigName(deployment string) string
	RoleName(region, deployment string) string
	PolicyName(region, deployment string) string
}

// WorkerSettings names the resources owned by the worker.
type WorkerSettings interface {
	FunctionName(deployment string) string
	RegistryName(deployment string) string
	RoleName(region, deployment string) string
	PolicyName(region, deployment string) string
}

// DataStoreSettings names the durable table.
type DataStoreSettings interface {
	TableName(deployment string) string
}

// Settings groups the naming providers of every category.
type Settings struct {
	Web       ServiceSettings
	API       ServiceSettings
	Worker    WorkerSettings
	DataStore DataStoreSettings
}

// Request is the immutable input shared by every deleter in a run.
type Request struct {
	Region     string
	Deployment string

	// Durable enables deletion of durable data: the table, queues and
	// image repositories.
	Durable bool
}
