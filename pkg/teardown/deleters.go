package teardown

import (
	"context"
	"fmt"
	"time"

	"github.com/letsgo-sh/ops/pkg/log"
	"github.com/letsgo-sh/ops/pkg/metrics"
	"github.com/letsgo-sh/ops/pkg/types"
)

// CategoryDeleter removes every resource belonging to one category.
type CategoryDeleter interface {
	Category() types.ArtifactCategory

	// Delete settles every step of the category and never returns early on
	// a failed step. The outcome carries the failures.
	Delete(ctx context.Context, req Request) types.CategoryOutcome
}

// env holds what every deleter of a run shares.
type env struct {
	cloud       Cloud
	reporter    Reporter
	logger      log.Logger
	metrics     *metrics.Recorder
	now         func() time.Time
	maxParallel int
}

// computeDeleter removes an App Runner component: its services, image
// repository, autoscaling configuration and role.
type computeDeleter struct {
	category types.ArtifactCategory
	service  ServiceSettings
	env      *env
}

func (d *computeDeleter) Category() types.ArtifactCategory { return d.category }

func (d *computeDeleter) Delete(ctx context.Context, req Request) types.CategoryOutcome {
	steps := newStepLog(d.category, d.env)
	cloud := d.env.cloud

	registry := d.service.RegistryName(req.Deployment)
	first := []Task{{
		Name: StepDeleteInstance,
		Run: func(ctx context.Context) error {
			return d.deleteInstances(ctx, steps, req)
		},
	}}
	if req.Durable {
		first = append(first, Task{
			Name: StepDeleteRegistry,
			Run: func(ctx context.Context) error {
				steps.report("deleting image repository " + registry)
				return steps.run(ctx, StepDeleteRegistry, registry, func(ctx context.Context) (string, error) {
					return "", cloud.DeleteRegistry(ctx, req.Region, registry)
				})
			},
		})
	} else {
		steps.skip(StepDeleteRegistry, registry, durableRetainedDetail)
	}
	steps.absorb(RunSettled(ctx, 0, first...))

	// Autoscaling configurations and roles stay in use until every service
	// referencing them is gone.
	scaling := d.service.AutoScalingConfigName(req.Deployment)
	role := d.service.RoleName(req.Region, req.Deployment)
	policy := d.service.PolicyName(req.Region, req.Deployment)
	steps.absorb(RunSettled(ctx, 0,
		Task{
			Name: StepDeleteAutoScaling,
			Run: func(ctx context.Context) error {
				steps.report("deleting autoscaling configuration " + scaling)
				return steps.run(ctx, StepDeleteAutoScaling, scaling, func(ctx context.Context) (string, error) {
					return "", cloud.DeleteAutoScalingConfig(ctx, req.Region, scaling)
				})
			},
		},
		Task{
			Name: StepDeleteRole,
			Run: func(ctx context.Context) error {
				steps.report("deleting role " + role)
				return steps.run(ctx, StepDeleteRole, role, func(ctx context.Context) (string, error) {
					return "", cloud.DeleteRoleAndPolicy(ctx, role, policy)
				})
			},
		},
	))

	switch {
	case steps.failed():
		steps.report("service components were deleted with errors")
	case req.Durable:
		steps.report("all service components were deleted")
	default:
		steps.report("all service components except image repository were deleted")
	}
	return steps.outcome()
}

func (d *computeDeleter) deleteInstances(ctx context.Context, steps *stepLog, req Request) error {
	cloud := d.env.cloud
	component := d.service.Name()

	steps.report("finding services to delete")
	var instances []ServiceInstance
	err := steps.run(ctx, StepListInstances, component, func(ctx context.Context) (string, error) {
		var err error
		instances, err = cloud.ListServiceInstances(ctx, req.Region, req.Deployment, component)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d found", len(instances)), nil
	})
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		steps.report("no services found")
		return nil
	}

	steps.report(fmt.Sprintf("deleting %d service(s)", len(instances)))
	tasks := make([]Task, len(instances))
	for i, instance := range instances {
		instance := instance
		tasks[i] = Task{
			Name: StepDeleteInstance,
			Run: func(ctx context.Context) error {
				err := steps.run(ctx, StepDeleteInstance, instance.Name, func(ctx context.Context) (string, error) {
					return "", cloud.DeleteServiceInstance(ctx, req.Region, component, instance)
				})
				if err == nil {
					steps.report("deleted service " + instance.Name)
				}
				return err
			},
		}
	}
	// Each failure is recorded here, once, and not returned to the outer
	// stage.
	steps.absorb(RunSettled(ctx, d.env.maxParallel, tasks...))
	return nil
}

// workerDeleter removes the worker function, then its role, queue and image
// repository.
type workerDeleter struct {
	worker WorkerSettings
	env    *env
}

func (d *workerDeleter) Category() types.ArtifactCategory { return types.CategoryWorker }

func (d *workerDeleter) Delete(ctx context.Context, req Request) types.CategoryOutcome {
	steps := newStepLog(types.CategoryWorker, d.env)
	cloud := d.env.cloud

	function := d.worker.FunctionName(req.Deployment)
	steps.absorb(RunSettled(ctx, 0, Task{
		Name: StepDeleteFunction,
		Run: func(ctx context.Context) error {
			steps.report("deleting worker function " + function)
			return steps.run(ctx, StepDeleteFunction, function, func(ctx context.Context) (string, error) {
				return "", cloud.DeleteFunction(ctx, req.Region, function)
			})
		},
	}))

	role := d.worker.RoleName(req.Region, req.Deployment)
	policy := d.worker.PolicyName(req.Region, req.Deployment)
	registry := d.worker.RegistryName(req.Deployment)
	second := []Task{{
		Name: StepDeleteRole,
		Run: func(ctx context.Context) error {
			steps.report("deleting role " + role)
			return steps.run(ctx, StepDeleteRole, role, func(ctx context.Context) (string, error) {
				return "", cloud.DeleteRoleAndPolicy(ctx, role, policy)
			})
		},
	}}
	if req.Durable {
		second = append(second,
			Task{
				Name: StepDeleteQueue,
				Run: func(ctx context.Context) error {
					steps.report("deleting queues")
					return steps.run(ctx, StepDeleteQueue, req.Deployment, func(ctx context.Context) (string, error) {
						return "", cloud.DeleteQueue(ctx, req.Region, req.Deployment)
					})
				},
			},
			Task{
				Name: StepDeleteRegistry,
				Run: func(ctx context.Context) error {
					steps.report("deleting image repository " + registry)
					return steps.run(ctx, StepDeleteRegistry, registry, func(ctx context.Context) (string, error) {
						return "", cloud.DeleteRegistry(ctx, req.Region, registry)
					})
				},
			},
		)
	} else {
		steps.skip(StepDeleteQueue, req.Deployment, durableRetainedDetail)
		steps.skip(StepDeleteRegistry, registry, durableRetainedDetail)
	}
	steps.absorb(RunSettled(ctx, 0, second...))

	if !steps.failed() {
		steps.report("worker deleted")
	}
	return steps.outcome()
}

// configurationDeleter removes every configuration entry of the deployment.
type configurationDeleter struct {
	env *env
}

func (d *configurationDeleter) Category() types.ArtifactCategory { return types.CategoryConfiguration }

func (d *configurationDeleter) Delete(ctx context.Context, req Request) types.CategoryOutcome {
	steps := newStepLog(types.CategoryConfiguration, d.env)
	cloud := d.env.cloud

	steps.absorb(RunSettled(ctx, 0, Task{
		Name: StepDeleteConfig,
		Run: func(ctx context.Context) error {
			steps.report("deleting configuration")
			return steps.run(ctx, StepDeleteConfig, req.Deployment, func(ctx context.Context) (string, error) {
				n, err := cloud.DeleteConfigEntries(ctx, req.Region, req.Deployment)
				if err != nil {
					return "", err
				}
				steps.report(fmt.Sprintf("deleted %d configuration keys", n))
				return fmt.Sprintf("%d keys deleted", n), nil
			})
		},
	}))
	return steps.outcome()
}

// dataStoreDeleter removes the durable table. Without the durable flag it
// does nothing and reports the category as skipped.
type dataStoreDeleter struct {
	settings DataStoreSettings
	env      *env
}

func (d *dataStoreDeleter) Category() types.ArtifactCategory { return types.CategoryDB }

func (d *dataStoreDeleter) Delete(ctx context.Context, req Request) types.CategoryOutcome {
	steps := newStepLog(types.CategoryDB, d.env)
	table := d.settings.TableName(req.Deployment)

	if !req.Durable {
		steps.report("keeping table " + table)
		steps.skip(StepDeleteDataStore, table, durableRetainedDetail)
		out := steps.outcome()
		out.Status = types.CategoryStatusSkipped
		out.Note = durableRetainedNote
		return out
	}

	cloud := d.env.cloud
	steps.absorb(RunSettled(ctx, 0, Task{
		Name: StepDeleteDataStore,
		Run: func(ctx context.Context) error {
			steps.report("deleting table " + table)
			return steps.run(ctx, StepDeleteDataStore, table, func(ctx context.Context) (string, error) {
				return "", cloud.DeleteDataStore(ctx, req.Region, req.Deployment, d.settings)
			})
		},
	}))
	return steps.outcome()
}
