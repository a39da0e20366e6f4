package awscloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apprunner"
	apprunnertypes "github.com/aws/aws-sdk-go-v2/service/apprunner/types"

	"github.com/letsgo-sh/ops/pkg/log"
	"github.com/letsgo-sh/ops/pkg/naming"
	"github.com/letsgo-sh/ops/pkg/teardown"
)

// ListServiceInstances returns the App Runner services tagged with the
// deployment and component.
func (p *Provider) ListServiceInstances(ctx context.Context, region, deployment, component string) ([]teardown.ServiceInstance, error) {
	c, err := p.clientsFor(ctx, region)
	if err != nil {
		return nil, err
	}

	var instances []teardown.ServiceInstance
	var token *string
	for {
		var page *apprunner.ListServicesOutput
		err := p.call(ctx, "apprunner:ListServices", func(ctx context.Context) error {
			var err error
			page, err = c.AppRunner.ListServices(ctx, &apprunner.ListServicesInput{NextToken: token})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list services: %w", err)
		}

		for _, s := range page.ServiceSummaryList {
			if s.Status == apprunnertypes.ServiceStatusDeleted {
				continue
			}
			arn := aws.ToString(s.ServiceArn)
			match, err := p.serviceTagged(ctx, c, arn, deployment, component)
			if err != nil {
				return nil, err
			}
			if match {
				instances = append(instances, teardown.ServiceInstance{
					ARN:    arn,
					Name:   aws.ToString(s.ServiceName),
					Status: string(s.Status),
				})
			}
		}

		if aws.ToString(page.NextToken) == "" {
			break
		}
		token = page.NextToken
	}
	return instances, nil
}

func (p *Provider) serviceTagged(ctx context.Context, c *Clients, arn, deployment, component string) (bool, error) {
	var out *apprunner.ListTagsForResourceOutput
	err := p.call(ctx, "apprunner:ListTagsForResource", func(ctx context.Context) error {
		var err error
		out, err = c.AppRunner.ListTagsForResource(ctx, &apprunner.ListTagsForResourceInput{ResourceArn: aws.String(arn)})
		return err
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read tags of %s: %w", arn, err)
	}

	tags := make(map[string]string, len(out.Tags))
	for _, t := range out.Tags {
		tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return tags[naming.DeploymentTagKey] == deployment && tags[naming.ComponentTagKey] == component, nil
}

// DeleteServiceInstance starts deletion of a service and waits until App
// Runner reports it gone.
func (p *Provider) DeleteServiceInstance(ctx context.Context, region, component string, instance teardown.ServiceInstance) error {
	c, err := p.clientsFor(ctx, region)
	if err != nil {
		return err
	}
	logger := p.logger.With(log.Region(region), log.Str("service", instance.Name), log.Str("component", component))

	err = p.call(ctx, "apprunner:DeleteService", func(ctx context.Context) error {
		_, err := c.AppRunner.DeleteService(ctx, &apprunner.DeleteServiceInput{ServiceArn: aws.String(instance.ARN)})
		return ignoreNotFound(err)
	})
	var invalidState *apprunnertypes.InvalidStateException
	switch {
	case errors.As(err, &invalidState):
		// Another operation, possibly an earlier delete, is still running.
		logger.Debug("Service busy, waiting for it to settle")
	case err != nil:
		return fmt.Errorf("failed to delete service %s: %w", instance.Name, err)
	}

	return p.waitServiceGone(ctx, c, instance, logger)
}

func (p *Provider) waitServiceGone(ctx context.Context, c *Clients, instance teardown.ServiceInstance, logger log.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ServiceDeleteTimeout)
	defer cancel()

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		out, err := c.AppRunner.DescribeService(ctx, &apprunner.DescribeServiceInput{ServiceArn: aws.String(instance.ARN)})
		switch {
		case isNotFound(err):
			return nil
		case err != nil && !isRetryable(err) && ctx.Err() == nil:
			return fmt.Errorf("failed to describe service %s: %w", instance.Name, err)
		case err == nil && out.Service != nil:
			switch out.Service.Status {
			case apprunnertypes.ServiceStatusDeleted:
				return nil
			case apprunnertypes.ServiceStatusDeleteFailed:
				return fmt.Errorf("deletion of service %s failed", instance.Name)
			}
			logger.Debug("Waiting for service deletion", log.Str("status", string(out.Service.Status)))
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for service %s to be deleted: %w", instance.Name, ctx.Err())
		case <-ticker.C:
		}
	}
}

// DeleteAutoScalingConfig deletes every revision of the named configuration
// that no service uses any more.
func (p *Provider) DeleteAutoScalingConfig(ctx context.Context, region, name string) error {
	c, err := p.clientsFor(ctx, region)
	if err != nil {
		return err
	}

	var arns []string
	var token *string
	for {
		var page *apprunner.ListAutoScalingConfigurationsOutput
		err := p.call(ctx, "apprunner:ListAutoScalingConfigurations", func(ctx context.Context) error {
			var err error
			page, err = c.AppRunner.ListAutoScalingConfigurations(ctx, &apprunner.ListAutoScalingConfigurationsInput{
				AutoScalingConfigurationName: aws.String(name),
				NextToken:                    token,
			})
			return err
		})
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list autoscaling configurations: %w", err)
		}
		for _, s := range page.AutoScalingConfigurationSummaryList {
			arns = append(arns, aws.ToString(s.AutoScalingConfigurationArn))
		}
		if aws.ToString(page.NextToken) == "" {
			break
		}
		token = page.NextToken
	}

	for _, arn := range arns {
		err := p.call(ctx, "apprunner:DeleteAutoScalingConfiguration", func(ctx context.Context) error {
			_, err := c.AppRunner.DeleteAutoScalingConfiguration(ctx, &apprunner.DeleteAutoScalingConfigurationInput{
				AutoScalingConfigurationArn: aws.String(arn),
			})
			return ignoreNotFound(err)
		})
		var inUse *apprunnertypes.InvalidRequestException
		if errors.As(err, &inUse) {
			p.logger.Warn("Autoscaling configuration still in use, keeping it", log.Str("arn", arn))
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to delete autoscaling configuration %s: %w", arn, err)
		}
	}
	return nil
}
