package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// DeleteQueue deletes the worker queue and then its dead-letter queue.
func (p *Provider) DeleteQueue(ctx context.Context, region, deployment string) error {
	c, err := p.clientsFor(ctx, region)
	if err != nil {
		return err
	}

	names := []string{
		p.opts.Naming.QueueName(deployment),
		p.opts.Naming.DeadLetterQueueName(deployment),
	}
	for _, name := range names {
		var url *sqs.GetQueueUrlOutput
		err := p.call(ctx, "sqs:GetQueueUrl", func(ctx context.Context) error {
			var err error
			url, err = c.SQS.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
			return err
		})
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to resolve queue %s: %w", name, err)
		}

		err = p.call(ctx, "sqs:DeleteQueue", func(ctx context.Context) error {
			_, err := c.SQS.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: url.QueueUrl})
			return ignoreNotFound(err)
		})
		if err != nil {
			return fmt.Errorf("failed to delete queue %s: %w", name, err)
		}
	}
	return nil
}
