package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/letsgo-sh/ops/pkg/log"
)

// DeleteFunction removes the function's event source mappings and then the
// function.
func (p *Provider) DeleteFunction(ctx context.Context, region, functionName string) error {
	c, err := p.clientsFor(ctx, region)
	if err != nil {
		return err
	}

	var mappings []string
	var marker *string
	for {
		var page *lambda.ListEventSourceMappingsOutput
		err := p.call(ctx, "lambda:ListEventSourceMappings", func(ctx context.Context) error {
			var err error
			page, err = c.Lambda.ListEventSourceMappings(ctx, &lambda.ListEventSourceMappingsInput{
				FunctionName: aws.String(functionName),
				Marker:       marker,
			})
			return err
		})
		if isNotFound(err) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to list event source mappings of %s: %w", functionName, err)
		}
		for _, m := range page.EventSourceMappings {
			mappings = append(mappings, aws.ToString(m.UUID))
		}
		if aws.ToString(page.NextMarker) == "" {
			break
		}
		marker = page.NextMarker
	}

	for _, id := range mappings {
		err := p.call(ctx, "lambda:DeleteEventSourceMapping", func(ctx context.Context) error {
			_, err := c.Lambda.DeleteEventSourceMapping(ctx, &lambda.DeleteEventSourceMappingInput{UUID: aws.String(id)})
			return ignoreNotFound(err)
		})
		if err != nil {
			return fmt.Errorf("failed to delete event source mapping %s: %w", id, err)
		}
	}

	err = p.call(ctx, "lambda:DeleteFunction", func(ctx context.Context) error {
		_, err := c.Lambda.DeleteFunction(ctx, &lambda.DeleteFunctionInput{FunctionName: aws.String(functionName)})
		return ignoreNotFound(err)
	})
	if err != nil {
		return fmt.Errorf("failed to delete function %s: %w", functionName, err)
	}
	p.logger.Info("Deleted function", log.Region(region), log.Str("function", functionName), log.Int("mappings", len(mappings)))
	return nil
}
