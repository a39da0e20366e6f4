package awscloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/letsgo-sh/ops/pkg/log"
	"github.com/letsgo-sh/ops/pkg/teardown"
)

// DeleteDataStore deletes the deployment's table and waits until it is gone.
func (p *Provider) DeleteDataStore(ctx context.Context, region, deployment string, settings teardown.DataStoreSettings) error {
	c, err := p.clientsFor(ctx, region)
	if err != nil {
		return err
	}
	table := settings.TableName(deployment)

	err = p.call(ctx, "dynamodb:DeleteTable", func(ctx context.Context) error {
		_, err := c.DynamoDB.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(table)})
		return ignoreNotFound(err)
	})
	var inUse *dynamodbtypes.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return fmt.Errorf("failed to delete table %s: %w", table, err)
	}

	waiter := dynamodb.NewTableNotExistsWaiter(c.DynamoDB)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, p.opts.TableDeleteTimeout); err != nil {
		return fmt.Errorf("failed waiting for table %s to be deleted: %w", table, err)
	}
	p.logger.Info("Deleted table", log.Region(region), log.Str("table", table))
	return nil
}
