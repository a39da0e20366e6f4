package awscloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"

	"github.com/letsgo-sh/ops/pkg/log"
)

// batchDeleteImageLimit is the maximum number of images per BatchDeleteImage
// request.
const batchDeleteImageLimit = 100

// DeleteRegistry deletes every image in the repository, then the repository.
func (p *Provider) DeleteRegistry(ctx context.Context, region, repository string) error {
	c, err := p.clientsFor(ctx, region)
	if err != nil {
		return err
	}

	var images []ecrtypes.ImageIdentifier
	var token *string
	for {
		var page *ecr.ListImagesOutput
		err := p.call(ctx, "ecr:ListImages", func(ctx context.Context) error {
			var err error
			page, err = c.ECR.ListImages(ctx, &ecr.ListImagesInput{
				RepositoryName: aws.String(repository),
				NextToken:      token,
			})
			return err
		})
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list images in %s: %w", repository, err)
		}
		images = append(images, page.ImageIds...)
		if aws.ToString(page.NextToken) == "" {
			break
		}
		token = page.NextToken
	}

	for start := 0; start < len(images); start += batchDeleteImageLimit {
		end := min(start+batchDeleteImageLimit, len(images))
		batch := images[start:end]

		var out *ecr.BatchDeleteImageOutput
		err := p.call(ctx, "ecr:BatchDeleteImage", func(ctx context.Context) error {
			var err error
			out, err = c.ECR.BatchDeleteImage(ctx, &ecr.BatchDeleteImageInput{
				RepositoryName: aws.String(repository),
				ImageIds:       batch,
			})
			return err
		})
		if isNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to delete images in %s: %w", repository, err)
		}
		var errs []error
		for _, f := range out.Failures {
			if f.FailureCode == ecrtypes.ImageFailureCodeImageNotFound {
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %s", f.FailureCode, aws.ToString(f.FailureReason)))
		}
		if len(errs) > 0 {
			return fmt.Errorf("failed to delete images in %s: %w", repository, errors.Join(errs...))
		}
	}

	err = p.call(ctx, "ecr:DeleteRepository", func(ctx context.Context) error {
		_, err := c.ECR.DeleteRepository(ctx, &ecr.DeleteRepositoryInput{RepositoryName: aws.String(repository)})
		return ignoreNotFound(err)
	})
	if err != nil {
		return fmt.Errorf("failed to delete repository %s: %w", repository, err)
	}
	p.logger.Info("Deleted repository", log.Str("repository", repository), log.Int("images", len(images)))
	return nil
}
