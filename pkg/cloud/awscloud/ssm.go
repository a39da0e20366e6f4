package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// deleteParametersLimit is the maximum number of names per DeleteParameters
// request.
const deleteParametersLimit = 10

// DeleteConfigEntries deletes every parameter under the deployment's
// configuration path.
func (p *Provider) DeleteConfigEntries(ctx context.Context, region, deployment string) (int, error) {
	c, err := p.clientsFor(ctx, region)
	if err != nil {
		return 0, err
	}
	path := p.opts.Naming.ConfigPath(deployment)

	var names []string
	pager := ssm.NewGetParametersByPathPaginator(c.SSM, &ssm.GetParametersByPathInput{
		Path:      aws.String(path),
		Recursive: aws.Bool(true),
	})
	for pager.HasMorePages() {
		var page *ssm.GetParametersByPathOutput
		err := p.call(ctx, "ssm:GetParametersByPath", func(ctx context.Context) error {
			var err error
			page, err = pager.NextPage(ctx)
			return err
		})
		if err != nil {
			return 0, fmt.Errorf("failed to list parameters under %s: %w", path, err)
		}
		for _, param := range page.Parameters {
			names = append(names, aws.ToString(param.Name))
		}
	}

	deleted := 0
	for start := 0; start < len(names); start += deleteParametersLimit {
		batch := names[start:min(start+deleteParametersLimit, len(names))]

		var out *ssm.DeleteParametersOutput
		err := p.call(ctx, "ssm:DeleteParameters", func(ctx context.Context) error {
			var err error
			out, err = c.SSM.DeleteParameters(ctx, &ssm.DeleteParametersInput{Names: batch})
			return err
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to delete parameters under %s: %w", path, err)
		}
		deleted += len(out.DeletedParameters)
	}
	return deleted, nil
}
