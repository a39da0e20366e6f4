package awscloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
)

// DeleteRoleAndPolicy deletes the inline policy and then the role. IAM is
// global, so the clients of globalRegion are used.
func (p *Provider) DeleteRoleAndPolicy(ctx context.Context, roleName, policyName string) error {
	c, err := p.clientsFor(ctx, globalRegion)
	if err != nil {
		return err
	}

	err = p.call(ctx, "iam:DeleteRolePolicy", func(ctx context.Context) error {
		_, err := c.IAM.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{
			RoleName:   aws.String(roleName),
			PolicyName: aws.String(policyName),
		})
		return ignoreNotFound(err)
	})
	if err != nil {
		return fmt.Errorf("failed to delete policy %s: %w", policyName, err)
	}

	err = p.call(ctx, "iam:DeleteRole", func(ctx context.Context) error {
		_, err := c.IAM.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(roleName)})
		return ignoreNotFound(err)
	})
	if err != nil {
		return fmt.Errorf("failed to delete role %s: %w", roleName, err)
	}
	return nil
}
