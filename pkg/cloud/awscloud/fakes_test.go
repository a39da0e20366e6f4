package awscloud

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apprunner"
	apprunnertypes "github.com/aws/aws-sdk-go-v2/service/apprunner/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeService struct {
	name   string
	tags   map[string]string
	status apprunnertypes.ServiceStatus
	polls  int
}

type fakeAppRunner struct {
	mu       sync.Mutex
	services map[string]*fakeService
	order    []string
	pageSize int

	// pollsUntilGone is how many DescribeService calls report the service
	// as still deleting.
	pollsUntilGone int
	deleteErr      error

	scaling        map[string][]string
	scalingInUse   map[string]bool
	deletedScaling []string
}

func newFakeAppRunner() *fakeAppRunner {
	return &fakeAppRunner{
		services:     make(map[string]*fakeService),
		scaling:      make(map[string][]string),
		scalingInUse: make(map[string]bool),
	}
}

func (f *fakeAppRunner) addService(arn, name string, tags map[string]string) {
	f.services[arn] = &fakeService{name: name, tags: tags, status: apprunnertypes.ServiceStatusRunning}
	f.order = append(f.order, arn)
}

func (f *fakeAppRunner) ListServices(_ context.Context, in *apprunner.ListServicesInput, _ ...func(*apprunner.Options)) (*apprunner.ListServicesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := 0
	if in.NextToken != nil {
		fmt.Sscanf(*in.NextToken, "%d", &start)
	}
	end := len(f.order)
	if f.pageSize > 0 && start+f.pageSize < end {
		end = start + f.pageSize
	}

	out := &apprunner.ListServicesOutput{}
	for _, arn := range f.order[start:end] {
		s := f.services[arn]
		out.ServiceSummaryList = append(out.ServiceSummaryList, apprunnertypes.ServiceSummary{
			ServiceArn:  aws.String(arn),
			ServiceName: aws.String(s.name),
			Status:      s.status,
		})
	}
	if end < len(f.order) {
		out.NextToken = aws.String(fmt.Sprint(end))
	}
	return out, nil
}

func (f *fakeAppRunner) ListTagsForResource(_ context.Context, in *apprunner.ListTagsForResourceInput, _ ...func(*apprunner.Options)) (*apprunner.ListTagsForResourceOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.services[aws.ToString(in.ResourceArn)]
	if !ok {
		return nil, &apprunnertypes.ResourceNotFoundException{Message: aws.String("no service")}
	}
	out := &apprunner.ListTagsForResourceOutput{}
	for k, v := range s.tags {
		out.Tags = append(out.Tags, apprunnertypes.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return out, nil
}

func (f *fakeAppRunner) DeleteService(_ context.Context, in *apprunner.DeleteServiceInput, _ ...func(*apprunner.Options)) (*apprunner.DeleteServiceOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	s, ok := f.services[aws.ToString(in.ServiceArn)]
	if !ok {
		return nil, &apprunnertypes.ResourceNotFoundException{Message: aws.String("no service")}
	}
	s.status = apprunnertypes.ServiceStatusOperationInProgress
	return &apprunner.DeleteServiceOutput{}, nil
}

func (f *fakeAppRunner) DescribeService(_ context.Context, in *apprunner.DescribeServiceInput, _ ...func(*apprunner.Options)) (*apprunner.DescribeServiceOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	arn := aws.ToString(in.ServiceArn)
	s, ok := f.services[arn]
	if !ok {
		return nil, &apprunnertypes.ResourceNotFoundException{Message: aws.String("no service")}
	}
	s.polls++
	if s.status == apprunnertypes.ServiceStatusOperationInProgress && s.polls > f.pollsUntilGone {
		delete(f.services, arn)
		return nil, &apprunnertypes.ResourceNotFoundException{Message: aws.String("no service")}
	}
	return &apprunner.DescribeServiceOutput{Service: &apprunnertypes.Service{Status: s.status}}, nil
}

func (f *fakeAppRunner) ListAutoScalingConfigurations(_ context.Context, in *apprunner.ListAutoScalingConfigurationsInput, _ ...func(*apprunner.Options)) (*apprunner.ListAutoScalingConfigurationsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := &apprunner.ListAutoScalingConfigurationsOutput{}
	for _, arn := range f.scaling[aws.ToString(in.AutoScalingConfigurationName)] {
		out.AutoScalingConfigurationSummaryList = append(out.AutoScalingConfigurationSummaryList,
			apprunnertypes.AutoScalingConfigurationSummary{AutoScalingConfigurationArn: aws.String(arn)})
	}
	return out, nil
}

func (f *fakeAppRunner) DeleteAutoScalingConfiguration(_ context.Context, in *apprunner.DeleteAutoScalingConfigurationInput, _ ...func(*apprunner.Options)) (*apprunner.DeleteAutoScalingConfigurationOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	arn := aws.ToString(in.AutoScalingConfigurationArn)
	if f.scalingInUse[arn] {
		return nil, &apprunnertypes.InvalidRequestException{Message: aws.String("in use")}
	}
	f.deletedScaling = append(f.deletedScaling, arn)
	return &apprunner.DeleteAutoScalingConfigurationOutput{}, nil
}

type fakeECR struct {
	mu           sync.Mutex
	repositories map[string][]ecrtypes.ImageIdentifier
	batches      [][]ecrtypes.ImageIdentifier
}

func (f *fakeECR) ListImages(_ context.Context, in *ecr.ListImagesInput, _ ...func(*ecr.Options)) (*ecr.ListImagesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	images, ok := f.repositories[aws.ToString(in.RepositoryName)]
	if !ok {
		return nil, &ecrtypes.RepositoryNotFoundException{Message: aws.String("no repository")}
	}
	return &ecr.ListImagesOutput{ImageIds: images}, nil
}

func (f *fakeECR) BatchDeleteImage(_ context.Context, in *ecr.BatchDeleteImageInput, _ ...func(*ecr.Options)) (*ecr.BatchDeleteImageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batches = append(f.batches, in.ImageIds)
	return &ecr.BatchDeleteImageOutput{ImageIds: in.ImageIds}, nil
}

func (f *fakeECR) DeleteRepository(_ context.Context, in *ecr.DeleteRepositoryInput, _ ...func(*ecr.Options)) (*ecr.DeleteRepositoryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(in.RepositoryName)
	if _, ok := f.repositories[name]; !ok {
		return nil, &ecrtypes.RepositoryNotFoundException{Message: aws.String("no repository")}
	}
	delete(f.repositories, name)
	return &ecr.DeleteRepositoryOutput{}, nil
}

type fakeIAM struct {
	mu         sync.Mutex
	roles      map[string]bool
	policies   map[string]bool
	deleteErrs []error
	calls      []string
}

func (f *fakeIAM) DeleteRolePolicy(_ context.Context, in *iam.DeleteRolePolicyInput, _ ...func(*iam.Options)) (*iam.DeleteRolePolicyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "DeleteRolePolicy")
	name := aws.ToString(in.PolicyName)
	if !f.policies[name] {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("no policy")}
	}
	delete(f.policies, name)
	return &iam.DeleteRolePolicyOutput{}, nil
}

func (f *fakeIAM) DeleteRole(_ context.Context, in *iam.DeleteRoleInput, _ ...func(*iam.Options)) (*iam.DeleteRoleOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "DeleteRole")
	if len(f.deleteErrs) > 0 {
		err := f.deleteErrs[0]
		f.deleteErrs = f.deleteErrs[1:]
		return nil, err
	}
	name := aws.ToString(in.RoleName)
	if !f.roles[name] {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("no role")}
	}
	delete(f.roles, name)
	return &iam.DeleteRoleOutput{}, nil
}

type fakeLambda struct {
	mu        sync.Mutex
	functions map[string][]string
	deleted   []string
}

func (f *fakeLambda) ListEventSourceMappings(_ context.Context, in *lambda.ListEventSourceMappingsInput, _ ...func(*lambda.Options)) (*lambda.ListEventSourceMappingsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := &lambda.ListEventSourceMappingsOutput{}
	for _, id := range f.functions[aws.ToString(in.FunctionName)] {
		out.EventSourceMappings = append(out.EventSourceMappings, lambdatypes.EventSourceMappingConfiguration{UUID: aws.String(id)})
	}
	return out, nil
}

func (f *fakeLambda) DeleteEventSourceMapping(_ context.Context, in *lambda.DeleteEventSourceMappingInput, _ ...func(*lambda.Options)) (*lambda.DeleteEventSourceMappingOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, "mapping:"+aws.ToString(in.UUID))
	return &lambda.DeleteEventSourceMappingOutput{}, nil
}

func (f *fakeLambda) DeleteFunction(_ context.Context, in *lambda.DeleteFunctionInput, _ ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(in.FunctionName)
	if _, ok := f.functions[name]; !ok {
		return nil, &lambdatypes.ResourceNotFoundException{Message: aws.String("no function")}
	}
	delete(f.functions, name)
	f.deleted = append(f.deleted, "function:"+name)
	return &lambda.DeleteFunctionOutput{}, nil
}

type fakeSQS struct {
	mu      sync.Mutex
	queues  map[string]bool
	deleted []string
}

func (f *fakeSQS) GetQueueUrl(_ context.Context, in *sqs.GetQueueUrlInput, _ ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(in.QueueName)
	if !f.queues[name] {
		return nil, &sqstypes.QueueDoesNotExist{Message: aws.String("no queue")}
	}
	return &sqs.GetQueueUrlOutput{QueueUrl: aws.String("https://sqs.local/" + name)}, nil
}

func (f *fakeSQS) DeleteQueue(_ context.Context, in *sqs.DeleteQueueInput, _ ...func(*sqs.Options)) (*sqs.DeleteQueueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, aws.ToString(in.QueueUrl))
	return &sqs.DeleteQueueOutput{}, nil
}

type fakeSSM struct {
	mu       sync.Mutex
	params   []string
	pageSize int
	batches  [][]string
}

func (f *fakeSSM) GetParametersByPath(_ context.Context, in *ssm.GetParametersByPathInput, _ ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matching []string
	for _, p := range f.params {
		if len(p) >= len(aws.ToString(in.Path)) && p[:len(aws.ToString(in.Path))] == aws.ToString(in.Path) {
			matching = append(matching, p)
		}
	}
	start := 0
	if in.NextToken != nil {
		fmt.Sscanf(*in.NextToken, "%d", &start)
	}
	size := f.pageSize
	if size <= 0 {
		size = len(matching)
	}
	end := min(start+size, len(matching))

	out := &ssm.GetParametersByPathOutput{}
	for _, name := range matching[start:end] {
		out.Parameters = append(out.Parameters, ssmtypes.Parameter{Name: aws.String(name)})
	}
	if end < len(matching) {
		out.NextToken = aws.String(fmt.Sprint(end))
	}
	return out, nil
}

func (f *fakeSSM) DeleteParameters(_ context.Context, in *ssm.DeleteParametersInput, _ ...func(*ssm.Options)) (*ssm.DeleteParametersOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.batches = append(f.batches, in.Names)
	return &ssm.DeleteParametersOutput{DeletedParameters: in.Names}, nil
}

type fakeDynamoDB struct {
	mu      sync.Mutex
	tables  map[string]bool
	deleted []string
}

func (f *fakeDynamoDB) DeleteTable(_ context.Context, in *dynamodb.DeleteTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(in.TableName)
	if !f.tables[name] {
		return nil, &dynamodbtypes.ResourceNotFoundException{Message: aws.String("no table")}
	}
	delete(f.tables, name)
	f.deleted = append(f.deleted, name)
	return &dynamodb.DeleteTableOutput{}, nil
}

func (f *fakeDynamoDB) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(in.TableName)
	if !f.tables[name] {
		return nil, &dynamodbtypes.ResourceNotFoundException{Message: aws.String("no table")}
	}
	return &dynamodb.DescribeTableOutput{Table: &dynamodbtypes.TableDescription{TableName: aws.String(name)}}, nil
}
