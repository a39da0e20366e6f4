package awscloud

import (
	"errors"
	"strings"

	apprunnertypes "github.com/aws/aws-sdk-go-v2/service/apprunner/types"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
)

var notFoundCodes = map[string]bool{
	"ResourceNotFoundException":               true,
	"NoSuchEntity":                            true,
	"RepositoryNotFoundException":             true,
	"QueueDoesNotExist":                       true,
	"AWS.SimpleQueueService.NonExistentQueue": true,
	"ParameterNotFound":                       true,
}

var retryableCodes = map[string]bool{
	"Throttling":                  true,
	"ThrottlingException":         true,
	"ThrottledException":          true,
	"TooManyRequestsException":    true,
	"RequestLimitExceeded":        true,
	"ServiceUnavailable":          true,
	"ServiceUnavailableException": true,
	"InternalFailure":             true,
	"InternalServiceError":        true,
	"InternalServerException":     true,
	"InvalidStateException":       true,
}

// isNotFound reports whether err means the resource does not exist.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var (
		appRunnerNotFound *apprunnertypes.ResourceNotFoundException
		repoNotFound      *ecrtypes.RepositoryNotFoundException
		noSuchEntity      *iamtypes.NoSuchEntityException
		lambdaNotFound    *lambdatypes.ResourceNotFoundException
		queueNotFound     *sqstypes.QueueDoesNotExist
		tableNotFound     *dynamodbtypes.ResourceNotFoundException
	)
	switch {
	case errors.As(err, &appRunnerNotFound),
		errors.As(err, &repoNotFound),
		errors.As(err, &noSuchEntity),
		errors.As(err, &lambdaNotFound),
		errors.As(err, &queueNotFound),
		errors.As(err, &tableNotFound):
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return notFoundCodes[apiErr.ErrorCode()]
	}
	return false
}

// isRetryable reports whether err is worth another attempt.
func isRetryable(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if retryableCodes[apiErr.ErrorCode()] {
		return true
	}
	return apiErr.ErrorFault() == smithy.FaultServer ||
		strings.Contains(strings.ToLower(apiErr.ErrorCode()), "throttl")
}
