package aws

import (
	"errors"

	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
)

// IsNotFound checks whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	// Typed SDK errors first.
	var iamMissing *iamtypes.NoSuchEntityException
	if errors.As(err, &iamMissing) {
		return true
	}
	var eksMissing *ekstypes.ResourceNotFoundException
	if errors.As(err, &eksMissing) {
		return true
	}
	var zoneMissing *r53types.NoSuchHostedZone
	if errors.As(err, &zoneMissing) {
		return true
	}
	var secretMissing *smtypes.ResourceNotFoundException
	if errors.As(err, &secretMissing) {
		return true
	}

	// EC2 carries no typed errors; fall back to API error codes.
	return hasErrorCode(err,
		"NoSuchEntity",
		"ResourceNotFoundException",
		"NoSuchHostedZone",
		"InvalidGroup.NotFound",
		"InvalidVpcID.NotFound",
		"InvalidInternetGatewayID.NotFound",
		"NatGatewayNotFound",
	)
}

// IsAlreadyExists checks whether the error indicates the resource already
// exists. Callers treat this as success-via-skip, never as a failure.
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}

	var iamExists *iamtypes.EntityAlreadyExistsException
	if errors.As(err, &iamExists) {
		return true
	}
	var zoneExists *r53types.HostedZoneAlreadyExists
	if errors.As(err, &zoneExists) {
		return true
	}
	var secretExists *smtypes.ResourceExistsException
	if errors.As(err, &secretExists) {
		return true
	}

	return hasErrorCode(err,
		"EntityAlreadyExists",
		"InvalidGroup.Duplicate",
		"HostedZoneAlreadyExists",
		"ResourceExistsException",
		"ConflictException",
	)
}

// hasErrorCode checks the smithy API error code against the given set.
func hasErrorCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.ErrorCode()
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}
