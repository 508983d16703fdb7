package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// EnsureSecret stores a credential under the given name unless one already
// exists. The stored value is never overwritten: the first credential wins
// so operators can rotate it out of band.
func EnsureSecret(ctx context.Context, client SecretsManagerAPI, name, value, description string) (created bool, err error) {
	_, err = client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: awssdk.String(name),
	})
	if err == nil {
		return false, nil
	}
	if !IsNotFound(err) {
		return false, fmt.Errorf("failed to look up secret %s: %w", name, err)
	}

	_, err = client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         awssdk.String(name),
		SecretString: awssdk.String(value),
		Description:  awssdk.String(description),
	})
	if err != nil {
		if IsAlreadyExists(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create secret %s: %w", name, err)
	}
	return true, nil
}
