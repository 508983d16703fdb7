package aws

import (
	"context"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSecret_CreatesWhenMissing(t *testing.T) {
	t.Parallel()

	var created *secretsmanager.CreateSecretInput
	mock := &MockSecretsManager{
		DescribeSecretFunc: func(_ context.Context, _ *secretsmanager.DescribeSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
			return nil, &smtypes.ResourceNotFoundException{}
		},
		CreateSecretFunc: func(_ context.Context, params *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
			created = params
			return &secretsmanager.CreateSecretOutput{}, nil
		},
	}

	wasCreated, err := EnsureSecret(context.Background(), mock, "stack-dev/argocd/admin", "hunter2", "admin credential")

	require.NoError(t, err)
	assert.True(t, wasCreated)
	require.NotNil(t, created)
	assert.Equal(t, "stack-dev/argocd/admin", awssdk.ToString(created.Name))
	assert.Equal(t, "hunter2", awssdk.ToString(created.SecretString))
}

func TestEnsureSecret_KeepsExistingValue(t *testing.T) {
	t.Parallel()

	mock := &MockSecretsManager{
		DescribeSecretFunc: func(_ context.Context, _ *secretsmanager.DescribeSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
			return &secretsmanager.DescribeSecretOutput{}, nil
		},
		CreateSecretFunc: func(_ context.Context, _ *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
			t.Fatal("existing secret must not be recreated")
			return nil, nil
		},
	}

	wasCreated, err := EnsureSecret(context.Background(), mock, "stack-dev/argocd/admin", "new-password", "")

	require.NoError(t, err)
	assert.False(t, wasCreated)
}

func TestEnsureSecret_ConcurrentCreateIsNotAnError(t *testing.T) {
	t.Parallel()

	mock := &MockSecretsManager{
		DescribeSecretFunc: func(_ context.Context, _ *secretsmanager.DescribeSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
			return nil, &smtypes.ResourceNotFoundException{}
		},
		CreateSecretFunc: func(_ context.Context, _ *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
			return nil, &smtypes.ResourceExistsException{}
		},
	}

	wasCreated, err := EnsureSecret(context.Background(), mock, "stack-dev/argocd/admin", "hunter2", "")

	require.NoError(t, err)
	assert.False(t, wasCreated)
}
