package trust

import (
	"encoding/json"
	"fmt"

	"github.com/stackinfra/infractl/internal/bootstrap"
)

// policyDocument is the IAM policy document wire format.
type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect    string                       `json:"Effect"`
	Principal map[string]string            `json:"Principal,omitempty"`
	Action    string                       `json:"Action"`
	Condition map[string]map[string]string `json:"Condition,omitempty"`
}

// BuildTrustPolicy renders the web-identity trust policy binding the
// provisioner role to the cluster's federated issuer. The subject condition
// pins the role to the provider's service accounts, so no other workload in
// the cluster can assume it.
func BuildTrustPolicy(cc *bootstrap.ClusterContext) (string, error) {
	doc := policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect: "Allow",
			Principal: map[string]string{
				"Federated": cc.OIDCProviderARN(),
			},
			Action: "sts:AssumeRoleWithWebIdentity",
			Condition: map[string]map[string]string{
				"StringLike": {
					cc.OIDCProvider + ":sub": "system:serviceaccount:crossplane-system:provider-aws-*",
				},
			},
		}},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal trust policy: %w", err)
	}
	return string(data), nil
}
