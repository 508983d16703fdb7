package artifacts

// Import descriptor templates. Each discovered resource is rendered as a
// managed resource the provisioning agent observes and adopts: it may
// late-initialize and update, but never create or delete. Orphan-on-delete
// keeps downstream automation from removing resources it did not create.
//
// The EKS cluster itself is deliberately absent: importing the cluster that
// hosts the provisioning agent would make the agent manage its own runtime,
// a dependency cycle with no safe resolution order.

const importHeaderTemplate = `# Generated by infractl bootstrap for ${cluster_name} (${environment}).
# Resources below are observed and adopted, never created or deleted,
# by the in-cluster provisioning agent.
`

const vpcTemplate = `apiVersion: ec2.aws.upbound.io/v1beta1
kind: VPC
metadata:
  name: ${cluster_name}-vpc
  annotations:
    crossplane.io/external-name: ${vpc_id}
spec:
  managementPolicies: ["Observe", "LateInitialize", "Update"]
  deletionPolicy: Orphan
  forProvider:
    region: ${region}
  providerConfigRef:
    name: aws-provider
`

const subnetTemplate = `apiVersion: ec2.aws.upbound.io/v1beta1
kind: Subnet
metadata:
  name: ${cluster_name}-${visibility}-subnet-${zone_suffix}
  annotations:
    crossplane.io/external-name: ${subnet_id}
spec:
  managementPolicies: ["Observe", "LateInitialize", "Update"]
  deletionPolicy: Orphan
  forProvider:
    region: ${region}
  providerConfigRef:
    name: aws-provider
`

const internetGatewayTemplate = `apiVersion: ec2.aws.upbound.io/v1beta1
kind: InternetGateway
metadata:
  name: ${cluster_name}-igw
  annotations:
    crossplane.io/external-name: ${igw_id}
spec:
  managementPolicies: ["Observe", "LateInitialize", "Update"]
  deletionPolicy: Orphan
  forProvider:
    region: ${region}
  providerConfigRef:
    name: aws-provider
`

const natGatewayTemplate = `apiVersion: ec2.aws.upbound.io/v1beta1
kind: NATGateway
metadata:
  name: ${cluster_name}-nat
  annotations:
    crossplane.io/external-name: ${nat_id}
spec:
  managementPolicies: ["Observe", "LateInitialize", "Update"]
  deletionPolicy: Orphan
  forProvider:
    region: ${region}
  providerConfigRef:
    name: aws-provider
`

const securityGroupTemplate = `apiVersion: ec2.aws.upbound.io/v1beta1
kind: SecurityGroup
metadata:
  name: ${cluster_name}-managed-sg
  annotations:
    crossplane.io/external-name: ${security_group_id}
spec:
  managementPolicies: ["Observe", "LateInitialize", "Update"]
  deletionPolicy: Orphan
  forProvider:
    region: ${region}
  providerConfigRef:
    name: aws-provider
`

const hostedZoneTemplate = `apiVersion: route53.aws.upbound.io/v1beta1
kind: Zone
metadata:
  name: ${cluster_name}-private-zone
  annotations:
    crossplane.io/external-name: ${hosted_zone_id}
spec:
  managementPolicies: ["Observe", "LateInitialize", "Update"]
  deletionPolicy: Orphan
  forProvider:
    region: ${region}
  providerConfigRef:
    name: aws-provider
`

// environmentConfigTemplate is the per-environment overlay consumed by
// compositions; every identifier lands in a fixed placeholder position.
const environmentConfigTemplate = `apiVersion: apiextensions.crossplane.io/v1alpha1
kind: EnvironmentConfig
metadata:
  name: cluster-environment
  labels:
    stackinfra.io/environment: ${environment}
data:
  accountID: "${account_id}"
  region: ${region}
  environment: ${environment}
  clusterName: ${cluster_name}
  vpcID: ${vpc_id}
  oidcProvider: ${oidc_provider}
  oidcID: ${oidc_id}
  provisionerRoleARN: ${provisioner_role_arn}
  internetGatewayID: ${igw_id}
  natGatewayID: ${nat_id}
  securityGroupID: ${security_group_id}
  hostedZoneID: ${hosted_zone_id}
  privateSubnetA: ${private_subnet_a}
  privateSubnetB: ${private_subnet_b}
  privateSubnetC: ${private_subnet_c}
  publicSubnetA: ${public_subnet_a}
  publicSubnetB: ${public_subnet_b}
  publicSubnetC: ${public_subnet_c}
`
