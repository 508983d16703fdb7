// Package k8s provides the Kubernetes client wrapper for the in-cluster
// bootstrap phases.
package k8s

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/stackinfra/infractl/internal/bootstrap"
)

// Client wraps the typed and dynamic Kubernetes clients.
type Client struct {
	clientset kubernetes.Interface
	dynamic   dynamic.Interface
}

// NewClient creates a Client from a kubeconfig file. An empty path falls
// back to the default loading rules (KUBECONFIG, then ~/.kube/config).
func NewClient(kubeconfigPath string) (*Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		loadingRules.ExplicitPath = kubeconfigPath
	}
	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	return &Client{clientset: clientset, dynamic: dynamicClient}, nil
}

// NewFromInterfaces creates a Client around existing client interfaces.
func NewFromInterfaces(clientset kubernetes.Interface, dyn dynamic.Interface) *Client {
	return &Client{clientset: clientset, dynamic: dyn}
}

// Dynamic exposes the dynamic client for CR-level operations.
func (c *Client) Dynamic() dynamic.Interface {
	return c.dynamic
}

// EnsureNamespace creates the namespace if it does not exist.
func (c *Client) EnsureNamespace(ctx context.Context, name string) error {
	_, err := c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to look up namespace %s: %w", name, err)
	}

	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	_, err = c.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return nil
}

// ClusterInfoNamespace is where the provisioning agent reads its
// environment identifiers from.
const ClusterInfoNamespace = "crossplane-system"

// ClusterInfoName is the ConfigMap holding the environment identifiers.
const ClusterInfoName = "cluster-info"

// ApplyClusterInfoConfigMap publishes the discovered identifiers into the
// cluster so in-cluster controllers can resolve their environment without
// cloud API access. Create-or-update, safe to re-run.
func (c *Client) ApplyClusterInfoConfigMap(ctx context.Context, cc *bootstrap.ClusterContext) error {
	if err := c.EnsureNamespace(ctx, ClusterInfoNamespace); err != nil {
		return err
	}

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ClusterInfoName,
			Namespace: ClusterInfoNamespace,
		},
		Data: map[string]string{
			"accountID":          cc.AccountID,
			"region":             cc.Region,
			"environment":        cc.Environment,
			"clusterName":        cc.ClusterName,
			"vpcID":              cc.VPCID,
			"oidcProvider":       cc.OIDCProvider,
			"oidcID":             cc.OIDCID,
			"provisionerRoleARN": cc.ProvisionerRoleARN,
			"internetGatewayID":  cc.InternetGatewayID,
			"natGatewayID":       cc.NATGatewayID,
			"securityGroupID":    cc.SecurityGroupID,
			"hostedZoneID":       cc.HostedZoneID,
		},
	}
	for suffix, id := range cc.PrivateSubnets {
		cm.Data["privateSubnet"+suffix] = id
	}
	for suffix, id := range cc.PublicSubnets {
		cm.Data["publicSubnet"+suffix] = id
	}

	cms := c.clientset.CoreV1().ConfigMaps(ClusterInfoNamespace)
	_, err := cms.Create(ctx, cm, metav1.CreateOptions{})
	if err != nil {
		if !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("failed to create configmap %s: %w", ClusterInfoName, err)
		}
		if _, err := cms.Update(ctx, cm, metav1.UpdateOptions{}); err != nil {
			return fmt.Errorf("failed to update configmap %s: %w", ClusterInfoName, err)
		}
	}
	return nil
}

// GetSecretValue reads one key from a secret.
func (c *Client) GetSecretValue(ctx context.Context, namespace, name, key string) (string, error) {
	secret, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s/%s: %w", namespace, name, err)
	}
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("secret %s/%s has no key %q", namespace, name, key)
	}
	return string(value), nil
}

// WaitForDeploymentAvailable polls until the deployment reports Available.
func (c *Client) WaitForDeploymentAvailable(ctx context.Context, namespace, name string, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, 5*time.Second, timeout, true,
		func(ctx context.Context) (bool, error) {
			deployment, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
			if err != nil {
				return false, nil
			}
			return isDeploymentAvailable(deployment), nil
		})
	if err != nil {
		return fmt.Errorf("deployment %s/%s not available after %v: %w", namespace, name, timeout, err)
	}
	return nil
}

func isDeploymentAvailable(deployment *appsv1.Deployment) bool {
	if deployment.Spec.Replicas != nil &&
		deployment.Status.AvailableReplicas < *deployment.Spec.Replicas {
		return false
	}
	for _, condition := range deployment.Status.Conditions {
		if condition.Type == appsv1.DeploymentAvailable &&
			condition.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}
