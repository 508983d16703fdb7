// Package helm installs the GitOps delivery controller chart.
package helm

import (
	"fmt"
	"log"
	"os"
	"time"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
)

// ArgoCD chart coordinates.
const (
	ArgoCDRepoURL   = "https://argoproj.github.io/argo-helm"
	ArgoCDChartName = "argo-cd"
	ArgoCDNamespace = "argocd"
	ArgoCDRelease   = "argocd"
)

// Client handles Helm operations.
type Client struct {
	settings *cli.EnvSettings
}

// NewClient creates a Client.
func NewClient() *Client {
	return &Client{settings: cli.New()}
}

// InstallOrUpgrade installs the chart, or upgrades it when a release with
// the same name already exists. Either way the call waits for the release
// to settle.
func (h *Client) InstallOrUpgrade(kubeconfigPath, namespace, releaseName, repoURL, chartName, version string, values map[string]interface{}) error {
	restConfig, err := buildRESTConfig(kubeconfigPath)
	if err != nil {
		return err
	}

	actionConfig := new(action.Configuration)
	clientGetter := &restClientGetter{config: restConfig, namespace: namespace}

	if err := actionConfig.Init(clientGetter, namespace, os.Getenv("HELM_DRIVER"), log.Printf); err != nil {
		return fmt.Errorf("failed to init action config: %w", err)
	}

	cp := &action.ChartPathOptions{}
	cp.RepoURL = repoURL
	cp.Version = version

	chartPath, err := cp.LocateChart(chartName, h.settings)
	if err != nil {
		return fmt.Errorf("failed to locate chart %s: %w", chartName, err)
	}

	chart, err := loader.Load(chartPath)
	if err != nil {
		return fmt.Errorf("failed to load chart %s: %w", chartName, err)
	}

	histClient := action.NewHistory(actionConfig)
	histClient.Max = 1
	if _, err := histClient.Run(releaseName); err == nil {
		upgrade := action.NewUpgrade(actionConfig)
		upgrade.Namespace = namespace
		upgrade.Wait = true
		upgrade.Timeout = 10 * time.Minute
		if _, err := upgrade.Run(releaseName, chart, values); err != nil {
			return fmt.Errorf("helm upgrade failed: %w", err)
		}
		return nil
	}

	install := action.NewInstall(actionConfig)
	install.Namespace = namespace
	install.ReleaseName = releaseName
	install.CreateNamespace = true
	install.Wait = true
	install.Timeout = 10 * time.Minute
	if _, err := install.Run(chart, values); err != nil {
		return fmt.Errorf("helm install failed: %w", err)
	}
	return nil
}

// InstallArgoCD installs the pinned argo-cd chart into its namespace.
func (h *Client) InstallArgoCD(kubeconfigPath, version string) error {
	values := map[string]interface{}{
		"configs": map[string]interface{}{
			"params": map[string]interface{}{
				// The API is reached through port-forward or the internal
				// service, never a public ingress.
				"server.insecure": true,
			},
		},
	}
	return h.InstallOrUpgrade(kubeconfigPath, ArgoCDNamespace, ArgoCDRelease,
		ArgoCDRepoURL, ArgoCDChartName, version, values)
}

func buildRESTConfig(kubeconfigPath string) (*rest.Config, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		loadingRules.ExplicitPath = kubeconfigPath
	}
	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}
	return config, nil
}

// restClientGetter implements the RESTClientGetter Helm actions need.
type restClientGetter struct {
	config    *rest.Config
	namespace string
}

func (g *restClientGetter) ToRESTConfig() (*rest.Config, error) {
	return g.config, nil
}

func (g *restClientGetter) ToDiscoveryClient() (discovery.CachedDiscoveryInterface, error) {
	discoveryClient, err := discovery.NewDiscoveryClientForConfig(g.config)
	if err != nil {
		return nil, err
	}
	return memory.NewMemCacheClient(discoveryClient), nil
}

func (g *restClientGetter) ToRESTMapper() (meta.RESTMapper, error) {
	discoveryClient, err := g.ToDiscoveryClient()
	if err != nil {
		return nil, err
	}
	return restmapper.NewDeferredDiscoveryRESTMapper(discoveryClient), nil
}

func (g *restClientGetter) ToRawKubeConfigLoader() clientcmd.ClientConfig {
	return clientcmd.NewDefaultClientConfig(*clientcmdapi.NewConfig(), &clientcmd.ConfigOverrides{})
}
