package commands

import (
	"github.com/spf13/cobra"

	"github.com/stackinfra/infractl/cmd/infractl/handlers"
)

// Bootstrap returns the command for bootstrapping an environment.
//
// Bootstrap is idempotent: re-running against an already bootstrapped
// environment skips everything that is already in place.
//
// Optional flags:
//
//	--config:              YAML configuration file (flags and INFRACTL_*
//	                       variables take precedence over file values)
//	--cluster-name:        Override the derived cluster name
//	--region:              Override the default region
//	--skip-cluster-create: Assume the cluster already exists
//	--skip-git-push:       Generate artifacts without publishing them
//	--skip-sync:           Stop before the application rollout
//	--argocd-server:       Delivery controller API URL (degraded in-cluster
//	                       fallback when unset)
//
// Environment variables:
//
//	INFRACTL_CLUSTER_NAME: Cluster name (flag takes precedence)
//	INFRACTL_REGION:       Region (flag takes precedence, AWS_REGION fallback)
func Bootstrap() *cobra.Command {
	var opts handlers.BootstrapOptions

	cmd := &cobra.Command{
		Use:   "bootstrap <environment>",
		Short: "Bootstrap a platform environment",
		Long: `Bootstrap a platform environment end to end.

The environment argument selects the target (dev or prod). Bootstrap creates
the cluster if needed, discovers the environment's cloud resources, sets up
the provisioning agent's trust configuration, generates and publishes the
import artifacts, and rolls the platform applications out in order.

Examples:
  # Bootstrap the dev environment
  infractl bootstrap dev

  # Re-run against an existing prod cluster, artifacts only
  infractl bootstrap prod --skip-cluster-create --skip-sync`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Environment = args[0]
			return handlers.Bootstrap(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "YAML configuration file")
	cmd.Flags().StringVar(&opts.ClusterName, "cluster-name", "", "Override the derived cluster name")
	cmd.Flags().StringVar(&opts.Region, "region", "", "Override the default region")
	cmd.Flags().BoolVar(&opts.SkipClusterCreate, "skip-cluster-create", false, "Assume the cluster already exists")
	cmd.Flags().BoolVar(&opts.SkipGitPush, "skip-git-push", false, "Generate artifacts without publishing them")
	cmd.Flags().BoolVar(&opts.SkipSync, "skip-sync", false, "Stop before the application rollout")
	cmd.Flags().StringVar(&opts.ArgoCDServer, "argocd-server", "", "Delivery controller API URL (in-cluster fallback when unset)")

	return cmd
}
