// Package handlers implements the command execution logic for the CLI.
package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/go-logr/logr/funcr"

	"github.com/stackinfra/infractl/internal/artifacts"
	"github.com/stackinfra/infractl/internal/bootstrap"
	"github.com/stackinfra/infractl/internal/config"
	"github.com/stackinfra/infractl/internal/discovery"
	"github.com/stackinfra/infractl/internal/gitops"
	awsplat "github.com/stackinfra/infractl/internal/platform/aws"
	"github.com/stackinfra/infractl/internal/platform/eksctl"
	gitplat "github.com/stackinfra/infractl/internal/platform/git"
	"github.com/stackinfra/infractl/internal/platform/helm"
	"github.com/stackinfra/infractl/internal/platform/k8s"
	"github.com/stackinfra/infractl/internal/trust"
	"github.com/stackinfra/infractl/internal/ui"
	"github.com/stackinfra/infractl/internal/util/prerequisites"
)

// BootstrapOptions carries the flag and argument values of the bootstrap
// command.
type BootstrapOptions struct {
	Environment       string
	ConfigFile        string
	ClusterName       string
	Region            string
	SkipClusterCreate bool
	SkipGitPush       bool
	SkipSync          bool
	ArgoCDServer      string
}

// Bootstrap runs the full bootstrap pipeline for one environment.
func Bootstrap(ctx context.Context, opts BootstrapOptions) error {
	env, err := config.ParseEnvironment(opts.Environment)
	if err != nil {
		return err
	}

	if err := prerequisites.CheckBootstrap().Error(); err != nil {
		return err
	}

	cfg, err := config.Load(env, opts.ConfigFile,
		config.WithClusterName(opts.ClusterName),
		config.WithRegion(opts.Region),
	)
	if err != nil {
		return err
	}
	cfg.SkipClusterCreate = opts.SkipClusterCreate
	cfg.SkipGitPush = opts.SkipGitPush
	cfg.SkipSync = opts.SkipSync
	if opts.ArgoCDServer != "" {
		cfg.ArgoCDServer = opts.ArgoCDServer
	}

	repoRoot, err := gitplat.RepoRoot(ctx)
	if err != nil {
		return err
	}
	paths := config.NewPaths(repoRoot)

	bctx := bootstrap.NewContext(ctx, cfg)

	awsClients, err := awsplat.NewClients(ctx, cfg.Region)
	if err != nil {
		return err
	}

	run := newBootstrapRun(cfg, paths, awsClients, bctx.Observer)
	report := bootstrap.RunPhases(bctx, run.phases())

	ui.PrintRunSummary(cfg.ClusterName, report, run.waveResults)

	if report.Fatal() {
		failed := report.FailedPhase()
		return fmt.Errorf("bootstrap failed at %s: %w", failed.Name, failed.Err)
	}
	return nil
}

// bootstrapRun holds the services and cross-phase state of one run.
type bootstrapRun struct {
	cfg        *config.Config
	paths      config.Paths
	awsClients *awsplat.Clients

	eksctlSvc  *eksctl.Service
	discoverer *discovery.Discoverer
	configurer *trust.Configurer
	generator  *artifacts.Generator
	publisher  *gitplat.Publisher
	helmClient *helm.Client

	// Populated as phases execute.
	k8sClient     *k8s.Client
	adminPassword string
	generated     []artifacts.Artifact
	waveResults   []gitops.WaveResult
}

func newBootstrapRun(cfg *config.Config, paths config.Paths, awsClients *awsplat.Clients, observer bootstrap.Observer) *bootstrapRun {
	return &bootstrapRun{
		cfg:        cfg,
		paths:      paths,
		awsClients: awsClients,
		eksctlSvc:  eksctl.NewService(cfg.Region, observer),
		discoverer: discovery.New(awsClients, observer),
		configurer: trust.New(awsClients.IAM, observer),
		generator:  artifacts.NewGenerator(paths),
		publisher:  gitplat.NewPublisher(paths.Root, observer),
		helmClient: helm.NewClient(),
	}
}

func (r *bootstrapRun) phases() []bootstrap.Phase {
	phases := []bootstrap.Phase{
		r.clusterPhase(),
		r.clusterAccessPhase(),
		r.discoveryPhase(),
		r.trustPhase(),
		r.clusterInfoPhase(),
		r.argocdPhase(),
		r.artifactsPhase(),
	}
	if !r.cfg.SkipGitPush {
		phases = append(phases, r.publishPhase())
	}
	if !r.cfg.SkipSync {
		phases = append(phases, r.syncPhase())
	}
	return phases
}

func (r *bootstrapRun) clusterPhase() bootstrap.Phase {
	return bootstrap.Phase{
		Name:     "cluster",
		Critical: true,
		Check: func(ctx *bootstrap.Context) (bool, error) {
			if r.cfg.SkipClusterCreate {
				return true, nil
			}
			return r.eksctlSvc.ClusterExists(ctx, r.cfg.ClusterName)
		},
		Run: func(ctx *bootstrap.Context) error {
			return r.eksctlSvc.CreateCluster(ctx, r.cfg.ClusterName, r.paths.EksctlConfig())
		},
	}
}

func (r *bootstrapRun) clusterAccessPhase() bootstrap.Phase {
	return bootstrap.Phase{
		Name:     "cluster-access",
		Critical: true,
		Run: func(ctx *bootstrap.Context) error {
			return r.eksctlSvc.UpdateKubeconfig(ctx, r.cfg.ClusterName)
		},
	}
}

// discoveryPhase resolves every cloud identifier. The check performs the
// read-only lookup and populates the cluster context either way, so a rerun
// against converged cloud state skips the phase with the context fully
// resolved.
func (r *bootstrapRun) discoveryPhase() bootstrap.Phase {
	return bootstrap.Phase{
		Name:     "discovery",
		Critical: true,
		Check: func(ctx *bootstrap.Context) (bool, error) {
			missing, err := r.discoverer.Lookup(ctx, ctx.Cluster)
			if err != nil {
				return false, err
			}
			return len(missing) == 0, nil
		},
		Run: func(ctx *bootstrap.Context) error {
			return r.discoverer.CreateOwned(ctx, ctx.Cluster)
		},
		Verify: func(ctx *bootstrap.Context) error {
			missing, err := r.discoverer.Lookup(ctx, ctx.Cluster)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				return fmt.Errorf("resources still missing: %v", missing)
			}
			return nil
		},
	}
}

func (r *bootstrapRun) trustPhase() bootstrap.Phase {
	return bootstrap.Phase{
		Name:     "trust",
		Critical: true,
		Check: func(ctx *bootstrap.Context) (bool, error) {
			exists, err := r.configurer.RoleExists(ctx, ctx.Cluster)
			if err != nil {
				return false, err
			}
			if exists {
				ctx.Cluster.ProvisionerRoleARN = ctx.Cluster.ProvisionerRoleARNDefault()
			}
			return exists, nil
		},
		Run: func(ctx *bootstrap.Context) error {
			arn, err := r.configurer.ConfigureTrust(ctx, ctx.Cluster)
			if err != nil {
				return err
			}
			ctx.Cluster.ProvisionerRoleARN = arn
			return nil
		},
	}
}

func (r *bootstrapRun) clusterInfoPhase() bootstrap.Phase {
	return bootstrap.Phase{
		Name:     "cluster-info",
		Critical: false,
		Run: func(ctx *bootstrap.Context) error {
			client, err := r.k8s()
			if err != nil {
				return err
			}
			return client.ApplyClusterInfoConfigMap(ctx, ctx.Cluster)
		},
	}
}

func (r *bootstrapRun) argocdPhase() bootstrap.Phase {
	return bootstrap.Phase{
		Name:     "argocd",
		Critical: true,
		Run: func(ctx *bootstrap.Context) error {
			if err := r.helmClient.InstallArgoCD("", r.cfg.ArgoCDChartVersion); err != nil {
				return err
			}

			client, err := r.k8s()
			if err != nil {
				return err
			}
			if err := client.WaitForDeploymentAvailable(ctx, helm.ArgoCDNamespace, "argocd-server", ctx.Timeouts.DeploymentWait); err != nil {
				return err
			}

			password, err := client.GetSecretValue(ctx, helm.ArgoCDNamespace, "argocd-initial-admin-secret", "password")
			if err != nil {
				return err
			}
			r.adminPassword = password

			created, err := awsplat.EnsureSecret(ctx, r.awsClients.Secrets,
				ctx.Cluster.ArgoCDSecretName(), password,
				"ArgoCD admin credential for "+ctx.Cluster.ClusterName)
			if err != nil {
				return err
			}
			if created {
				bootstrap.LogResourceCreated(ctx.Observer, "argocd", "credential", ctx.Cluster.ArgoCDSecretName(), "")
			}
			return nil
		},
	}
}

func (r *bootstrapRun) artifactsPhase() bootstrap.Phase {
	return bootstrap.Phase{
		Name:     "artifacts",
		Critical: true,
		Check: func(ctx *bootstrap.Context) (bool, error) {
			generated, err := r.generator.Generate(ctx.Cluster)
			if err != nil {
				return false, err
			}
			r.generated = generated
			return artifacts.UpToDate(generated), nil
		},
		Run: func(ctx *bootstrap.Context) error {
			return artifacts.Write(r.generated)
		},
		Verify: func(ctx *bootstrap.Context) error {
			return artifacts.VerifyNoResiduals(r.generated)
		},
	}
}

func (r *bootstrapRun) publishPhase() bootstrap.Phase {
	return bootstrap.Phase{
		Name:     "publish",
		Critical: true,
		Run: func(ctx *bootstrap.Context) error {
			message := fmt.Sprintf("Update imported resources for %s", ctx.Cluster.ClusterName)
			commit, err := r.publisher.Publish(ctx, artifacts.Paths(r.generated), message)
			if err != nil {
				return err
			}
			if commit.NoOp {
				bootstrap.LogWarning(ctx.Observer, "publish", "artifacts unchanged, nothing published")
			}
			return nil
		},
	}
}

func (r *bootstrapRun) syncPhase() bootstrap.Phase {
	return bootstrap.Phase{
		Name:     "sync",
		Critical: false,
		Run: func(ctx *bootstrap.Context) error {
			syncer, err := r.buildSyncer()
			if err != nil {
				return err
			}

			logger := funcr.New(func(prefix, args string) {
				log.Printf("%s %s", prefix, args)
			}, funcr.Options{})

			orch := gitops.NewOrchestrator(syncer, logger.WithName("sync"), ctx.Timeouts)
			results, err := orch.SyncWaves(ctx, gitops.DefaultWaves(string(r.cfg.Environment)))
			r.waveResults = results
			if err != nil {
				return err
			}

			for _, ordinal := range gitops.TimedOutWaves(results) {
				ctx.Observer.Printf("wave %d timed out before becoming healthy", ordinal)
			}
			return nil
		},
	}
}

// buildSyncer picks the sync strategy: the REST API when an endpoint is
// configured and reachable credentials exist, the in-cluster fallback
// otherwise.
func (r *bootstrapRun) buildSyncer() (gitops.Syncer, error) {
	if r.cfg.ArgoCDServer != "" && r.adminPassword != "" {
		return gitops.NewAPISyncer(r.cfg.ArgoCDServer, "admin", r.adminPassword), nil
	}
	client, err := r.k8s()
	if err != nil {
		return nil, err
	}
	return gitops.NewDegradedSyncer(client.Dynamic()), nil
}

// k8s lazily builds the cluster client, which can only connect once the
// cluster-access phase has written the kubeconfig entry.
func (r *bootstrapRun) k8s() (*k8s.Client, error) {
	if r.k8sClient != nil {
		return r.k8sClient, nil
	}
	client, err := k8s.NewClient("")
	if err != nil {
		return nil, err
	}
	r.k8sClient = client
	return client, nil
}
