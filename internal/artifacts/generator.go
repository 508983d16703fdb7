// Package artifacts renders the declarative files that hand the discovered
// environment over to the GitOps delivery controller. Rendering is a pure
// substitution over named placeholders and fails closed: an artifact is
// never written with an unresolved placeholder in it.
package artifacts

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stackinfra/infractl/internal/bootstrap"
	"github.com/stackinfra/infractl/internal/config"
)

// Artifact is a rendered file and its target path.
type Artifact struct {
	Path string
	Body []byte
}

// TemplateError indicates a placeholder without a mapped value.
type TemplateError struct {
	Template    string
	Placeholder string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s: no value for placeholder %q", e.Template, e.Placeholder)
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)

// Render substitutes every ${placeholder} in the template. Placeholders
// absent from the map produce a TemplateError; the rendered output is
// scanned again so a residual marker can never slip through.
func Render(name, template string, subs map[string]string) ([]byte, error) {
	var missing string
	rendered := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := subs[key]
		if !ok {
			if missing == "" {
				missing = key
			}
			return match
		}
		return value
	})
	if missing != "" {
		return nil, &TemplateError{Template: name, Placeholder: missing}
	}
	if residual := placeholderPattern.FindString(rendered); residual != "" {
		return nil, &TemplateError{Template: name, Placeholder: residual}
	}

	var parsed interface{}
	if err := yaml.Unmarshal([]byte(rendered), &parsed); err != nil {
		return nil, fmt.Errorf("template %s rendered invalid YAML: %w", name, err)
	}
	return []byte(rendered), nil
}

// SubstitutionMap flattens the cluster context into the placeholder
// vocabulary shared by all templates. Zones the VPC does not span map to
// empty strings so the same template set works for two- and three-zone
// environments.
func SubstitutionMap(cc *bootstrap.ClusterContext) map[string]string {
	subs := map[string]string{
		"account_id":           cc.AccountID,
		"region":               cc.Region,
		"environment":          cc.Environment,
		"cluster_name":         cc.ClusterName,
		"vpc_id":               cc.VPCID,
		"oidc_provider":        cc.OIDCProvider,
		"oidc_id":              cc.OIDCID,
		"provisioner_role_arn": cc.ProvisionerRoleARN,
		"igw_id":               cc.InternetGatewayID,
		"nat_id":               cc.NATGatewayID,
		"security_group_id":    cc.SecurityGroupID,
		"hosted_zone_id":       cc.HostedZoneID,
	}
	for _, suffix := range []string{"a", "b", "c"} {
		subs["private_subnet_"+suffix] = cc.PrivateSubnets[suffix]
		subs["public_subnet_"+suffix] = cc.PublicSubnets[suffix]
	}
	return subs
}

// Generator renders the import descriptor set and the environment overlay.
type Generator struct {
	paths config.Paths
}

// NewGenerator creates a Generator writing under the given repository paths.
func NewGenerator(paths config.Paths) *Generator {
	return &Generator{paths: paths}
}

// Generate renders both artifacts in memory. Identical cluster contexts
// produce byte-identical artifacts.
func (g *Generator) Generate(cc *bootstrap.ClusterContext) ([]Artifact, error) {
	subs := SubstitutionMap(cc)
	env := config.Environment(cc.Environment)

	imports, err := renderImportSet(cc, subs)
	if err != nil {
		return nil, err
	}

	overlay, err := Render("environment-config", environmentConfigTemplate, subs)
	if err != nil {
		return nil, err
	}

	return []Artifact{
		{Path: g.paths.ImportedResources(env), Body: imports},
		{Path: g.paths.EnvironmentConfig(env), Body: overlay},
	}, nil
}

// renderImportSet renders one import descriptor per discovered resource.
func renderImportSet(cc *bootstrap.ClusterContext, subs map[string]string) ([]byte, error) {
	header, err := Render("import-header", importHeaderTemplate, subs)
	if err != nil {
		return nil, err
	}

	docs := [][]byte{header}

	fixed := []struct {
		name     string
		template string
	}{
		{"vpc", vpcTemplate},
		{"internet-gateway", internetGatewayTemplate},
		{"nat-gateway", natGatewayTemplate},
		{"security-group", securityGroupTemplate},
		{"hosted-zone", hostedZoneTemplate},
	}
	for _, t := range fixed {
		doc, err := Render(t.name, t.template, subs)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	subnetDocs, err := renderSubnets(cc, subs)
	if err != nil {
		return nil, err
	}
	docs = append(docs, subnetDocs...)

	return bytes.Join(docs, []byte("---\n")), nil
}

func renderSubnets(cc *bootstrap.ClusterContext, base map[string]string) ([][]byte, error) {
	var docs [][]byte

	render := func(visibility string, subnets map[string]string) error {
		suffixes := make([]string, 0, len(subnets))
		for suffix := range subnets {
			suffixes = append(suffixes, suffix)
		}
		sort.Strings(suffixes)

		for _, suffix := range suffixes {
			if subnets[suffix] == "" {
				continue
			}
			subs := make(map[string]string, len(base)+3)
			for k, v := range base {
				subs[k] = v
			}
			subs["visibility"] = visibility
			subs["zone_suffix"] = suffix
			subs["subnet_id"] = subnets[suffix]

			doc, err := Render(visibility+"-subnet-"+suffix, subnetTemplate, subs)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	}

	if err := render("private", cc.PrivateSubnets); err != nil {
		return nil, err
	}
	if err := render("public", cc.PublicSubnets); err != nil {
		return nil, err
	}
	return docs, nil
}

// UpToDate reports whether every artifact already exists on disk with
// identical content, which lets a rerun skip the generation phase.
func UpToDate(generated []Artifact) bool {
	for _, artifact := range generated {
		existing, err := os.ReadFile(artifact.Path)
		if err != nil || !bytes.Equal(existing, artifact.Body) {
			return false
		}
	}
	return true
}

// Write persists the artifacts, creating parent directories as needed.
func Write(generated []Artifact) error {
	for _, artifact := range generated {
		if err := os.MkdirAll(filepath.Dir(artifact.Path), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(artifact.Path), err)
		}
		if err := os.WriteFile(artifact.Path, artifact.Body, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", artifact.Path, err)
		}
	}
	return nil
}

// Paths returns the target paths of the artifacts, for staging.
func Paths(generated []Artifact) []string {
	paths := make([]string, 0, len(generated))
	for _, artifact := range generated {
		paths = append(paths, artifact.Path)
	}
	return paths
}

// VerifyNoResiduals re-checks written artifacts for unresolved markers.
func VerifyNoResiduals(generated []Artifact) error {
	for _, artifact := range generated {
		if residual := placeholderPattern.FindString(string(artifact.Body)); residual != "" {
			return &TemplateError{
				Template:    filepath.Base(artifact.Path),
				Placeholder: strings.Trim(residual, "${}"),
			}
		}
	}
	return nil
}
