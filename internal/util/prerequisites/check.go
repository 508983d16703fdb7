// Package prerequisites verifies the external client tools the orchestrator
// shells out to. Missing required tools abort the run before any mutation.
package prerequisites

import (
	"fmt"
	"os/exec"
	"strings"
)

// Tool is a client binary the orchestrator may depend on.
type Tool struct {
	// Name is the binary name looked up in PATH.
	Name string

	// Required marks tools whose absence is fatal.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// InstallURL points at installation instructions.
	InstallURL string
}

// BootstrapTools returns the tools a full bootstrap run needs.
func BootstrapTools() []Tool {
	return []Tool{
		{
			Name:        "eksctl",
			Required:    true,
			Description: "Creates the managed cluster from the cluster template",
			InstallURL:  "https://eksctl.io/installation/",
		},
		{
			Name:        "aws",
			Required:    true,
			Description: "Writes the cluster kubeconfig entry",
			InstallURL:  "https://docs.aws.amazon.com/cli/latest/userguide/getting-started-install.html",
		},
		{
			Name:        "git",
			Required:    true,
			Description: "Publishes generated artifacts for the delivery controller",
			InstallURL:  "https://git-scm.com/downloads",
		},
		{
			Name:        "kubectl",
			Required:    false,
			Description: "Useful for inspecting the cluster manually",
			InstallURL:  "https://kubernetes.io/docs/tasks/tools/",
		},
	}
}

// CheckResult is the outcome for a single tool.
type CheckResult struct {
	Tool  Tool
	Found bool
	Path  string
}

// CheckResults aggregates the outcomes of a prerequisite check.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// Error returns an error naming the missing required tools, or nil.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (%s)", tool.Name, tool.InstallURL))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check looks the tools up in PATH.
func Check(tools []Tool) *CheckResults {
	results := &CheckResults{}
	for _, tool := range tools {
		result := CheckResult{Tool: tool}
		if path, err := exec.LookPath(tool.Name); err == nil {
			result.Found = true
			result.Path = path
		} else {
			results.Missing = append(results.Missing, tool)
		}
		results.Results = append(results.Results, result)
	}
	return results
}

// CheckBootstrap checks the tools a bootstrap run requires.
func CheckBootstrap() *CheckResults {
	return Check(BootstrapTools())
}
