package staticcmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ssnover/lab-blog/internal/deploy"
	"github.com/ssnover/lab-blog/internal/generator"
)

const (
	buildSiteMessageType  = "blog.static.build"
	deploySiteMessageType = "blog.static.deploy"
	cleanSiteMessageType  = "blog.static.clean"
)

// BuildResultCallback receives build results produced by generator operations. The callback is
// optional and is invoked synchronously from the handler when a BuildResult is available.
type BuildResultCallback func(BuildResultEnvelope)

// BuildResultEnvelope captures the outcome of a build command execution.
type BuildResultEnvelope struct {
	Result   *generator.BuildResult
	Metadata map[string]any
}

// DeployResultCallback receives the summary of a deploy run.
type DeployResultCallback func(DeployResultEnvelope)

// DeployResultEnvelope captures the outcome of a deploy command execution.
type DeployResultEnvelope struct {
	Result   *deploy.Result
	Metadata map[string]any
}

// BuildSiteCommand executes a full site build.
type BuildSiteCommand struct {
	Force          bool                `json:"force,omitempty"`
	DryRun         bool                `json:"dry_run,omitempty"`
	IncludeDrafts  bool                `json:"include_drafts,omitempty"`
	ResultCallback BuildResultCallback `json:"-"`
}

// Type implements command.Message.
func (BuildSiteCommand) Type() string { return buildSiteMessageType }

// Validate satisfies command.Message; build flags carry no payload constraints.
func (BuildSiteCommand) Validate() error { return nil }

// DeploySiteCommand pushes the built site to object storage.
type DeploySiteCommand struct {
	SourceDir      string               `json:"source_dir"`
	DryRun         bool                 `json:"dry_run,omitempty"`
	Force          bool                 `json:"force,omitempty"`
	ResultCallback DeployResultCallback `json:"-"`
}

// Type implements command.Message.
func (DeploySiteCommand) Type() string { return deploySiteMessageType }

// Validate ensures the source directory is present.
func (m DeploySiteCommand) Validate() error {
	errs := validation.Errors{}
	if strings.TrimSpace(m.SourceDir) == "" {
		errs["source_dir"] = validation.NewError("blog.static.deploy.source_required", "source_dir must not be empty")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CleanSiteCommand clears generated artifacts from the output directory.
type CleanSiteCommand struct{}

// Type implements command.Message.
func (CleanSiteCommand) Type() string { return cleanSiteMessageType }

// Validate satisfies command.Message; there are no payload constraints.
func (CleanSiteCommand) Validate() error { return nil }

// FeatureGates exposes runtime switches used to guard handler execution.
type FeatureGates struct {
	GeneratorEnabled func() bool
	DeployEnabled    func() bool
}

func (g FeatureGates) generatorEnabled() bool {
	if g.GeneratorEnabled == nil {
		return false
	}
	return g.GeneratorEnabled()
}

func (g FeatureGates) deployEnabled() bool {
	if g.DeployEnabled == nil {
		return false
	}
	return g.DeployEnabled()
}
