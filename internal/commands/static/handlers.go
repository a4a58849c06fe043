package staticcmd

import (
	"context"

	"github.com/ssnover/lab-blog/internal/commands"
	"github.com/ssnover/lab-blog/internal/deploy"
	"github.com/ssnover/lab-blog/internal/generator"
	"github.com/ssnover/lab-blog/internal/logging"
	"github.com/ssnover/lab-blog/pkg/interfaces"
)

// BuildSiteHandler orchestrates generator builds using the shared command handler foundation.
type BuildSiteHandler struct {
	inner *commands.Handler[BuildSiteCommand]
}

// NewBuildSiteHandler constructs a handler wired to the provided generator service.
func NewBuildSiteHandler(service generator.Service, logger interfaces.Logger, gates FeatureGates, opts ...commands.HandlerOption[BuildSiteCommand]) *BuildSiteHandler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NoOp()
	}

	exec := func(ctx context.Context, msg BuildSiteCommand) error {
		if service == nil || !gates.generatorEnabled() {
			return generator.ErrServiceDisabled
		}

		options := generator.BuildOptions{
			Force:         msg.Force,
			DryRun:        msg.DryRun,
			IncludeDrafts: msg.IncludeDrafts,
		}

		result, err := service.Build(ctx, options)
		invokeBuildCallback(msg.ResultCallback, BuildResultEnvelope{
			Result: result,
			Metadata: map[string]any{
				"operation": "build",
			},
		})
		return err
	}

	handlerOpts := []commands.HandlerOption[BuildSiteCommand]{
		commands.WithLogger[BuildSiteCommand](baseLogger),
		commands.WithOperation[BuildSiteCommand]("static.build"),
		commands.WithMessageFields(func(msg BuildSiteCommand) map[string]any {
			fields := map[string]any{}
			if msg.Force {
				fields["force"] = true
			}
			if msg.DryRun {
				fields["dry_run"] = true
			}
			if msg.IncludeDrafts {
				fields["include_drafts"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[BuildSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &BuildSiteHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[BuildSiteCommand].
func (h *BuildSiteHandler) Execute(ctx context.Context, msg BuildSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// Deployer is the slice of the deploy service the handler needs.
type Deployer interface {
	Deploy(ctx context.Context, sourceDir string, opts deploy.Options) (*deploy.Result, error)
}

// DeploySiteHandler pushes build output to object storage.
type DeploySiteHandler struct {
	inner *commands.Handler[DeploySiteCommand]
}

// NewDeploySiteHandler constructs a handler wired to the provided deploy service.
func NewDeploySiteHandler(service Deployer, logger interfaces.Logger, gates FeatureGates, opts ...commands.HandlerOption[DeploySiteCommand]) *DeploySiteHandler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NoOp()
	}

	exec := func(ctx context.Context, msg DeploySiteCommand) error {
		if service == nil || !gates.deployEnabled() {
			return deploy.ErrServiceDisabled
		}

		result, err := service.Deploy(ctx, msg.SourceDir, deploy.Options{
			DryRun: msg.DryRun,
			Force:  msg.Force,
		})
		invokeDeployCallback(msg.ResultCallback, DeployResultEnvelope{
			Result: result,
			Metadata: map[string]any{
				"operation": "deploy",
			},
		})
		return err
	}

	handlerOpts := []commands.HandlerOption[DeploySiteCommand]{
		commands.WithLogger[DeploySiteCommand](baseLogger),
		commands.WithOperation[DeploySiteCommand]("static.deploy"),
		commands.WithMessageFields(func(msg DeploySiteCommand) map[string]any {
			fields := map[string]any{
				"source_dir": msg.SourceDir,
			}
			if msg.DryRun {
				fields["dry_run"] = true
			}
			if msg.Force {
				fields["force"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[DeploySiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &DeploySiteHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[DeploySiteCommand].
func (h *DeploySiteHandler) Execute(ctx context.Context, msg DeploySiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CleanSiteHandler clears generator artifacts.
type CleanSiteHandler struct {
	inner *commands.Handler[CleanSiteCommand]
}

// NewCleanSiteHandler constructs a handler that cleans generator output.
func NewCleanSiteHandler(service generator.Service, logger interfaces.Logger, gates FeatureGates, opts ...commands.HandlerOption[CleanSiteCommand]) *CleanSiteHandler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = logging.NoOp()
	}

	exec := func(ctx context.Context, msg CleanSiteCommand) error {
		if service == nil || !gates.generatorEnabled() {
			return generator.ErrServiceDisabled
		}
		return service.Clean(ctx)
	}

	handlerOpts := []commands.HandlerOption[CleanSiteCommand]{
		commands.WithLogger[CleanSiteCommand](baseLogger),
		commands.WithOperation[CleanSiteCommand]("static.clean"),
		commands.WithTelemetry(commands.DefaultTelemetry[CleanSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &CleanSiteHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[CleanSiteCommand].
func (h *CleanSiteHandler) Execute(ctx context.Context, msg CleanSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

func invokeBuildCallback(cb BuildResultCallback, envelope BuildResultEnvelope) {
	if cb == nil {
		return
	}
	cb(envelope)
}

func invokeDeployCallback(cb DeployResultCallback, envelope DeployResultEnvelope) {
	if cb == nil {
		return
	}
	cb(envelope)
}
