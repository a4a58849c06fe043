package staticcmd

import (
	"context"
	"errors"
	"testing"

	"github.com/ssnover/lab-blog/internal/deploy"
	"github.com/ssnover/lab-blog/internal/generator"
)

func alwaysTrue() bool { return true }

type fakeGeneratorService struct {
	buildFunc func(ctx context.Context, opts generator.BuildOptions) (*generator.BuildResult, error)
	cleanFunc func(ctx context.Context) error
}

func (f *fakeGeneratorService) Build(ctx context.Context, opts generator.BuildOptions) (*generator.BuildResult, error) {
	if f.buildFunc == nil {
		return &generator.BuildResult{}, nil
	}
	return f.buildFunc(ctx, opts)
}

func (f *fakeGeneratorService) Clean(ctx context.Context) error {
	if f.cleanFunc == nil {
		return nil
	}
	return f.cleanFunc(ctx)
}

type fakeDeployer struct {
	deployFunc func(ctx context.Context, sourceDir string, opts deploy.Options) (*deploy.Result, error)
}

func (f *fakeDeployer) Deploy(ctx context.Context, sourceDir string, opts deploy.Options) (*deploy.Result, error) {
	if f.deployFunc == nil {
		return &deploy.Result{}, nil
	}
	return f.deployFunc(ctx, sourceDir, opts)
}

func TestBuildSiteHandler_Execute_Build(t *testing.T) {
	var capturedOpts generator.BuildOptions
	callbackInvoked := false

	svc := &fakeGeneratorService{
		buildFunc: func(ctx context.Context, opts generator.BuildOptions) (*generator.BuildResult, error) {
			capturedOpts = opts
			return &generator.BuildResult{PagesBuilt: 3}, nil
		},
	}

	handler := NewBuildSiteHandler(svc, nil, FeatureGates{GeneratorEnabled: alwaysTrue})

	cmd := BuildSiteCommand{Force: true, IncludeDrafts: true}
	cmd.ResultCallback = func(env BuildResultEnvelope) {
		callbackInvoked = true
		if env.Result == nil {
			t.Fatalf("expected build result, got nil")
		}
		if env.Result.PagesBuilt != 3 {
			t.Fatalf("expected PagesBuilt 3, got %d", env.Result.PagesBuilt)
		}
		if env.Metadata["operation"] != "build" {
			t.Fatalf("expected operation build, got %v", env.Metadata["operation"])
		}
	}

	if err := handler.Execute(context.Background(), cmd); err != nil {
		t.Fatalf("execute build: %v", err)
	}

	if !capturedOpts.Force {
		t.Fatalf("expected Force true")
	}
	if !capturedOpts.IncludeDrafts {
		t.Fatalf("expected IncludeDrafts true")
	}
	if capturedOpts.DryRun {
		t.Fatalf("expected DryRun false")
	}
	if !callbackInvoked {
		t.Fatal("expected callback to be invoked")
	}
}

func TestBuildSiteHandler_Execute_Disabled(t *testing.T) {
	handler := NewBuildSiteHandler(&fakeGeneratorService{}, nil, FeatureGates{})

	err := handler.Execute(context.Background(), BuildSiteCommand{})
	if !errors.Is(err, generator.ErrServiceDisabled) {
		t.Fatalf("expected ErrServiceDisabled, got %v", err)
	}
}

func TestBuildSiteHandler_Execute_PropagatesError(t *testing.T) {
	buildErr := errors.New("render failed")
	svc := &fakeGeneratorService{
		buildFunc: func(context.Context, generator.BuildOptions) (*generator.BuildResult, error) {
			return nil, buildErr
		},
	}
	handler := NewBuildSiteHandler(svc, nil, FeatureGates{GeneratorEnabled: alwaysTrue})

	err := handler.Execute(context.Background(), BuildSiteCommand{})
	if !errors.Is(err, buildErr) {
		t.Fatalf("expected wrapped build error, got %v", err)
	}
}

func TestDeploySiteHandler_Execute(t *testing.T) {
	var capturedDir string
	var capturedOpts deploy.Options
	callbackInvoked := false

	svc := &fakeDeployer{
		deployFunc: func(_ context.Context, sourceDir string, opts deploy.Options) (*deploy.Result, error) {
			capturedDir = sourceDir
			capturedOpts = opts
			return &deploy.Result{Uploaded: 5}, nil
		},
	}

	handler := NewDeploySiteHandler(svc, nil, FeatureGates{DeployEnabled: alwaysTrue})

	cmd := DeploySiteCommand{SourceDir: "dist", DryRun: true}
	cmd.ResultCallback = func(env DeployResultEnvelope) {
		callbackInvoked = true
		if env.Result == nil || env.Result.Uploaded != 5 {
			t.Fatalf("unexpected deploy result: %#v", env.Result)
		}
		if env.Metadata["operation"] != "deploy" {
			t.Fatalf("expected operation deploy, got %v", env.Metadata["operation"])
		}
	}

	if err := handler.Execute(context.Background(), cmd); err != nil {
		t.Fatalf("execute deploy: %v", err)
	}
	if capturedDir != "dist" {
		t.Fatalf("expected source dir dist, got %q", capturedDir)
	}
	if !capturedOpts.DryRun {
		t.Fatalf("expected dry run option passed through")
	}
	if !callbackInvoked {
		t.Fatal("expected callback to be invoked")
	}
}

func TestDeploySiteHandler_Execute_ValidatesSource(t *testing.T) {
	handler := NewDeploySiteHandler(&fakeDeployer{}, nil, FeatureGates{DeployEnabled: alwaysTrue})

	if err := handler.Execute(context.Background(), DeploySiteCommand{}); err == nil {
		t.Fatal("expected validation error for empty source_dir")
	}
}

func TestDeploySiteHandler_Execute_Disabled(t *testing.T) {
	handler := NewDeploySiteHandler(&fakeDeployer{}, nil, FeatureGates{})

	err := handler.Execute(context.Background(), DeploySiteCommand{SourceDir: "dist"})
	if !errors.Is(err, deploy.ErrServiceDisabled) {
		t.Fatalf("expected ErrServiceDisabled, got %v", err)
	}
}

func TestCleanSiteHandler_Execute(t *testing.T) {
	cleaned := false
	svc := &fakeGeneratorService{
		cleanFunc: func(context.Context) error {
			cleaned = true
			return nil
		},
	}
	handler := NewCleanSiteHandler(svc, nil, FeatureGates{GeneratorEnabled: alwaysTrue})

	if err := handler.Execute(context.Background(), CleanSiteCommand{}); err != nil {
		t.Fatalf("execute clean: %v", err)
	}
	if !cleaned {
		t.Fatal("expected Clean to be called")
	}
}
