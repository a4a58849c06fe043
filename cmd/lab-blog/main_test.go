package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/ssnover/lab-blog/internal/runtimeconfig"
)

func TestLoadConfigMissingFileNamesTheCause(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := loadConfig(defaultConfigFile)
	if err == nil {
		t.Fatal("expected error when site.yaml is missing and defaults are incomplete")
	}
	if !strings.Contains(err.Error(), defaultConfigFile) {
		t.Fatalf("expected error to name %s, got %v", defaultConfigFile, err)
	}
	if !errors.Is(err, runtimeconfig.ErrBaseURLRequired) {
		t.Fatalf("expected ErrBaseURLRequired cause, got %v", err)
	}
}
