// Package installer wraps the external package-management tools that resolve
// and install named packages from a registry.
package installer

import (
	"context"
	"fmt"

	"github.com/depstrap/depstrap/depstrap/commandmanager"
	"github.com/depstrap/depstrap/depstrap/manifest"
)

// Installer is the collaborator the bootstrap runner drives. Implementations
// shell out through an injected CommandManager and never spawn processes
// directly.
type Installer interface {
	// Name identifies the tool, e.g. "pip".
	Name() string

	// Available probes whether the tool can be invoked at all.
	Available(ctx context.Context) error

	// Install satisfies a single spec. The returned result carries the raw
	// command output even on failure.
	Install(ctx context.Context, spec manifest.Spec) (commandmanager.CommandResult, error)

	// InstalledVersion reports the currently installed version of a package,
	// or "" when the package is absent.
	InstalledVersion(ctx context.Context, name string) (string, error)
}

// New returns the installer registered under the given name.
func New(name string, cm commandmanager.CommandManager) (Installer, error) {
	switch name {
	case "", "pip":
		return &PipInstaller{CommandManager: cm}, nil
	case "uv":
		return &UvInstaller{CommandManager: cm}, nil
	default:
		return nil, fmt.Errorf("unknown installer %q", name)
	}
}
