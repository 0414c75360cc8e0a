package installer

import (
	"context"
	"fmt"
	"strings"

	cm "github.com/depstrap/depstrap/depstrap/commandmanager"
	"github.com/depstrap/depstrap/depstrap/manifest"
)

// UvInstaller drives uv's pip-compatible interface.
type UvInstaller struct {
	CommandManager cm.CommandManager

	// Sudo makes installs system-wide. Probes stay unprivileged.
	Sudo bool
}

func (u *UvInstaller) Name() string {
	return "uv"
}

func (u *UvInstaller) Available(ctx context.Context) error {
	result, err := u.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "uv",
		Args:    []string{"--version"},
	})
	if err != nil {
		return fmt.Errorf("uv probe failed: %w", err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("uv probe exited %d: %s", result.ExitCode, strings.TrimSpace(result.STDERR))
	}
	return nil
}

func (u *UvInstaller) Install(ctx context.Context, spec manifest.Spec) (cm.CommandResult, error) {
	result, err := u.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "uv",
		Args:    []string{"pip", "install", spec.Requirement()},
		Sudo:    u.Sudo,
	})
	if err != nil {
		return result, err
	}
	if result.ExitCode != 0 {
		return result, fmt.Errorf("uv pip install %s exited %d", spec.Requirement(), result.ExitCode)
	}
	return result, nil
}

func (u *UvInstaller) InstalledVersion(ctx context.Context, name string) (string, error) {
	result, err := u.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "uv",
		Args:    []string{"pip", "show", name},
	})
	if result.ExitCode != 0 {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return parseShowVersion(result.STDOUT), nil
}
