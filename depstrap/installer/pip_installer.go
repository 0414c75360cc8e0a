package installer

import (
	"context"
	"fmt"
	"strings"

	cm "github.com/depstrap/depstrap/depstrap/commandmanager"
	"github.com/depstrap/depstrap/depstrap/manifest"
)

// PipInstaller drives pip through the Python interpreter, the way the
// dashboard's own setup does: python -m pip install "name>=version".
type PipInstaller struct {
	CommandManager cm.CommandManager

	// Python overrides the interpreter; defaults to python3.
	Python string

	// Sudo makes installs system-wide. Probes stay unprivileged.
	Sudo bool
}

func (p *PipInstaller) interpreter() string {
	if p.Python != "" {
		return p.Python
	}
	return "python3"
}

func (p *PipInstaller) Name() string {
	return "pip"
}

func (p *PipInstaller) Available(ctx context.Context) error {
	result, err := p.CommandManager.Run(ctx, cm.CommandConfig{
		Command: p.interpreter(),
		Args:    []string{"-m", "pip", "--version"},
	})
	if err != nil {
		return fmt.Errorf("pip probe failed (%s): %w", p.interpreter(), err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("pip probe exited %d: %s", result.ExitCode, strings.TrimSpace(result.STDERR))
	}
	return nil
}

func (p *PipInstaller) Install(ctx context.Context, spec manifest.Spec) (cm.CommandResult, error) {
	result, err := p.CommandManager.Run(ctx, cm.CommandConfig{
		Command: p.interpreter(),
		Args:    []string{"-m", "pip", "install", spec.Requirement()},
		Env:     []string{"PIP_DISABLE_PIP_VERSION_CHECK=1"},
		Sudo:    p.Sudo,
	})
	if err != nil {
		return result, err
	}
	if result.ExitCode != 0 {
		return result, fmt.Errorf("pip install %s exited %d", spec.Requirement(), result.ExitCode)
	}
	return result, nil
}

func (p *PipInstaller) InstalledVersion(ctx context.Context, name string) (string, error) {
	result, err := p.CommandManager.Run(ctx, cm.CommandConfig{
		Command: p.interpreter(),
		Args:    []string{"-m", "pip", "show", name},
	})
	if result.ExitCode != 0 {
		// pip show exits 1 when the package is not installed
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return parseShowVersion(result.STDOUT), nil
}

// parseShowVersion extracts the Version: line from pip show output.
func parseShowVersion(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, "Version:"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
