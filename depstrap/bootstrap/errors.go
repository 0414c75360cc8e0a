package bootstrap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/depstrap/depstrap/depstrap/commandmanager"
)

// ErrInstallerUnavailable means the package-management collaborator cannot be
// invoked at all. It aborts the whole run.
var ErrInstallerUnavailable = errors.New("installer unavailable")

// InstallError is a per-dependency failure. It is recorded in the result list
// and never aborts the remaining installs.
type InstallError struct {
	Package string
	Result  commandmanager.CommandResult
	Err     error
}

func (e *InstallError) Error() string {
	detail := lastLine(e.Result.STDERR)
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	return fmt.Sprintf("install of %s failed: %s", e.Package, detail)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// lastLine picks the final non-empty line of command output, which is where
// pip puts its actual error.
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
