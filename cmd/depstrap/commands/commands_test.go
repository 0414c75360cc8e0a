package commands_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depstrap/depstrap/cmd/depstrap/commands"
	cm "github.com/depstrap/depstrap/depstrap/commandmanager"
	"github.com/depstrap/depstrap/depstrap/installer"
	"github.com/depstrap/depstrap/depstrap/manifest"
)

type scriptedInstaller struct {
	failing   map[string]bool
	installed map[string]string
	attempts  []string
}

func (s *scriptedInstaller) Name() string                    { return "fake" }
func (s *scriptedInstaller) Available(context.Context) error { return nil }

func (s *scriptedInstaller) Install(_ context.Context, spec manifest.Spec) (cm.CommandResult, error) {
	s.attempts = append(s.attempts, spec.Name)
	if s.failing[spec.Name] {
		return cm.CommandResult{ExitCode: 1, STDERR: "boom"}, errors.New("install exited 1")
	}
	return cm.CommandResult{}, nil
}

func (s *scriptedInstaller) InstalledVersion(_ context.Context, name string) (string, error) {
	return s.installed[name], nil
}

func writeManifest(t *testing.T, deps string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bootstrap.toml")
	content := `
[app]
name = "dashboard"
launch = "streamlit run app.py"
` + deps
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, cli *commands.CLI, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cli.SetArgs(args)
	cli.SetOutput(&out, &out)
	err := cli.Execute(context.Background())
	return out.String(), err
}

func TestPlan(t *testing.T) {
	path := writeManifest(t, `
[[dependency]]
name = "pandas"
min_version = "2.0.0"

[[dependency]]
name = "numpy"
min_version = "1.24.0"
`)

	out, err := run(t, commands.New(), "plan", "--requirements", path)
	require.NoError(t, err)
	assert.Contains(t, out, "pandas>=2.0.0")
	assert.Contains(t, out, "numpy>=1.24.0")
	assert.Contains(t, out, "streamlit run app.py")
}

func TestPlanDefaultManifest(t *testing.T) {
	out, err := run(t, commands.New(), "plan")
	require.NoError(t, err)
	assert.Contains(t, out, "streamlit>=1.28.0")
	assert.Contains(t, out, "lxml>=4.9.0")
}

func TestInstallDryRun(t *testing.T) {
	path := writeManifest(t, `
[[dependency]]
name = "pandas"
min_version = "2.0.0"
`)

	fake := &scriptedInstaller{}
	cli := commands.New()
	cli.SetInstallerFactory(func(string, string, bool, cm.CommandManager) (installer.Installer, error) {
		return fake, nil
	})

	out, err := run(t, cli, "install", "--dry-run", "--requirements", path)
	require.NoError(t, err)
	assert.Contains(t, out, "pandas>=2.0.0")
	assert.Empty(t, fake.attempts, "dry run must not invoke the installer")
}

func TestInstallSuccess(t *testing.T) {
	path := writeManifest(t, `
[[dependency]]
name = "pandas"
min_version = "2.0.0"

[[dependency]]
name = "numpy"
min_version = "1.24.0"
`)

	fake := &scriptedInstaller{}
	cli := commands.New()
	cli.SetInstallerFactory(func(string, string, bool, cm.CommandManager) (installer.Installer, error) {
		return fake, nil
	})

	out, err := run(t, cli, "install", "--assume-yes", "--requirements", path)
	require.NoError(t, err)
	assert.Equal(t, []string{"pandas", "numpy"}, fake.attempts)
	assert.Contains(t, out, "2 installed, 0 already satisfied, 0 failed")
	assert.Contains(t, out, "streamlit run app.py")
}

func TestInstallFailure(t *testing.T) {
	path := writeManifest(t, `
[[dependency]]
name = "pandas"
min_version = "2.0.0"

[[dependency]]
name = "bogus-pkg-xyz"
min_version = "1.0.0"
`)

	fake := &scriptedInstaller{failing: map[string]bool{"bogus-pkg-xyz": true}}
	cli := commands.New()
	cli.SetInstallerFactory(func(string, string, bool, cm.CommandManager) (installer.Installer, error) {
		return fake, nil
	})

	out, err := run(t, cli, "install", "--assume-yes", "--requirements", path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, commands.ErrInstallsFailed))
	// pandas was still attempted and recorded before the failure
	assert.Equal(t, []string{"pandas", "bogus-pkg-xyz"}, fake.attempts)
	assert.Contains(t, out, "1 installed, 0 already satisfied, 1 failed")
	assert.NotContains(t, out, "All set.")
}

func TestInstallWritesReport(t *testing.T) {
	path := writeManifest(t, `
[[dependency]]
name = "pandas"
`)
	reportPath := filepath.Join(t.TempDir(), "report.json")

	cli := commands.New()
	cli.SetInstallerFactory(func(string, string, bool, cm.CommandManager) (installer.Installer, error) {
		return &scriptedInstaller{}, nil
	})

	_, err := run(t, cli, "install", "--assume-yes", "--requirements", path, "--report", reportPath)
	require.NoError(t, err)

	b, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"pandas"`)
}

func TestInstallMissingRequiredFile(t *testing.T) {
	manifestWithFiles := filepath.Join(t.TempDir(), "bootstrap.toml")
	require.NoError(t, os.WriteFile(manifestWithFiles, []byte(`
[app]
name = "dashboard"
launch = "streamlit run app.py"
files = ["definitely_not_here.py"]

[[dependency]]
name = "pandas"
`), 0644))

	cli := commands.New()
	cli.SetInstallerFactory(func(string, string, bool, cm.CommandManager) (installer.Installer, error) {
		return &scriptedInstaller{}, nil
	})

	_, err := run(t, cli, "install", "--assume-yes", "--requirements", manifestWithFiles)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definitely_not_here.py")
}

func TestPlanUnknownInstaller(t *testing.T) {
	_, err := run(t, commands.New(), "plan", "--installer", "npm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown installer "npm"`)
}

func TestInstallSystemFlagReachesInstaller(t *testing.T) {
	path := writeManifest(t, `
[[dependency]]
name = "pandas"
`)

	var gotSudo bool
	factory := func(_, _ string, sudo bool, _ cm.CommandManager) (installer.Installer, error) {
		gotSudo = sudo
		return &scriptedInstaller{}, nil
	}

	cli := commands.New()
	cli.SetInstallerFactory(factory)
	_, err := run(t, cli, "install", "--assume-yes", "--system", "--requirements", path)
	require.NoError(t, err)
	assert.True(t, gotSudo)

	cli = commands.New()
	cli.SetInstallerFactory(factory)
	_, err = run(t, cli, "install", "--assume-yes", "--requirements", path)
	require.NoError(t, err)
	assert.False(t, gotSudo)
}

func TestInstallReportRejectedForRemote(t *testing.T) {
	path := writeManifest(t, `
[[dependency]]
name = "pandas"
`)
	reportPath := filepath.Join(t.TempDir(), "report.json")

	fake := &scriptedInstaller{}
	cli := commands.New()
	cli.SetInstallerFactory(func(string, string, bool, cm.CommandManager) (installer.Installer, error) {
		return fake, nil
	})

	_, err := run(t, cli, "install", "--assume-yes", "--requirements", path,
		"--hostname", "analysis01.example.com", "--report", reportPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--report")
	assert.Empty(t, fake.attempts)
	assert.NoFileExists(t, reportPath)
}

func TestInstallInvalidManifest(t *testing.T) {
	path := writeManifest(t, `
[[dependency]]
name = "pandas"

[[dependency]]
name = "pandas"
`)

	_, err := run(t, commands.New(), "install", "--assume-yes", "--requirements", path)
	require.Error(t, err)
	var invalid *manifest.InvalidSpecError
	assert.True(t, errors.As(err, &invalid))
}

func TestVersion(t *testing.T) {
	out, err := run(t, commands.New(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "depstrap version")
}
