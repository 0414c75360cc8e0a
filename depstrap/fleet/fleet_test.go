package fleet

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depstrap/depstrap/depstrap/bootstrap"
	"github.com/depstrap/depstrap/depstrap/commandmanager"
	"github.com/depstrap/depstrap/depstrap/manifest"
)

type hostInstaller struct {
	failing bool
}

func (h *hostInstaller) Name() string                    { return "fake" }
func (h *hostInstaller) Available(context.Context) error { return nil }

func (h *hostInstaller) Install(_ context.Context, spec manifest.Spec) (commandmanager.CommandResult, error) {
	if h.failing {
		return commandmanager.CommandResult{ExitCode: 1}, errors.New("install exited 1")
	}
	return commandmanager.CommandResult{}, nil
}

func (h *hostInstaller) InstalledVersion(context.Context, string) (string, error) {
	return "", nil
}

func TestReadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.ini")
	content := `
[dashboard]
analysis01.example.com
analysis02.example.com

[staging]
stage01.example.com
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	targets, err := ReadTargets(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"analysis01.example.com", "analysis02.example.com"}, targets["dashboard"])
	assert.Equal(t, []string{"stage01.example.com"}, targets["staging"])

	hosts := Flatten(targets)
	assert.Equal(t, []string{"analysis01.example.com", "analysis02.example.com", "stage01.example.com"}, hosts)
}

func TestReadTargetsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.ini")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0644))

	_, err := ReadTargets(path)
	assert.Error(t, err)
}

func TestFlattenDeduplicates(t *testing.T) {
	hosts := Flatten(map[string][]string{
		"b": {"h2", "h3"},
		"a": {"h1", "h2"},
	})
	assert.Equal(t, []string{"h1", "h2", "h3"}, hosts)
}

func TestGroupBootstrap(t *testing.T) {
	group := &Group{
		Hosts: []string{"h1", "h2", "h3"},
		NewRunner: func(host string) (*bootstrap.Runner, error) {
			return bootstrap.New(&hostInstaller{failing: host == "h2"}), nil
		},
	}

	specs := []manifest.Spec{{Name: "pandas", MinVersion: "2.0.0"}}
	results, err := group.Bootstrap(context.Background(), specs, 2)

	require.Len(t, results, 3)
	assert.Equal(t, "h1", results[0].Host)
	assert.Equal(t, "h2", results[1].Host)
	assert.Equal(t, "h3", results[2].Host)

	// h2's install failed, the other hosts still completed
	assert.Equal(t, 0, bootstrap.ExitCode(results[0].Results))
	assert.Equal(t, 1, bootstrap.ExitCode(results[1].Results))
	assert.Equal(t, 0, bootstrap.ExitCode(results[2].Results))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "host h2")
	assert.NotContains(t, err.Error(), "host h1")
}

func TestGroupBootstrapRunnerSetupError(t *testing.T) {
	group := &Group{
		Hosts: []string{"h1"},
		NewRunner: func(string) (*bootstrap.Runner, error) {
			return nil, errors.New("no route to host")
		},
	}

	results, err := group.Bootstrap(context.Background(), []manifest.Spec{{Name: "pandas"}}, 4)
	require.Len(t, results, 1)
	require.Error(t, err)
	assert.ErrorContains(t, results[0].Err, "no route to host")
}

func TestGroupBootstrapAllHealthy(t *testing.T) {
	group := &Group{
		Hosts: []string{"h1", "h2"},
		NewRunner: func(string) (*bootstrap.Runner, error) {
			return bootstrap.New(&hostInstaller{}), nil
		},
	}

	results, err := group.Bootstrap(context.Background(), []manifest.Spec{{Name: "numpy"}}, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
