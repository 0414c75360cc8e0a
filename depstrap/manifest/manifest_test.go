package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	m := Default()
	require.NoError(t, Validate(m.Dependencies))
	assert.Equal(t, "streamlit", m.Dependencies[0].Name)
	assert.NotEmpty(t, m.App.Launch)
}

func TestRequirement(t *testing.T) {
	assert.Equal(t, "pandas>=2.0.0", Spec{Name: "pandas", MinVersion: "2.0.0"}.Requirement())
	assert.Equal(t, "pandas", Spec{Name: "pandas"}.Requirement())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.toml")
	content := `
[app]
name = "dashboard"
launch = "streamlit run app.py"
files = ["app.py"]

[[dependency]]
name = "pandas"
min_version = "2.0.0"

[[dependency]]
name = "numpy"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dashboard", m.App.Name)
	require.Len(t, m.Dependencies, 2)
	assert.Equal(t, Spec{Name: "pandas", MinVersion: "2.0.0"}, m.Dependencies[0])
	assert.Equal(t, "", m.Dependencies[1].MinVersion)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		specs  []Spec
		reason string
	}{
		{name: "empty list", specs: nil, reason: "no dependencies declared"},
		{name: "empty name", specs: []Spec{{Name: ""}}, reason: "dependency with empty name"},
		{name: "bad identifier", specs: []Spec{{Name: "pkg with spaces"}}, reason: "not a valid package identifier"},
		{name: "duplicate", specs: []Spec{{Name: "Beautiful_Soup4"}, {Name: "beautiful-soup4"}}, reason: "declared more than once"},
		{name: "bad version", specs: []Spec{{Name: "pandas", MinVersion: "latest"}}, reason: `bad minimum version "latest"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.specs)
			require.Error(t, err)
			var invalid *InvalidSpecError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.reason, invalid.Reason)
		})
	}

	assert.NoError(t, Validate([]Spec{{Name: "pandas", MinVersion: "2.0.0"}, {Name: "numpy"}}))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "beautiful-soup4", Normalize("Beautiful_Soup4"))
	assert.Equal(t, "a-b-c", Normalize("a-_.b..c"))
}

func TestSatisfies(t *testing.T) {
	assert.True(t, Satisfies("2.1.0", "2.0.0"))
	assert.True(t, Satisfies("2.0.0", "2.0.0"))
	assert.False(t, Satisfies("1.5.3", "2.0.0"))
	assert.False(t, Satisfies("", "2.0.0"))
	assert.True(t, Satisfies("0.1.0", ""))
	assert.False(t, Satisfies("garbage", "2.0.0"))
}
