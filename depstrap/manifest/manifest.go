// Package manifest declares which packages a bootstrap run must satisfy and
// which application the bootstrap prepares.
package manifest

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Spec is a single declared requirement: a package name plus an optional
// minimum version. Immutable once declared.
type Spec struct {
	Name       string `toml:"name" json:"name"`
	MinVersion string `toml:"min_version" json:"min_version,omitempty"`
}

// Requirement renders the spec in the installer's constraint syntax,
// e.g. "pandas>=2.0.0".
func (s Spec) Requirement() string {
	if s.MinVersion == "" {
		return s.Name
	}
	return fmt.Sprintf("%s>=%s", s.Name, s.MinVersion)
}

// App describes the downstream application the bootstrap prepares. The
// bootstrap never starts it; Launch is only printed as an instruction.
type App struct {
	Name   string   `toml:"name"`
	Launch string   `toml:"launch"`
	Files  []string `toml:"files"`
}

// Manifest is the declarative input of a bootstrap run.
type Manifest struct {
	App          App    `toml:"app"`
	Dependencies []Spec `toml:"dependency"`
}

// Default returns the embedded manifest used when no requirements file is
// given on the command line.
func Default() Manifest {
	return Manifest{
		App: App{
			Name:   "BIST analysis dashboard",
			Launch: "streamlit run app.py",
			Files:  []string{"app.py", "bist_analyzer.py", "data_fetcher.py"},
		},
		Dependencies: []Spec{
			{Name: "streamlit", MinVersion: "1.28.0"},
			{Name: "pandas", MinVersion: "2.0.0"},
			{Name: "numpy", MinVersion: "1.24.0"},
			{Name: "yfinance", MinVersion: "0.2.18"},
			{Name: "requests", MinVersion: "2.31.0"},
			{Name: "beautifulsoup4", MinVersion: "4.12.0"},
			{Name: "lxml", MinVersion: "4.9.0"},
		},
	}
}

// Load reads and validates a manifest from a TOML file.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest load failed (%s): %w", path, err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest parse failed (%s): %w", path, err)
	}
	if err := Validate(m.Dependencies); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// InvalidSpecError reports a configuration error in the declared dependency
// list. It is fatal before any install begins.
type InvalidSpecError struct {
	Name   string
	Reason string
}

func (e *InvalidSpecError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid dependency list: %s", e.Reason)
	}
	return fmt.Sprintf("invalid dependency %q: %s", e.Name, e.Reason)
}

// Package identifier charset for the Python ecosystem.
var validName = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)

var normalizeRuns = regexp.MustCompile(`[-_.]+`)

// Normalize folds a package name the way the Python index does: lowercase,
// with runs of '-', '_' and '.' collapsed to a single '-'.
func Normalize(name string) string {
	return strings.ToLower(normalizeRuns.ReplaceAllString(name, "-"))
}

// Validate checks the declared dependency list: it must be non-empty, every
// name must be a valid package identifier, names must be unique after
// normalization, and minimum versions must parse.
func Validate(specs []Spec) error {
	if len(specs) == 0 {
		return &InvalidSpecError{Reason: "no dependencies declared"}
	}

	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return &InvalidSpecError{Reason: "dependency with empty name"}
		}
		if !validName.MatchString(spec.Name) {
			return &InvalidSpecError{Name: spec.Name, Reason: "not a valid package identifier"}
		}
		key := Normalize(spec.Name)
		if _, dup := seen[key]; dup {
			return &InvalidSpecError{Name: spec.Name, Reason: "declared more than once"}
		}
		seen[key] = struct{}{}

		if spec.MinVersion != "" {
			if _, err := parseVersion(spec.MinVersion); err != nil {
				return &InvalidSpecError{Name: spec.Name, Reason: fmt.Sprintf("bad minimum version %q", spec.MinVersion)}
			}
		}
	}
	return nil
}
