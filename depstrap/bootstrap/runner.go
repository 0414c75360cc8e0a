// Package bootstrap drives the package installer once per declared dependency
// and aggregates the outcomes.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/depstrap/depstrap/depstrap/installer"
	"github.com/depstrap/depstrap/depstrap/manifest"
)

// DefaultTimeout bounds a single install invocation.
const DefaultTimeout = 10 * time.Minute

// Status classifies the outcome of one dependency.
type Status string

const (
	// StatusInstalled means the installer was invoked and reported success.
	StatusInstalled Status = "installed"
	// StatusSatisfied means the package already met its minimum version and
	// no install was attempted.
	StatusSatisfied Status = "satisfied"
	// StatusFailed means the install was attempted and the installer
	// reported failure.
	StatusFailed Status = "failed"
)

// Result is the outcome record of attempting to satisfy one dependency.
type Result struct {
	Spec      manifest.Spec `json:"spec"`
	Status    Status        `json:"status"`
	Succeeded bool          `json:"succeeded"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration_ns"`
}

// ProgressFunc is notified when an install starts; the returned callback is
// invoked with the final result.
type ProgressFunc func(spec manifest.Spec) func(Result)

// Runner processes a dependency list sequentially against one installer.
type Runner struct {
	installer installer.Installer
	timeout   time.Duration
	force     bool
	progress  ProgressFunc
	log       *logrus.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the per-install timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithForce makes the runner install every dependency even when the installed
// version already satisfies the spec.
func WithForce(force bool) Option {
	return func(r *Runner) {
		r.force = force
	}
}

// WithLogger sets the logger used for per-step diagnostics.
func WithLogger(log *logrus.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithProgress registers a progress callback, typically a spinner.
func WithProgress(p ProgressFunc) Option {
	return func(r *Runner) {
		r.progress = p
	}
}

// New builds a Runner around the given package-management collaborator.
func New(inst installer.Installer, opts ...Option) *Runner {
	r := &Runner{
		installer: inst,
		timeout:   DefaultTimeout,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run validates the dependency list, probes the installer once, then attempts
// every spec in declared order. A failing install never prevents the
// remaining installs from being attempted; exactly one Result is produced per
// spec, in input order. The returned error is non-nil only for the fatal
// cases: an invalid spec list or an unavailable installer.
func (r *Runner) Run(ctx context.Context, specs []manifest.Spec) ([]Result, error) {
	if err := manifest.Validate(specs); err != nil {
		return nil, err
	}

	if err := r.installer.Available(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInstallerUnavailable, err)
	}

	results := make([]Result, 0, len(specs))
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, r.installOne(ctx, spec))
	}
	return results, nil
}

func (r *Runner) installOne(ctx context.Context, spec manifest.Spec) (result Result) {
	start := time.Now()
	result = Result{Spec: spec}

	if r.progress != nil {
		finish := r.progress(spec)
		defer func() { finish(result) }()
	}

	if !r.force {
		if installed := r.installedVersion(ctx, spec.Name); manifest.Satisfies(installed, spec.MinVersion) {
			result.Status = StatusSatisfied
			result.Succeeded = true
			result.Message = fmt.Sprintf("already satisfied (%s %s)", spec.Name, installed)
			result.Duration = time.Since(start)
			r.log.WithFields(logrus.Fields{
				"package":   spec.Name,
				"installed": installed,
			}).Debug("Dependency already satisfied")
			return result
		}
	}

	ictx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.log.WithField("requirement", spec.Requirement()).Info("Installing dependency")

	cmdResult, err := r.installer.Install(ictx, spec)
	result.Duration = time.Since(start)
	if err != nil {
		installErr := &InstallError{Package: spec.Name, Result: cmdResult, Err: err}
		result.Status = StatusFailed
		result.Message = installErr.Error()
		r.log.WithField("package", spec.Name).WithError(err).Error("Install failed")
		return result
	}

	result.Status = StatusInstalled
	result.Succeeded = true
	result.Message = fmt.Sprintf("installed %s", spec.Requirement())
	return result
}

// installedVersion is best effort: any probe error is treated as "not
// installed" so the run falls through to a real install attempt.
func (r *Runner) installedVersion(ctx context.Context, name string) string {
	installed, err := r.installer.InstalledVersion(ctx, name)
	if err != nil {
		r.log.WithField("package", name).WithError(err).Debug("Version probe failed")
		return ""
	}
	return installed
}

// AllSucceeded reports whether every result in the list succeeded.
func AllSucceeded(results []Result) bool {
	for _, result := range results {
		if !result.Succeeded {
			return false
		}
	}
	return true
}

// ExitCode maps a result list to the process exit code: zero only when every
// install succeeded.
func ExitCode(results []Result) int {
	if AllSucceeded(results) {
		return 0
	}
	return 1
}
