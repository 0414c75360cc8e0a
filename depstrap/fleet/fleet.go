// Package fleet bootstraps the dependency list on groups of remote hosts.
package fleet

import (
	"context"
	"fmt"
	"sync"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/depstrap/depstrap/depstrap/bootstrap"
	"github.com/depstrap/depstrap/depstrap/manifest"
)

// RunnerFunc builds the bootstrap runner for one host. It is injected so
// tests can substitute fakes for the SSH plumbing.
type RunnerFunc func(host string) (*bootstrap.Runner, error)

// HostResult aggregates one host's bootstrap outcome.
type HostResult struct {
	Host    string
	Results []bootstrap.Result
	Err     error
}

// Group is a set of hosts bootstrapped together.
type Group struct {
	Hosts     []string
	NewRunner RunnerFunc
	Log       *logrus.Logger
}

func (g *Group) logger() *logrus.Logger {
	if g.Log != nil {
		return g.Log
	}
	return logrus.StandardLogger()
}

// Bootstrap fans out across the group with at most maxConcurrency hosts in
// flight. Installs within one host stay strictly sequential. The returned
// slice has one entry per host in input order; the error aggregates every
// host-level failure.
func (g *Group) Bootstrap(ctx context.Context, specs []manifest.Spec, maxConcurrency int) ([]HostResult, error) {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	sem := make(chan struct{}, maxConcurrency)
	results := make([]HostResult, len(g.Hosts))
	var wg sync.WaitGroup

	for i, host := range g.Hosts {
		wg.Add(1)
		go func(index int, hostname string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[index] = g.bootstrapHost(ctx, hostname, specs)
		}(i, host)
	}
	wg.Wait()

	var aggregated *multierror.Error
	for _, hostResult := range results {
		if hostResult.Err != nil {
			aggregated = multierror.Append(aggregated, fmt.Errorf("host %s: %w", hostResult.Host, hostResult.Err))
		} else if bootstrap.ExitCode(hostResult.Results) != 0 {
			aggregated = multierror.Append(aggregated, fmt.Errorf("host %s: one or more installs failed", hostResult.Host))
		}
	}

	return results, aggregated.ErrorOrNil()
}

func (g *Group) bootstrapHost(ctx context.Context, hostname string, specs []manifest.Spec) HostResult {
	log := g.logger().WithField("host", hostname)
	log.Debug("Bootstrapping host")

	runner, err := g.NewRunner(hostname)
	if err != nil {
		log.WithError(err).Error("Failed to set up host runner")
		return HostResult{Host: hostname, Err: err}
	}

	results, err := runner.Run(ctx, specs)
	if err != nil {
		log.WithError(err).Error("Bootstrap aborted")
		return HostResult{Host: hostname, Results: results, Err: err}
	}

	log.WithField("failed", len(results)-succeededCount(results)).Info("Host bootstrap finished")
	return HostResult{Host: hostname, Results: results}
}

func succeededCount(results []bootstrap.Result) int {
	n := 0
	for _, result := range results {
		if result.Succeeded {
			n++
		}
	}
	return n
}
