package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/depstrap/depstrap/depstrap/bootstrap"
	"github.com/depstrap/depstrap/depstrap/commandmanager"
	"github.com/depstrap/depstrap/depstrap/fleet"
	"github.com/depstrap/depstrap/depstrap/manifest"
	"github.com/depstrap/depstrap/depstrap/spinner"
)

var launchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#32BD27"))

type installFlags struct {
	Requirements       string
	DryRun             bool
	Force              bool
	AssumeYes          bool
	System             bool
	Timeout            time.Duration
	Report             string
	Installer          string
	Python             string
	Hostnames          []string
	Targets            string
	Username           string
	PasswordPrompt     bool
	KeyPassPrompt      bool
	SudoPasswordPrompt bool
	Concurrency        int
}

func (c *CLI) newInstallCmd() *cobra.Command {
	f := &installFlags{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install every declared dependency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runInstall(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.Requirements, "requirements", "r", "", "Path to a TOML requirements manifest (defaults to the embedded list)")
	cmd.Flags().BoolVar(&f.DryRun, "dry-run", false, "Print the planned installs without executing them")
	cmd.Flags().BoolVar(&f.Force, "force", false, "Reinstall dependencies even when already satisfied")
	cmd.Flags().BoolVarP(&f.AssumeYes, "assume-yes", "y", false, "Do not ask for confirmation before installing")
	cmd.Flags().DurationVar(&f.Timeout, "timeout", bootstrap.DefaultTimeout, "Timeout for a single install")
	cmd.Flags().StringVar(&f.Report, "report", "", "Write a JSON report of the run to this file")
	cmd.Flags().StringVar(&f.Installer, "installer", "pip", "Package installer to use (pip or uv)")
	cmd.Flags().StringVar(&f.Python, "python", "", "Python interpreter pip is invoked through")
	cmd.Flags().StringArrayVar(&f.Hostnames, "hostname", nil, "Bootstrap this remote host instead of the local machine (repeatable)")
	cmd.Flags().StringVar(&f.Targets, "targets", "", "Path to an INI targets file naming remote host groups")
	cmd.Flags().StringVar(&f.Username, "username", "", "Username for the SSH connection")
	cmd.Flags().BoolVar(&f.PasswordPrompt, "password", false, "Prompt for an SSH password")
	cmd.Flags().BoolVar(&f.KeyPassPrompt, "keypass", false, "Prompt for the SSH key passphrase")
	cmd.Flags().BoolVar(&f.System, "system", false, "Install packages system-wide through sudo")
	cmd.Flags().BoolVar(&f.SudoPasswordPrompt, "sudo-password", false, "Prompt for the sudo password")
	cmd.Flags().IntVar(&f.Concurrency, "concurrency", 10, "Maximum number of hosts bootstrapped at once")

	return cmd
}

func (c *CLI) runInstall(cmd *cobra.Command, f *installFlags) error {
	m, err := c.loadManifest(f.Requirements)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if f.DryRun {
		printPlan(out, m, f.Installer)
		return nil
	}

	remote := len(f.Hostnames) > 0 || f.Targets != ""

	if remote && f.Report != "" {
		return fmt.Errorf("--report is not supported for remote runs")
	}

	if !remote {
		if err := bootstrap.CheckFiles(m.App.Files); err != nil {
			return err
		}
	}

	if !f.AssumeYes && !confirm(cmd.InOrStdin(), out, len(m.Dependencies), f.Installer) {
		fmt.Fprintln(out, "Install skipped.")
		printLaunch(out, m)
		return nil
	}

	if remote {
		return c.runRemote(cmd.Context(), out, m, f)
	}
	return c.runLocal(cmd.Context(), out, m, f)
}

func (c *CLI) loadManifest(path string) (manifest.Manifest, error) {
	if path == "" {
		return manifest.Default(), nil
	}
	return manifest.Load(path)
}

func (c *CLI) runnerOptions(f *installFlags, withProgress bool) []bootstrap.Option {
	opts := []bootstrap.Option{
		bootstrap.WithTimeout(f.Timeout),
		bootstrap.WithForce(f.Force),
		bootstrap.WithLogger(c.log),
	}
	if withProgress {
		opts = append(opts, bootstrap.WithProgress(spinnerProgress))
	}
	return opts
}

func (c *CLI) runLocal(ctx context.Context, out io.Writer, m manifest.Manifest, f *installFlags) error {
	creds, err := c.readCredentials(f)
	if err != nil {
		return err
	}

	cm := &commandmanager.LocalCommandManager{Log: c.log, Credentials: creds}
	inst, err := c.newInstaller(f.Installer, f.Python, f.System, cm)
	if err != nil {
		return err
	}

	startedAt := time.Now()
	runner := bootstrap.New(inst, c.runnerOptions(f, true)...)

	results, err := runner.Run(ctx, m.Dependencies)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	bootstrap.Summarize(out, results)

	if f.Report != "" {
		if err := bootstrap.WriteReport(f.Report, bootstrap.NewReport(inst.Name(), startedAt, results)); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if bootstrap.ExitCode(results) != 0 {
		return ErrInstallsFailed
	}

	printLaunch(out, m)
	return nil
}

func (c *CLI) runRemote(ctx context.Context, out io.Writer, m manifest.Manifest, f *installFlags) error {
	hosts := append([]string(nil), f.Hostnames...)
	if f.Targets != "" {
		targets, err := fleet.ReadTargets(f.Targets)
		if err != nil {
			return err
		}
		hosts = append(hosts, fleet.Flatten(targets)...)
	}

	creds, err := c.readCredentials(f)
	if err != nil {
		return err
	}

	group := &fleet.Group{
		Hosts: hosts,
		Log:   c.log,
		NewRunner: func(host string) (*bootstrap.Runner, error) {
			cm := &commandmanager.SSHCommandManager{
				Hostname:    host,
				Dialer:      commandmanager.NetSSHDialer{},
				Log:         c.log,
				Credentials: creds,
			}
			inst, err := c.newInstaller(f.Installer, f.Python, f.System, cm)
			if err != nil {
				return nil, err
			}
			return bootstrap.New(inst, c.runnerOptions(f, false)...), nil
		},
	}

	hostResults, err := group.Bootstrap(ctx, m.Dependencies, f.Concurrency)
	for _, hostResult := range hostResults {
		fmt.Fprintf(out, "\n== %s\n", hostResult.Host)
		if hostResult.Err != nil {
			fmt.Fprintf(out, "bootstrap aborted: %v\n", hostResult.Err)
		}
		if len(hostResult.Results) > 0 {
			bootstrap.Summarize(out, hostResult.Results)
		}
	}
	return err
}

func printPlan(w io.Writer, m manifest.Manifest, installerName string) {
	fmt.Fprintf(w, "Planned installs (%s):\n", installerName)
	for _, spec := range m.Dependencies {
		fmt.Fprintf(w, "  %s\n", spec.Requirement())
	}
	if len(m.App.Files) > 0 {
		fmt.Fprintf(w, "Required files: %s\n", strings.Join(m.App.Files, ", "))
	}
	if m.App.Launch != "" {
		fmt.Fprintf(w, "Launch command: %s\n", m.App.Launch)
	}
}

func printLaunch(w io.Writer, m manifest.Manifest) {
	if m.App.Launch == "" {
		return
	}
	name := m.App.Name
	if name == "" {
		name = "application"
	}
	fmt.Fprintf(w, "\nAll set. Launch the %s with:\n", name)
	fmt.Fprintf(w, "  %s\n", launchStyle.Render(m.App.Launch))
}

// confirm asks before touching the environment, but only when stdin is a
// terminal; in scripts and CI the run proceeds unprompted.
func confirm(in io.Reader, out io.Writer, count int, installerName string) bool {
	stdin, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(stdin.Fd())) {
		return true
	}

	fmt.Fprintf(out, "Install %d dependencies with %s? [y/N]: ", count, installerName)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func spinnerProgress(spec manifest.Spec) func(bootstrap.Result) {
	s := spinner.New("Installing " + spec.Requirement() + " ...")
	s.Start(context.Background())
	return func(result bootstrap.Result) {
		if result.Succeeded {
			s.Stop(result.Message)
		} else {
			s.Fail(result.Message)
		}
	}
}
