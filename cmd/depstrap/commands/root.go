// Package commands implements the CLI commands for the depstrap bootstrap
// utility.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/depstrap/depstrap/depstrap/commandmanager"
	"github.com/depstrap/depstrap/depstrap/installer"
)

// ErrInstallsFailed signals that the run completed but at least one
// dependency could not be installed. The summary has already been printed
// when it surfaces.
var ErrInstallsFailed = errors.New("one or more dependencies failed to install")

// InstallerFactory builds the package-management collaborator for one target
// machine. When sudo is set the installer performs system-wide installs.
type InstallerFactory func(name, python string, sudo bool, cm commandmanager.CommandManager) (installer.Installer, error)

// CLI represents the command line interface for depstrap.
type CLI struct {
	rootCmd *cobra.Command
	log     *logrus.Logger

	newInstaller InstallerFactory

	debug   bool
	logFile string
}

// New creates a new CLI instance.
func New() *CLI {
	c := &CLI{
		log:          logrus.New(),
		newInstaller: defaultInstallerFactory,
	}

	rootCmd := &cobra.Command{
		Use:           "depstrap",
		Short:         "Bootstrap the dependencies of the analysis dashboard",
		Long:          "depstrap installs the packages the analysis dashboard needs, reports the outcome per dependency, and tells you how to launch the app.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.configureLogger()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "Enable debug log level")
	rootCmd.PersistentFlags().StringVar(&c.logFile, "log", "", "Append logs to this file instead of stderr")

	c.rootCmd = rootCmd

	rootCmd.AddCommand(c.newInstallCmd())
	rootCmd.AddCommand(c.newPlanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

func (c *CLI) configureLogger() error {
	if c.debug {
		c.log.SetLevel(logrus.DebugLevel)
	} else {
		c.log.SetLevel(logrus.InfoLevel)
	}

	if c.logFile != "" {
		file, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("cannot open log file: %w", err)
		}
		c.log.SetOutput(file)
	}
	return nil
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for
// testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// SetInstallerFactory replaces how installers are built. Used for testing.
func (c *CLI) SetInstallerFactory(f InstallerFactory) {
	c.newInstaller = f
}

func defaultInstallerFactory(name, python string, sudo bool, cm commandmanager.CommandManager) (installer.Installer, error) {
	inst, err := installer.New(name, cm)
	if err != nil {
		return nil, err
	}
	switch i := inst.(type) {
	case *installer.PipInstaller:
		if python != "" {
			i.Python = python
		}
		i.Sudo = sudo
	case *installer.UvInstaller:
		i.Sudo = sudo
	}
	return inst, nil
}

// Execute builds the CLI, runs it, and maps the outcome to a process exit
// code: zero only when every dependency was satisfied.
func Execute(ctx context.Context) int {
	cli := New()
	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, ErrInstallsFailed) {
			// per-dependency outcomes were already summarized
			fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		} else {
			cli.log.Error(err)
		}
		return 1
	}
	return 0
}
