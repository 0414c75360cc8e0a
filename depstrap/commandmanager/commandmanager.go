package commandmanager

import (
	"context"
	"time"
)

// CommandConfig describes a single invocation of an external command.
type CommandConfig struct {
	Command string
	Args    []string
	Env     []string
	Sudo    bool
}

// CommandResult encapsulates the results from a command execution.
type CommandResult struct {
	Command   string
	STDOUT    string
	STDERR    string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

// CommandManager executes commands against a single machine, local or remote.
// Implementations must honor context cancellation and deadlines.
type CommandManager interface {
	Run(ctx context.Context, config CommandConfig) (CommandResult, error)
}

// Credentials carries the authentication material used for remote execution
// and privileged local commands.
type Credentials struct {
	User          string
	Password      string
	KeyPassphrase string
	SudoPassword  string
}
