// Package spinner provides terminal progress feedback for long-running
// installs, degrading to plain lines when stdout is not a terminal.
package spinner

import (
	"context"
	"fmt"
	"os"

	"github.com/yarlson/pin"
	"golang.org/x/term"
)

type Spinner struct {
	p      *pin.Pin
	cancel context.CancelFunc
}

// New builds a spinner with the given message. On a non-terminal stdout the
// spinner is inert and only Stop/Fail print.
func New(message string) *Spinner {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return &Spinner{}
	}
	return &Spinner{
		p: pin.New(message, pin.WithSpinnerColor(pin.ColorCyan)),
	}
}

func (s *Spinner) Start(ctx context.Context) {
	if s.p != nil {
		s.cancel = s.p.Start(ctx)
	}
}

func (s *Spinner) Stop(message string) {
	if s.p == nil {
		fmt.Println(message)
		return
	}
	s.p.Stop(message)
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Spinner) Fail(message string) {
	if s.p == nil {
		fmt.Println(message)
		return
	}
	s.p.Fail(message)
	if s.cancel != nil {
		s.cancel()
	}
}
