// Package main is the entry point for the depstrap bootstrap utility.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/depstrap/depstrap/cmd/depstrap/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := commands.Execute(ctx)
	stop()
	os.Exit(code)
}
