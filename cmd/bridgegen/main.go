package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"

	"github.com/teranos/bridgegen/cmd/bridgegen/commands"
	"github.com/teranos/bridgegen/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.NewRootCmd().ExecuteContext(ctx)
	stop()
	logger.Cleanup()
	if err != nil {
		fmt.Fprint(os.Stderr, pterm.Error.Sprintln(commands.Describe(err)))
	}
	os.Exit(commands.ExitCode(err))
}
