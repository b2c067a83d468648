package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/st-keller/employee-client/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cmd.NewRootCommand()
	rootCmd.AddCommand(
		cmd.NewListCommand(),
		cmd.NewCreateCommand(),
		cmd.NewUpdateCommand(),
		cmd.NewDeleteCommand(),
		cmd.NewWatchCommand(),
		cmd.NewVersionCommand(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
