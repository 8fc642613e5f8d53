package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/captionly-dev/captionly/internal/cli/commands"
)

var version = "dev" // Will be set during build

// Execute runs the CLI and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := commands.NewApp()
	root := commands.NewRootCmd(app, version)

	if err := root.ExecuteContext(ctx); err != nil {
		var redirect *commands.RedirectError
		if errors.As(err, &redirect) {
			fmt.Fprintln(os.Stderr, redirect.Error())
			return redirect.ExitCode()
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
