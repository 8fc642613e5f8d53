package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/captionly-dev/captionly/internal/cli/alert"
	"github.com/captionly-dev/captionly/internal/cli/onboarding"
	"github.com/captionly-dev/captionly/internal/cli/routeguard"
)

// NewIntroCmd creates the intro command
func NewIntroCmd(app *App) *cobra.Command {
	var skip bool

	cmd := &cobra.Command{
		Use:   "intro",
		Short: "Show the introduction",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntro(cmd.Context(), app, skip)
		},
	}

	cmd.Flags().BoolVar(&skip, "skip", false, "Skip to the last slide")

	return guardAt(cmd, routeguard.LocationIntro)
}

func runIntro(ctx context.Context, app *App, skip bool) error {
	slides := onboarding.Slides
	if skip {
		slides = slides[len(slides)-1:]
	}

	total := len(onboarding.Slides)
	offset := total - len(slides)
	for i, slide := range slides {
		fmt.Fprintf(app.Out, "[%d/%d] %s\n", offset+i+1, total, slide.Title)
		fmt.Fprintf(app.Out, "      %s\n\n", slide.Description)
	}

	if err := app.Onboarding.Complete(ctx); err != nil {
		return alert.Wrap("Onboarding", err)
	}

	fmt.Fprintln(app.Out, "✓ You're all set!")
	app.printNext(ctx, routeguard.LocationIntro)
	return nil
}
