package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/captionly-dev/captionly/internal/cli/routeguard"
)

const locationAnnotation = "captionly/location"

// Locations of commands outside the four route guard constants
const (
	locationForgotPassword = "/(auth)/forgot-password"
	locationResetPassword  = "/(auth)/reset-password"
	locationImages         = "/(tabs)/captioning"
	locationProfile        = "/(tabs)/profile"
	locationAdmin          = "/(tabs)/admin"
)

// maxRedirects bounds Settle in case the rules ever loop
const maxRedirects = 4

// guardAt marks cmd (and its subcommands) as living at location
func guardAt(cmd *cobra.Command, location string) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[locationAnnotation] = location
	return cmd
}

// locationOf finds the closest declared location for cmd
func locationOf(cmd *cobra.Command) (string, bool) {
	for c := cmd; c != nil; c = c.Parent() {
		if loc, ok := c.Annotations[locationAnnotation]; ok {
			return loc, true
		}
	}
	return "", false
}

// RedirectError aborts a command the user may not run from the current state
type RedirectError struct {
	From string
	To   string
}

func (e *RedirectError) Error() string {
	switch e.To {
	case routeguard.LocationLogin:
		return fmt.Sprintf("You need to log in first. Run '%s'.", commandFor(e.To))
	case routeguard.LocationIntro:
		return fmt.Sprintf("Finish the introduction first. Run '%s'.", commandFor(e.To))
	default:
		return fmt.Sprintf("You are already logged in. Run '%s'.", commandFor(e.To))
	}
}

// ExitCode is 1 when the user has to log in, 0 for any other redirect
func (e *RedirectError) ExitCode() int {
	if e.To == routeguard.LocationLogin {
		return 1
	}
	return 0
}

// commandFor names the command that opens location
func commandFor(location string) string {
	switch {
	case location == routeguard.LocationRegister:
		return "captionly register"
	case routeguard.InAuthArea(location):
		return "captionly login"
	case routeguard.OnOnboarding(location):
		return "captionly intro"
	default:
		return "captionly feed"
	}
}

// Enter hydrates the session and checks that location may be shown
func (a *App) Enter(ctx context.Context, location string) error {
	a.Session.Hydrate(ctx)

	g := routeguard.New(a.Session, a.Onboarding, routeguard.NavigatorFunc(func(string) {}), location,
		routeguard.WithLogger(a.Logger))
	if d := g.Evaluate(ctx); d.Redirect {
		return &RedirectError{From: location, To: d.Target}
	}
	return nil
}

// Settle follows redirects from location and returns where the user ends up
func (a *App) Settle(ctx context.Context, location string) string {
	g := routeguard.New(a.Session, a.Onboarding, routeguard.NavigatorFunc(func(string) {}), location,
		routeguard.WithLogger(a.Logger))

	for i := 0; i < maxRedirects; i++ {
		if d := g.Evaluate(ctx); !d.Redirect {
			break
		}
	}
	return g.Location()
}

// printNext tells the user which command to run next
func (a *App) printNext(ctx context.Context, from string) {
	fmt.Fprintf(a.Out, "\nNext: %s\n", commandFor(a.Settle(ctx, from)))
}
