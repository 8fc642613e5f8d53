package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/captionly-dev/captionly/internal/cli/alert"
	"github.com/captionly-dev/captionly/internal/cli/api"
)

// NewProfileCmd creates the profile command group
func NewProfileCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}

	cmd.AddCommand(newProfileShowCmd(app))
	cmd.AddCommand(newProfileUpdateCmd(app))

	return guardAt(cmd, locationProfile)
}

func newProfileShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileShow(cmd.Context(), app)
		},
	}
}

func runProfileShow(ctx context.Context, app *App) error {
	user, err := app.API.Users.GetProfile(ctx)
	if err != nil {
		return alert.Wrap("Profile", err)
	}

	fmt.Fprintf(app.Out, "Username:  %s\n", user.Username)
	fmt.Fprintf(app.Out, "Email:     %s\n", user.Email)
	fmt.Fprintf(app.Out, "Full name: %s\n", valueOr(user.FullName, "-"))
	fmt.Fprintf(app.Out, "Role:      %s\n", user.Role)
	fmt.Fprintf(app.Out, "Active:    %t\n", user.IsActive)
	return nil
}

func newProfileUpdateCmd(app *App) *cobra.Command {
	var fullName, email string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update your name or email",
		RunE: func(cmd *cobra.Command, args []string) error {
			var update api.ProfileUpdate
			if cmd.Flags().Changed("full-name") {
				update.FullName = &fullName
			}
			if cmd.Flags().Changed("email") {
				update.Email = &email
			}
			return runProfileUpdate(cmd.Context(), app, update)
		},
	}

	cmd.Flags().StringVar(&fullName, "full-name", "", "New full name")
	cmd.Flags().StringVar(&email, "email", "", "New email address")

	return cmd
}

func runProfileUpdate(ctx context.Context, app *App, update api.ProfileUpdate) error {
	if update.FullName == nil && update.Email == nil {
		return fmt.Errorf("nothing to update (use --full-name or --email)")
	}

	user, err := app.API.Users.UpdateProfile(ctx, update)
	if err != nil && !errors.Is(err, api.ErrEmptyResponse) {
		return alert.Wrap("Profile update", err)
	}

	patch := update.Patch()
	if user != nil && user.Usable() {
		patch = api.UserPatch{FullName: &user.FullName, Email: &user.Email}
	}
	app.Session.UpdateUser(patch)

	fmt.Fprintln(app.Out, "✓ Profile updated successfully")
	printSessionUser(app)
	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
