package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/captionly-dev/captionly/internal/cli/alert"
	"github.com/captionly-dev/captionly/internal/cli/api"
)

// NewPasswordCmd creates the password command group
func NewPasswordCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change or recover your password",
	}

	cmd.AddCommand(newPasswordChangeCmd(app))
	cmd.AddCommand(newPasswordForgotCmd(app))
	cmd.AddCommand(newPasswordResetCmd(app))

	return cmd
}

func newPasswordChangeCmd(app *App) *cobra.Command {
	var change api.PasswordChange

	cmd := &cobra.Command{
		Use:   "change",
		Short: "Change the password of the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPasswordChange(cmd.Context(), app, change)
		},
	}

	cmd.Flags().StringVar(&change.CurrentPassword, "current", "", "Current password (will prompt if not provided)")
	cmd.Flags().StringVar(&change.NewPassword, "new", "", "New password (will prompt if not provided)")

	return guardAt(cmd, locationProfile)
}

func runPasswordChange(ctx context.Context, app *App, change api.PasswordChange) error {
	var err error
	if change.CurrentPassword == "" {
		if change.CurrentPassword, err = app.Prompt.Password("Current password"); err != nil {
			return alert.Wrap("Password change", err)
		}
	}
	if change.NewPassword == "" {
		if change.NewPassword, err = promptNewPassword(app, "New password"); err != nil {
			return alert.Wrap("Password change", err)
		}
	}

	if _, err := app.API.Users.ChangePassword(ctx, change); err != nil {
		return alert.Wrap("Password change", err)
	}

	fmt.Fprintln(app.Out, "✓ Password changed successfully")
	return nil
}

func newPasswordForgotCmd(app *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot",
		Short: "Request a password reset token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPasswordForgot(cmd.Context(), app, email)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address of the account")

	return guardAt(cmd, locationForgotPassword)
}

func runPasswordForgot(ctx context.Context, app *App, email string) error {
	if email == "" {
		var err error
		if email, err = app.Prompt.Input("Email", ""); err != nil {
			return alert.Wrap("Password reset", err)
		}
	}

	resp, err := app.API.Auth.ForgotPassword(ctx, email)
	if err != nil {
		return alert.Wrap("Password reset", err)
	}

	msg := resp.Message
	if msg == "" {
		msg = "If the account exists, a reset token has been sent."
	}
	fmt.Fprintf(app.Out, "✓ %s\n", msg)
	if resp.ResetToken != "" {
		fmt.Fprintf(app.Out, "  Reset token: %s\n", resp.ResetToken)
	}
	fmt.Fprintln(app.Out, "\nNext: captionly password reset --token <token>")
	return nil
}

func newPasswordResetCmd(app *App) *cobra.Command {
	var reset api.PasswordReset

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with a reset token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPasswordReset(cmd.Context(), app, reset)
		},
	}

	cmd.Flags().StringVar(&reset.Token, "token", "", "Reset token")
	cmd.Flags().StringVar(&reset.NewPassword, "new", "", "New password (will prompt if not provided)")

	return guardAt(cmd, locationResetPassword)
}

func runPasswordReset(ctx context.Context, app *App, reset api.PasswordReset) error {
	var err error
	if reset.Token == "" {
		if reset.Token, err = app.Prompt.Input("Reset token", ""); err != nil {
			return alert.Wrap("Password reset", err)
		}
	}
	if reset.NewPassword == "" {
		if reset.NewPassword, err = promptNewPassword(app, "New password"); err != nil {
			return alert.Wrap("Password reset", err)
		}
	}

	if _, err := app.API.Auth.ResetPassword(ctx, reset); err != nil {
		return alert.Wrap("Password reset", err)
	}

	fmt.Fprintln(app.Out, "✓ Password has been reset")
	fmt.Fprintln(app.Out, "\nNext: captionly login")
	return nil
}
