package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/captionly-dev/captionly/internal/cli/alert"
	"github.com/captionly-dev/captionly/internal/cli/api"
	"github.com/captionly-dev/captionly/internal/cli/routeguard"
)

// NewLoginCmd creates the login command
func NewLoginCmd(app *App) *cobra.Command {
	var email, username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email or username",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), app, email, username, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set CAPTIONLY_EMAIL)")
	cmd.Flags().StringVar(&username, "username", "", "Username (or set CAPTIONLY_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set CAPTIONLY_PASSWORD, will prompt if not provided)")

	return guardAt(cmd, routeguard.LocationLogin)
}

func runLogin(ctx context.Context, app *App, email, username, password string) error {
	// Environment variables are useful for scripts
	if email == "" && username == "" {
		email = os.Getenv("CAPTIONLY_EMAIL")
		username = os.Getenv("CAPTIONLY_USERNAME")
	}
	if password == "" {
		password = os.Getenv("CAPTIONLY_PASSWORD")
	}

	if email == "" && username == "" {
		identifier, err := app.Prompt.Input("Email or username", "")
		if err != nil {
			return alert.Wrap("Login", err)
		}
		identifier = strings.TrimSpace(identifier)
		if strings.Contains(identifier, "@") {
			email = identifier
		} else {
			username = identifier
		}
	}

	if password == "" {
		var err error
		if password, err = app.Prompt.Password("Password"); err != nil {
			return alert.Wrap("Login", err)
		}
	}

	creds := api.Credentials{Email: email, Username: username, Password: password}
	fmt.Fprintf(app.Out, "Logging in as %s...\n", creds.Identifier())

	if err := app.Session.Login(ctx, creds); err != nil {
		return alert.Wrap("Login", err)
	}

	fmt.Fprintln(app.Out, "✓ Login successful!")
	printSessionUser(app)
	app.printNext(ctx, routeguard.LocationLogin)
	return nil
}

// NewRegisterCmd creates the register command
func NewRegisterCmd(app *App) *cobra.Command {
	var reg api.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), app, reg)
		},
	}

	cmd.Flags().StringVar(&reg.Username, "username", "", "Username")
	cmd.Flags().StringVar(&reg.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&reg.FullName, "full-name", "", "Full name (optional)")
	cmd.Flags().StringVar(&reg.Password, "password", "", "Password (will prompt if not provided)")

	return guardAt(cmd, routeguard.LocationRegister)
}

func runRegister(ctx context.Context, app *App, reg api.Registration) error {
	var err error
	if reg.Username == "" {
		if reg.Username, err = app.Prompt.Input("Username", ""); err != nil {
			return alert.Wrap("Registration", err)
		}
	}
	if reg.Email == "" {
		if reg.Email, err = app.Prompt.Input("Email", ""); err != nil {
			return alert.Wrap("Registration", err)
		}
	}
	if reg.Password == "" {
		if reg.Password, err = promptNewPassword(app, "Password"); err != nil {
			return alert.Wrap("Registration", err)
		}
	}

	fmt.Fprintf(app.Out, "Creating account %s...\n", reg.Username)

	if err := app.Session.Register(ctx, reg); err != nil {
		return alert.Wrap("Registration", err)
	}

	fmt.Fprintln(app.Out, "✓ Account created!")
	printSessionUser(app)
	app.printNext(ctx, routeguard.LocationRegister)
	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Session.Logout(cmd.Context())
			fmt.Fprintln(app.Out, "✓ Logged out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := app.Session.Hydrate(cmd.Context())
			if !snap.IsAuthenticated() {
				fmt.Fprintf(app.Out, "Not logged in. Run '%s'.\n", commandFor(routeguard.LocationLogin))
				return nil
			}
			printSessionUser(app)
			return nil
		},
	}
}

func printSessionUser(app *App) {
	snap := app.Session.Snapshot()
	if snap.User == nil {
		return
	}

	u := snap.User
	fmt.Fprintf(app.Out, "  User: %s (%s)\n", u.Username, u.Email)
	if u.FullName != "" {
		fmt.Fprintf(app.Out, "  Name: %s\n", u.FullName)
	}
	if u.IsAdmin() {
		fmt.Fprintln(app.Out, "  Role: Admin")
	}
	if snap.IsDegraded() {
		fmt.Fprintln(app.Out, "  Warning: profile could not be loaded, showing a local placeholder")
	}
}

// promptNewPassword asks twice and requires both answers to match
func promptNewPassword(app *App, label string) (string, error) {
	password, err := app.Prompt.Password(label)
	if err != nil {
		return "", err
	}
	confirm, err := app.Prompt.Password("Confirm " + strings.ToLower(label))
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", &api.ValidationError{Reason: "Passwords do not match"}
	}
	return password, nil
}
