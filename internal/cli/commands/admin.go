package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/captionly-dev/captionly/internal/cli/alert"
	"github.com/captionly-dev/captionly/internal/cli/api"
)

// ErrNotAdmin is returned when a non-admin runs an admin command
var ErrNotAdmin = &api.ValidationError{Reason: "You do not have admin privileges."}

// NewAdminCmd creates the admin command group
func NewAdminCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer users, images and reports",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return requireAdmin(app)
		},
	}

	cmd.AddCommand(newAdminStatsCmd(app))
	cmd.AddCommand(newAdminUsersCmd(app))
	cmd.AddCommand(newAdminUserCmd(app))
	cmd.AddCommand(newAdminImagesCmd(app))
	cmd.AddCommand(newAdminImageCmd(app))
	cmd.AddCommand(newAdminReportsCmd(app))
	cmd.AddCommand(newAdminReportCmd(app))

	return guardAt(cmd, locationAdmin)
}

func requireAdmin(app *App) error {
	snap := app.Session.Snapshot()
	if snap.User == nil || !snap.User.IsAdmin() {
		return alert.Wrap("Access denied", ErrNotAdmin)
	}
	return nil
}

func newAdminStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := app.API.Admin.Stats(cmd.Context())
			if err != nil {
				return alert.Wrap("Loading dashboard", err)
			}
			fmt.Fprintf(app.Out, "Users:           %d\n", stats.Users)
			fmt.Fprintf(app.Out, "Images:          %d\n", stats.Images)
			fmt.Fprintf(app.Out, "Pending reports: %d\n", stats.PendingReports)
			return nil
		},
	}
}

func newAdminUsersCmd(app *App) *cobra.Command {
	var filter api.UserFilter

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminUsers(cmd.Context(), app, filter)
		},
	}

	cmd.Flags().StringVar(&filter.Query, "query", "", "Search by username or email")
	cmd.Flags().StringVar(&filter.Role, "role", "", "Only users with this role (user or admin)")
	cmd.Flags().IntVar(&filter.Page, "page", api.DefaultPage, "Page number")
	cmd.Flags().IntVar(&filter.PerPage, "per-page", api.DefaultPerPage, "Users per page")

	return cmd
}

func runAdminUsers(ctx context.Context, app *App, filter api.UserFilter) error {
	users, err := app.API.Admin.ListUsers(ctx, filter)
	if err != nil {
		return alert.Wrap("Loading users", err)
	}

	if len(users.Users) == 0 {
		fmt.Fprintln(app.Out, "No users found.")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tSTATUS")
	fmt.Fprintln(w, "──\t────────\t─────\t────\t──────")
	for _, u := range users.Users {
		status := "active"
		if !u.IsActive {
			status = "inactive"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role, status)
	}
	return w.Flush()
}

func newAdminUserCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Change a single user",
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "status <id> active|inactive",
		Short:     "Activate or deactivate a user",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"active", "inactive"},
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := parseStatus(args[1])
			if err != nil {
				return alert.Wrap("Status change", err)
			}
			if err := app.API.Admin.ChangeUserStatus(cmd.Context(), api.ID(args[0]), active); err != nil {
				return alert.Wrap("Status change", err)
			}
			verb := "deactivated"
			if active {
				verb = "activated"
			}
			fmt.Fprintf(app.Out, "✓ User %s successfully.\n", verb)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "role <id> user|admin",
		Short: "Change the role of a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := strings.ToLower(args[1])
			if err := app.API.Admin.ChangeUserRole(cmd.Context(), api.ID(args[0]), role); err != nil {
				return alert.Wrap("Role change", err)
			}
			fmt.Fprintf(app.Out, "✓ User role changed to %s successfully.\n", role)
			return nil
		},
	})

	var yes bool
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := api.ID(args[0])
			ok, err := confirm(app, yes, fmt.Sprintf("Delete user %s", id))
			if err != nil || !ok {
				return err
			}
			if err := app.API.Admin.DeleteUser(cmd.Context(), id); err != nil {
				return alert.Wrap("Delete", err)
			}
			fmt.Fprintf(app.Out, "✓ User %s deleted\n", id)
			return nil
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.AddCommand(deleteCmd)

	return cmd
}

func parseStatus(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "active", "activate", "on", "true":
		return true, nil
	case "inactive", "deactivate", "off", "false":
		return false, nil
	default:
		return false, &api.ValidationError{Field: "status", Reason: "must be active or inactive"}
	}
}

func newAdminImagesCmd(app *App) *cobra.Command {
	var page api.Page

	cmd := &cobra.Command{
		Use:   "images",
		Short: "List all images",
		RunE: func(cmd *cobra.Command, args []string) error {
			images, err := app.API.Admin.ListImages(cmd.Context(), page)
			if err != nil {
				return alert.Wrap("Loading images", err)
			}
			if len(images.Images) == 0 {
				fmt.Fprintln(app.Out, "No images found.")
				return nil
			}
			printImages(app.Out, images)
			return nil
		},
	}

	addPageFlags(cmd, &page)

	return cmd
}

func newAdminImageCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Moderate a single image",
	}

	var yes bool
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete any image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := api.ID(args[0])
			ok, err := confirm(app, yes, fmt.Sprintf("Delete image %s", id))
			if err != nil || !ok {
				return err
			}
			if err := app.API.Admin.DeleteImage(cmd.Context(), id); err != nil {
				return alert.Wrap("Delete", err)
			}
			fmt.Fprintf(app.Out, "✓ Image %s deleted\n", id)
			return nil
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.AddCommand(deleteCmd)

	return cmd
}

func newAdminReportsCmd(app *App) *cobra.Command {
	var filter api.ReportFilter

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List image reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := app.API.Admin.ListReports(cmd.Context(), filter)
			if err != nil {
				return alert.Wrap("Loading reports", err)
			}
			if len(reports.Reports) == 0 {
				fmt.Fprintln(app.Out, "No reports found.")
				return nil
			}

			w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tIMAGE\tSTATUS\tREASON")
			fmt.Fprintln(w, "──\t─────\t──────\t──────")
			for _, r := range reports.Reports {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.ImageID, r.Status, truncate(r.Reason, 60))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&filter.Status, "status", "", "Only reports with this status (pending, resolved, dismissed)")
	cmd.Flags().IntVar(&filter.Page, "page", api.DefaultPage, "Page number")
	cmd.Flags().IntVar(&filter.PerPage, "per-page", api.DefaultPerPage, "Reports per page")

	return cmd
}

func newAdminReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Handle a single report",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "update <id> pending|resolved|dismissed",
		Short: "Set the status of a report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := strings.ToLower(args[1])
			if err := app.API.Admin.UpdateReport(cmd.Context(), api.ID(args[0]), status); err != nil {
				return alert.Wrap("Report update", err)
			}
			fmt.Fprintf(app.Out, "✓ Report %s marked %s\n", args[0], status)
			return nil
		},
	})

	return cmd
}
