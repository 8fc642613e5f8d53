package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/captionly-dev/captionly/internal/cli/alert"
	"github.com/captionly-dev/captionly/internal/cli/api"
	"github.com/captionly-dev/captionly/internal/cli/routeguard"
)

// NewFeedCmd creates the feed command
func NewFeedCmd(app *App) *cobra.Command {
	var page api.Page

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the latest captioned images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(cmd.Context(), app, page)
		},
	}

	addPageFlags(cmd, &page)

	return guardAt(cmd, routeguard.LocationMain)
}

func runFeed(ctx context.Context, app *App, page api.Page) error {
	images, err := app.API.Images.ListAll(ctx, page)
	if err != nil {
		return alert.Wrap("Loading feed", err)
	}

	if snap := app.Session.Snapshot(); snap.User != nil {
		fmt.Fprintf(app.Out, "Welcome, %s!\n\n", valueOr(snap.User.FullName, snap.User.Username))
	}

	if len(images.Images) == 0 {
		fmt.Fprintln(app.Out, "No images yet.")
		fmt.Fprintln(app.Out, "\nUpload one with: captionly images upload <path>")
		return nil
	}

	printImages(app.Out, images)
	return nil
}

func addPageFlags(cmd *cobra.Command, page *api.Page) {
	cmd.Flags().IntVar(&page.Page, "page", api.DefaultPage, "Page number")
	cmd.Flags().IntVar(&page.PerPage, "per-page", api.DefaultPerPage, "Items per page")
}

func printImages(out io.Writer, images *api.ImagePage) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tCAPTION\tCREATED AT")
	fmt.Fprintln(w, "──\t────\t───────\t──────────")

	for _, img := range images.Images {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			img.ID,
			valueOr(img.Username, img.UserID.String()),
			truncate(valueOr(img.Description, "No caption available"), 60),
			valueOr(img.CreatedAt, "-"),
		)
	}
	w.Flush()

	if images.Total > 0 {
		fmt.Fprintf(out, "\n%d image(s)", images.Total)
		if images.Pages > 1 {
			fmt.Fprintf(out, ", page %d of %d", images.Page, images.Pages)
		}
		fmt.Fprintln(out)
	}
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
