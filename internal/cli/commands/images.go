package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/captionly-dev/captionly/internal/cli/alert"
	"github.com/captionly-dev/captionly/internal/cli/api"
)

// NewImagesCmd creates the images command group
func NewImagesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "images",
		Aliases: []string{"image"},
		Short:   "Upload and manage your captioned images",
	}

	cmd.AddCommand(newImagesUploadCmd(app))
	cmd.AddCommand(newImagesListCmd(app))
	cmd.AddCommand(newImagesCaptionCmd(app))
	cmd.AddCommand(newImagesRegenerateCmd(app))
	cmd.AddCommand(newImagesDeleteCmd(app))
	cmd.AddCommand(newImagesReportCmd(app))

	return guardAt(cmd, locationImages)
}

func newImagesUploadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload an image and get a caption",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImagesUpload(cmd.Context(), app, args[0])
		},
	}
}

func runImagesUpload(ctx context.Context, app *App, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return alert.Wrap("Upload", fmt.Errorf("failed to open image: %w", err))
	}
	defer f.Close()

	fmt.Fprintf(app.Out, "Uploading %s...\n", filepath.Base(path))

	img, err := app.API.Images.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return alert.Wrap("Upload", err)
	}

	printImage(app, img)
	return nil
}

func newImagesListCmd(app *App) *cobra.Command {
	var page api.Page

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your images",
		RunE: func(cmd *cobra.Command, args []string) error {
			images, err := app.API.Images.ListMine(cmd.Context(), page)
			if err != nil {
				return alert.Wrap("Loading images", err)
			}
			if len(images.Images) == 0 {
				fmt.Fprintln(app.Out, "No images found.")
				fmt.Fprintln(app.Out, "\nUpload one with: captionly images upload <path>")
				return nil
			}
			printImages(app.Out, images)
			return nil
		},
	}

	addPageFlags(cmd, &page)

	return cmd
}

func newImagesCaptionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "caption <id> <text>",
		Short: "Replace the caption of an image",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := app.API.Images.UpdateCaption(cmd.Context(), api.ID(args[0]), strings.Join(args[1:], " "))
			if err != nil {
				return alert.Wrap("Caption update", err)
			}
			printImage(app, img)
			return nil
		},
	}
}

func newImagesRegenerateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <id>",
		Short: "Generate a new caption for an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := app.API.Images.RegenerateCaption(cmd.Context(), api.ID(args[0]))
			if err != nil {
				return alert.Wrap("Caption regeneration", err)
			}
			printImage(app, img)
			return nil
		},
	}
}

func newImagesDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := api.ID(args[0])
			ok, err := confirm(app, yes, fmt.Sprintf("Delete image %s", id))
			if err != nil || !ok {
				return err
			}
			if err := app.API.Images.Delete(cmd.Context(), id); err != nil {
				return alert.Wrap("Delete", err)
			}
			fmt.Fprintf(app.Out, "✓ Image %s deleted\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func newImagesReportCmd(app *App) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "report <id>",
		Short: "Report an image to the moderators",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reason == "" {
				var err error
				if reason, err = app.Prompt.Input("Reason", ""); err != nil {
					return alert.Wrap("Report", err)
				}
			}
			if err := app.API.Images.Report(cmd.Context(), api.ID(args[0]), reason); err != nil {
				return alert.Wrap("Report", err)
			}
			fmt.Fprintln(app.Out, "✓ Report submitted")
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why the image should be reviewed")

	return cmd
}

func printImage(app *App, img *api.Image) {
	fmt.Fprintf(app.Out, "✓ Image %s\n", img.ID)
	fmt.Fprintf(app.Out, "  Caption: %s\n", valueOr(img.Description, "No caption available"))
	if img.URL != "" {
		fmt.Fprintf(app.Out, "  URL:     %s\n", img.URL)
	}
}

// confirm asks before a destructive action unless yes is set
func confirm(app *App, yes bool, label string) (bool, error) {
	if yes {
		return true, nil
	}
	ok, err := app.Prompt.Confirm(label)
	if err != nil {
		return false, fmt.Errorf("%w (use --yes to skip confirmation)", err)
	}
	if !ok {
		fmt.Fprintln(app.Out, "Cancelled")
	}
	return ok, nil
}
