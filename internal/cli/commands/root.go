package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/captionly-dev/captionly/internal/cli/config"
	"github.com/captionly-dev/captionly/internal/logger"
)

// NewRootCmd builds the command tree around app
func NewRootCmd(app *App, version string) *cobra.Command {
	var overrides config.Overrides

	root := &cobra.Command{
		Use:   "captionly",
		Short: "Captionly - AI captions for your photos",
		Long: `Captionly CLI - Upload photos and get AI-generated captions.

Log in, upload an image, and Captionly describes it for you. Admins can
manage users, images and reports from the same tool.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}

			if !app.ready() {
				cfg, err := config.LoadFromCurrentDir()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				cfg.Override(overrides)
				if err := cfg.Validate(); err != nil {
					return err
				}

				logger.InitWithWriter(app.Err, cfg.LogLevel, cfg.LogFormat)
				app.Logger = logger.GetLogger()

				if err := app.Setup(cfg); err != nil {
					return err
				}
			}

			if location, ok := locationOf(cmd); ok {
				return app.Enter(cmd.Context(), location)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&overrides.APIURL, "api-url", "", "Backend API URL (or set CAPTIONLY_API_URL)")
	flags.StringVar(&overrides.Store, "store", "", "Token store: keyring, file or memory (or set CAPTIONLY_STORE)")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error (or set CAPTIONLY_LOG_LEVEL)")
	flags.StringVar(&overrides.LogFormat, "log-format", "", "Log format: console or json (or set CAPTIONLY_LOG_FORMAT)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(app.Out, "captionly version %s\n", version)
		},
	})

	root.AddCommand(NewIntroCmd(app))
	root.AddCommand(NewLoginCmd(app))
	root.AddCommand(NewRegisterCmd(app))
	root.AddCommand(NewLogoutCmd(app))
	root.AddCommand(NewWhoamiCmd(app))
	root.AddCommand(NewPasswordCmd(app))
	root.AddCommand(NewProfileCmd(app))
	root.AddCommand(NewFeedCmd(app))
	root.AddCommand(NewImagesCmd(app))
	root.AddCommand(NewAdminCmd(app))

	return root
}
