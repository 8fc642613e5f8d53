package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/captionly-dev/captionly/internal/cli/api"
	"github.com/captionly-dev/captionly/internal/cli/client"
	"github.com/captionly-dev/captionly/internal/cli/config"
	"github.com/captionly-dev/captionly/internal/cli/kvstore"
	"github.com/captionly-dev/captionly/internal/cli/onboarding"
	"github.com/captionly-dev/captionly/internal/cli/session"
)

// App holds everything the commands share for one process
type App struct {
	Out    io.Writer
	Err    io.Writer
	Prompt Prompter
	Logger zerolog.Logger

	Config     *config.Config
	Store      kvstore.Store
	Client     *client.Client
	API        *api.API
	Session    *session.Manager
	Onboarding *onboarding.Flag
}

// NewApp creates an app writing to stdout/stderr with terminal prompts
func NewApp() *App {
	return &App{
		Out:    os.Stdout,
		Err:    os.Stderr,
		Prompt: NewTerminalPrompter(),
		Logger: zerolog.Nop(),
	}
}

// Setup builds the store, client and session from cfg.
// A Store set beforehand is kept.
func (a *App) Setup(cfg *config.Config) error {
	a.Config = cfg

	if a.Store == nil {
		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
		}
		a.Store = store
	}

	a.Client = client.New(cfg.APIURL, a.Store,
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(a.Logger.With().Str("component", "http").Logger()),
	)
	a.API = api.New(a.Client)
	a.Session = session.New(a.API.Auth, a.API.Users, a.Store,
		session.WithLogger(a.Logger.With().Str("component", "session").Logger()),
	)
	a.Onboarding = onboarding.NewFlag(a.Store)

	return nil
}

func openStore(cfg *config.Config) (kvstore.Store, error) {
	if cfg.Store == kvstore.BackendFile && cfg.StateFile != "" {
		return kvstore.NewFileStore(cfg.StateFile), nil
	}
	return kvstore.Open(cfg.Store)
}

// ready reports whether Setup has run
func (a *App) ready() bool {
	return a.Session != nil
}
