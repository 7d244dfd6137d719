package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	appstate "github.com/veloxcase/veloxcase-tui/internal/app"
	"github.com/veloxcase/veloxcase-tui/internal/config"
	"github.com/veloxcase/veloxcase-tui/internal/logger"
	"github.com/veloxcase/veloxcase-tui/internal/storage"
	"github.com/veloxcase/veloxcase-tui/internal/tui"
)

func main() {
	if err := newRootCmd(options{}).Execute(); err != nil {
		os.Exit(1)
	}
}

// options replaces collaborators in tests.
type options struct {
	// store is used instead of opening the state file.
	store       storage.Store
	httpClient  *http.Client
	prefersDark func() bool
}

// env is what every command works with.
type env struct {
	cfg  config.Config
	core *appstate.App
}

func (e *env) close() {
	if err := e.core.Close(); err != nil {
		logger.ErrorWithErr(err, "main: close state")
	}
	logger.Info("Application shutdown")
	logger.Close()
}

// setup loads the configuration, opens the log and the state file and
// builds the application state.
func setup(cmd *cobra.Command, opts options) (*env, error) {
	path, _ := cmd.Flags().GetString(config.FlagConfig)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("apply flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Init(cfg.LogFile, logger.ParseLevel(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	logger.Info("Application starting command=%s", cmd.Name())
	logger.Debug("Configuration: APIEndpoint=%s, Timeout=%s, RepoID=%d, StateFile=%s",
		cfg.APIEndpoint, cfg.Timeout, cfg.RepoID, cfg.StateFile)

	store := opts.store
	if store == nil {
		bolt, err := storage.NewBolt(cfg.StateFile)
		if err != nil {
			logger.Close()
			return nil, err
		}
		store = bolt
	}

	core := appstate.New(cfg, appstate.Deps{
		Store:       store,
		HTTPClient:  opts.httpClient,
		PrefersDark: opts.prefersDark,
		Context:     cmd.Context(),
	})
	return &env{cfg: cfg, core: core}, nil
}

func newRootCmd(opts options) *cobra.Command {
	root := &cobra.Command{
		Use:   "veloxcase-tui",
		Short: "Turn Jira issues into QA test cases from the terminal",
		Long: `veloxcase-tui is a terminal client for the VeloxCase service. It signs in,
picks a target folder and synchronizes Jira issues into test cases.

Run without a subcommand to open the interactive interface.`,
		Version:       VersionInfo(),
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer e.close()

			app := tui.NewApp(cmd.Context(), e.core)
			if err := app.Run(); err != nil {
				logger.ErrorWithErr(err, "Application error")
				return fmt.Errorf("run application: %w", err)
			}
			return nil
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newThemeCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return root
}
