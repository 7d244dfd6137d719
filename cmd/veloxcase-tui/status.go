package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/veloxcase/veloxcase-tui/internal/apperr"
	"github.com/veloxcase/veloxcase-tui/internal/shell"
)

func newThemeCmd(opts options) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or change the color theme",
		Long:      "Without an argument prints the current theme. The choice is stored and overrides the terminal default.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(shell.ThemeLight), string(shell.ThemeDark), "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer e.close()
			st := newStyles(cmd.OutOrStdout())

			themes := e.core.Theme
			if len(args) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), st.row("Theme", string(themes.Current())))
				return nil
			}

			if args[0] == "toggle" {
				if _, err := themes.Toggle(); err != nil {
					return fmt.Errorf("save theme: %w", err)
				}
			} else {
				t, err := shell.ParseTheme(args[0])
				if err != nil {
					return err
				}
				if err := themes.Set(t); err != nil {
					return fmt.Errorf("save theme: %w", err)
				}
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), st.success.Render("✔ Theme set to "+string(themes.Current())+"."))
			return nil
		},
	}
}

func newStatusCmd(opts options) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, session and service counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer e.close()
			st := newStyles(cmd.OutOrStdout())

			state := e.core.Start()
			lines := []string{
				st.title.Render("VeloxCase"),
				st.row("Endpoint", e.cfg.APIEndpoint),
				st.row("Repository", strconv.FormatInt(e.cfg.RepoID, 10)),
				st.row("State file", e.cfg.StateFile),
				st.row("Log file", orNone(e.cfg.LogFile)),
				st.row("Theme", string(e.core.Theme.Current())),
				st.row("Session", state.String()),
			}

			expired := false
			if e.core.Session.Authenticated() && !offline {
				stats, err := e.core.API.Stats(cmd.Context())
				switch {
				case apperr.IsUnauthorized(err):
					expired = true
					e.core.Session.HandleUnauthorized()
					lines = append(lines, st.warning.Render("Session expired. Run `veloxcase-tui login` again."))
				case err != nil:
					lines = append(lines, st.warning.Render(apperr.UserMessage(err)))
				default:
					lines = append(lines,
						"",
						st.row("Test cases", strconv.Itoa(stats.TotalCases)),
						st.row("Images", strconv.Itoa(stats.TotalImages)),
						st.row("Syncs today", strconv.Itoa(stats.TodaySyncs)),
					)
				}
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), st.box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
			if expired {
				return errors.New("session expired")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "do not contact the service")
	return cmd
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
