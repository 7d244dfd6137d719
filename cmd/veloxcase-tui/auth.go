package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/veloxcase/veloxcase-tui/internal/apperr"
	"golang.org/x/term"
)

func newLoginCmd(opts options) *cobra.Command {
	var (
		username      string
		passwordStdin bool
		register      bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Long: `Sign in with a username and password. The token is stored in the state
file and reused by the interactive interface.

The password is read from the terminal without echo, or from the first line
of standard input with --password-stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(username) == "" {
				return errors.New("--username is required")
			}
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}

			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer e.close()
			e.core.Start()
			st := newStyles(cmd.OutOrStdout())

			if register {
				if err := e.core.Session.Register(cmd.Context(), username, password); err != nil {
					return errors.New(apperr.UserMessage(err))
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), st.success.Render("✔ Account created."))
			}
			if err := e.core.Session.Login(cmd.Context(), username, password); err != nil {
				return errors.New(apperr.UserMessage(err))
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), st.success.Render(fmt.Sprintf("✔ Signed in as %s.", username)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from standard input")
	cmd.Flags().BoolVar(&register, "register", false, "create the account before signing in")
	return cmd
}

// readPassword prompts on the terminal without echo. Piped input and
// --password-stdin read one line instead.
func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		password, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(password), nil
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r"), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return "", errors.New("read password: no input")
}

func newLogoutCmd(opts options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer e.close()

			e.core.Start()
			st := newStyles(cmd.OutOrStdout())
			if !e.core.Session.Authenticated() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), st.muted.Render("Not signed in."))
				return nil
			}
			e.core.Session.Logout()
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), st.success.Render("✔ Signed out."))
			return nil
		},
	}
}
