package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jrsteele09/go-session-lifecycle/authapi"
	"github.com/spf13/cobra"
)

const passwordEnvVar = "SESSION_PASSWORD"

func newLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and share the session with every tab",
		Long: `Exchange a username and password for a session. The password is read from
--password, then $SESSION_PASSWORD, then a line on stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(passwordEnvVar)
			}
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimSpace(line)
			}

			t, done, err := openTab(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer done()

			if err := t.Login(cmd.Context(), authapi.Credentials{Username: username, Password: password}); err != nil {
				return err
			}
			sess := t.Session()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", sess.User.Username, sess.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out every tab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, done, err := openTab(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer done()

			if !t.Session().IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			t.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
