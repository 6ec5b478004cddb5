package cli

import (
	"fmt"

	"github.com/jrsteele09/go-session-lifecycle/guard"
	"github.com/spf13/cobra"
)

func newGuardCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "guard [path]",
		Short: "Evaluate the route guard for a path",
		Long: `Decide whether the current session may enter a route of the management app.
Prints "allow", or the redirect target. Use --list to show the declared routes.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				table := guard.DefaultTable()
				for _, p := range table.Paths() {
					r, _ := table.Lookup(p)
					fmt.Fprintf(out, "%-32s %v\n", p, r.AllowedRoles)
				}
				return nil
			}

			t, done, err := openTab(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer done()

			res, err := t.Navigate(args[0])
			if err != nil {
				return err
			}
			if res.Decision == guard.Allow {
				fmt.Fprintln(out, "allow")
				return nil
			}
			fmt.Fprintf(out, "%s %s\n", res.Decision, res.Target)
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list the declared routes")
	return cmd
}
