package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-session-lifecycle/monitor"
	"github.com/spf13/cobra"
)

// StatusReport is the machine readable form of the status command.
type StatusReport struct {
	Authenticated    bool      `json:"authenticated"`
	UserID           string    `json:"user_id,omitempty"`
	Username         string    `json:"username,omitempty"`
	Email            string    `json:"email,omitempty"`
	Role             string    `json:"role,omitempty"`
	Phase            string    `json:"phase"`
	SecondsRemaining int       `json:"seconds_remaining,omitempty"`
	ExpiresAt        time.Time `json:"expires_at,omitzero"`
}

func newStatusCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session and token phase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, done, err := openTab(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer done()

			sess := t.Session()
			st := t.CheckNow()
			report := StatusReport{
				Authenticated: sess.IsAuthenticated(),
				UserID:        sess.User.ID,
				Username:      sess.User.Username,
				Email:         sess.User.Email,
				Role:          string(sess.User.Role),
				Phase:         st.Phase.String(),
				ExpiresAt:     st.ExpiresAt,
			}
			if st.Phase == monitor.Warning {
				report.SecondsRemaining = st.SecondsRemaining
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			case "text":
				if !report.Authenticated {
					fmt.Fprintln(out, "Not logged in")
					return nil
				}
				fmt.Fprintf(out, "User:    %s <%s>\n", report.Username, report.Email)
				fmt.Fprintf(out, "Role:    %s\n", report.Role)
				fmt.Fprintf(out, "Phase:   %s\n", report.Phase)
				if !report.ExpiresAt.IsZero() {
					fmt.Fprintf(out, "Expires: %s\n", report.ExpiresAt.Local().Format(time.RFC3339))
				}
				return nil
			default:
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}
