// Package cli implements the sessionctl command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-session-lifecycle/authapi"
	"github.com/jrsteele09/go-session-lifecycle/internal/config"
	"github.com/jrsteele09/go-session-lifecycle/internal/logging"
	"github.com/jrsteele09/go-session-lifecycle/metrics"
	"github.com/jrsteele09/go-session-lifecycle/storage"
	"github.com/jrsteele09/go-session-lifecycle/tab"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the sessionctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sessionctl",
		Short: "Session and token lifecycle manager",
		Long: `sessionctl drives the client-side session lifecycle of the management app.

Each invocation is one "tab": it restores the session from the shared durable
storage, follows changes made by other tabs and watches the access token's
expiry. Run several "sessionctl watch" processes against the same data folder to
see logins, logouts and refreshes propagate between them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			logging.Setup(cfg.GetLogLevel(), cfg.GetEnv())
			return nil
		},
	}

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newGuardCmd(),
		newWatchCmd(),
	)
	return root
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// openTab opens the configured storage, connects to the API and starts a tab.
// The returned func stops the tab and closes the storage.
func openTab(ctx context.Context, m *metrics.Metrics) (*tab.Tab, func(), error) {
	cfg := config.New()

	slot, err := tab.OpenSlot(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	api, err := authapi.NewFromConfig(ctx, cfg)
	if err != nil {
		_ = slot.Close()
		return nil, nil, fmt.Errorf("connect to API: %w", err)
	}

	t := tab.New(cfg, slot, api, tab.WithMetrics(m))
	if err := t.Start(ctx); err != nil {
		_ = slot.Close()
		return nil, nil, err
	}
	return t, closer(t, slot), nil
}

func closer(t *tab.Tab, slot storage.Slot) func() {
	return func() {
		_ = t.Close()
		_ = slot.Close()
	}
}
