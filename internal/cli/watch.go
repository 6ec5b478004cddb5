package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/internal/logging"
	"github.com/jrsteele09/go-session-lifecycle/metrics"
	"github.com/jrsteele09/go-session-lifecycle/monitor"
	"github.com/jrsteele09/go-session-lifecycle/session"
	"github.com/jrsteele09/go-session-lifecycle/tab"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		autoExtend  bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run a long-lived tab and follow its session",
		Long: `Run a tab until interrupted. The tab follows logins and logouts made by other
tabs and counts down the access token's lifetime.

While the session is about to expire, press Enter to extend it. Once it has
expired, press Enter to acknowledge and log out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			reg, m := metrics.NewRegistry()

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           metrics.HandlerFor(reg),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go serveMetrics(srv)
				defer shutdownMetrics(srv)
			}

			t, done, err := openTab(ctx, m)
			if err != nil {
				return err
			}
			defer done()

			w := &watcher{tab: t, out: cmd.OutOrStdout(), autoExtend: autoExtend}
			return w.run(ctx, cmd.InOrStdin())
		},
	}
	cmd.Flags().BoolVar(&autoExtend, "auto-extend", false, "extend the session as soon as the warning starts")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

type watcher struct {
	tab        *tab.Tab
	out        io.Writer
	autoExtend bool

	mu       sync.Mutex
	lastSecs int
}

func (w *watcher) run(ctx context.Context, in io.Reader) error {
	w.printSession(w.tab.Session())
	unsubscribe := w.tab.OnSessionChange(w.printSession)
	defer unsubscribe()

	w.tab.OnStateChange(func(s monitor.State) { w.onState(ctx, s) })
	w.onState(ctx, w.tab.MonitorState())

	lines := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-lines:
			w.acknowledge(ctx)
		}
	}
}

// acknowledge answers the prompt for the current phase.
func (w *watcher) acknowledge(ctx context.Context) {
	switch w.tab.MonitorState().Phase {
	case monitor.Warning:
		w.extend(ctx)
	case monitor.Expired:
		w.tab.AcknowledgeExpiry()
	}
}

func (w *watcher) extend(ctx context.Context) {
	err := w.tab.Extend(ctx)
	switch {
	case err == nil:
		w.printf("Session extended\n")
	case autherrors.Is(err, autherrors.ErrRefreshInFlight), autherrors.Is(err, autherrors.ErrNotWarning):
	default:
		w.printf("Could not extend the session: %v\n", err)
	}
}

func (w *watcher) onState(ctx context.Context, s monitor.State) {
	switch s.Phase {
	case monitor.Warning:
		w.mu.Lock()
		first := w.lastSecs == 0
		w.lastSecs = s.SecondsRemaining
		w.mu.Unlock()
		if w.autoExtend {
			if first {
				go w.extend(ctx)
			}
			return
		}
		w.printf("\rSession expires in %3ds. Press Enter to stay logged in. ", s.SecondsRemaining)
	case monitor.Expired:
		w.resetCountdown()
		w.printf("\nSession expired. Press Enter to log out.\n")
	default:
		w.resetCountdown()
	}
}

func (w *watcher) resetCountdown() {
	w.mu.Lock()
	w.lastSecs = 0
	w.mu.Unlock()
}

func (w *watcher) printSession(s session.Session) {
	if !s.IsAuthenticated() {
		w.printf("Not logged in\n")
		return
	}
	w.printf("Logged in as %s (%s)\n", s.User.Username, s.User.Role)
}

func (w *watcher) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, format, args...)
}

func serveMetrics(srv *http.Server) {
	logger := logging.Component("metrics")
	logger.Info().Str("addr", srv.Addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}

func shutdownMetrics(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
