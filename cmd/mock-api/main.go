package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-session-lifecycle/auth"
	fakeclientrepo "github.com/jrsteele09/go-session-lifecycle/clients/fakerepo"
	"github.com/jrsteele09/go-session-lifecycle/internal/config"
	"github.com/jrsteele09/go-session-lifecycle/internal/logging"
	"github.com/jrsteele09/go-session-lifecycle/server"
	refreshfake "github.com/jrsteele09/go-session-lifecycle/token/refresh/repofake"
	userfake "github.com/jrsteele09/go-session-lifecycle/users/repofake"
)

var logger = logging.Component("main")

func main() {
	for {
		if err := run(); err != nil {
			logger.Error().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	logger.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Msgf("recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logging.Setup(c.GetLogLevel(), c.GetEnv())
	displayAppname(c.GetAppName() + " API")

	repos := auth.Repos{
		Users:   userfake.NewFakeUserRepo(),
		Clients: fakeclientrepo.NewFakeClientRepo(),
	}
	handler, err := server.New(c, repos, refreshfake.NewFakeRefreshTokenRepo(), server.WithIssuerURL(c.GetOIDCIssuer()))
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	srv := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(srv) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func listenAndServe(server *http.Server) error {
	logger.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
