package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"gitlab.com/kuberbook/settlement_api/actions"
	"gitlab.com/kuberbook/settlement_api/config"
	"gitlab.com/kuberbook/settlement_api/crons"
	"gitlab.com/kuberbook/settlement_api/monitor"
)

// Server interface
type Server interface {
	Listen()
}

type server struct {
	config  config.Config
	app     *App
	actions *actions.Actions
	HTTP    *http.Server
}

// NewServer constructor
func NewServer(cfg config.Config) Server {
	app, err := Bootstrap(cfg)
	if err != nil {
		log.Fatal().Str("section", "server").Err(err).Msg("Unable to init settlement engine")
	}
	return &server{
		config:  cfg,
		app:     app,
		actions: actions.NewActions(cfg, app.Service, app.Scheduler),
	}
}

// Listen for http requests and run the daily settlement on schedule
func (srv *server) Listen() {
	srv.HTTP = &http.Server{
		Addr:              fmt.Sprintf(":%d", srv.config.Server.API.Port),
		Handler:           NewRouter(srv.config, srv.actions),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.HTTP.SetKeepAlivesEnabled(srv.config.Server.API.KeepAlive)

	go srv.ListenToRequests()
	go monitor.LoopProfilingServer(srv.config.Server.Monitoring)
	crons.Start(srv.config.Crons, srv.app.Service.Location(), srv.app.Scheduler)

	srv.stopOnSignal()
}

// ListenToRequests blocks until the http server is shut down
func (srv *server) ListenToRequests() {
	log.Info().Str("worker", "http_listen_to_requests").Str("action", "start").Str("addr", srv.HTTP.Addr).Msg("HTTP Listen to requests - started")
	defer log.Info().Str("worker", "http_listen_to_requests").Str("action", "stop").Msg("HTTP Listen to requests - stopped")

	if err := srv.HTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Str("section", "server").Msg("Unable to listen for requests")
	}
}

func (srv *server) stopOnSignal() {
	// listen for termination signals
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc

	log.Info().Str("section", "server").Str("app_event", "terminate").Str("signal", sig.String()).Msg("Shutting down services")
	srv.closeApp(10 * time.Second)
}

func (srv *server) closeApp(timeout time.Duration) {
	// define a timeout in which the graceful shutdown procedure should happen before forcing the shutdown
	timeoutFunc := time.AfterFunc(timeout, func() {
		log.Printf("timeout %d ms has been elapsed, force exit", timeout.Milliseconds())
		os.Exit(0)
	})
	defer timeoutFunc.Stop()

	// stop scheduling before the storage goes away, a running batch finishes first
	crons.Close()
	monitor.ShutdownServer()

	ctx, cancel := context.WithTimeout(context.Background(), timeout/2)
	defer cancel()
	if err := srv.HTTP.Shutdown(ctx); err != nil {
		log.Error().Err(err).Str("section", "server").Str("action", "terminate").Msg("Unable to shutdown HTTP server")
	}

	// make sure database connection is closed on program exit
	srv.app.Close()

	log.Info().Str("section", "server").Str("app_event", "terminate").Str("state", "complete").Msg("All workers terminated")
}
