// Package server exposes the HTTP API, the calendar feed and the metrics
// endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tartampluch/birthday-tracker/internal/config"
	"github.com/tartampluch/birthday-tracker/internal/engine"
	"github.com/tartampluch/birthday-tracker/internal/metrics"
	"github.com/tartampluch/birthday-tracker/internal/store"
	"github.com/tartampluch/birthday-tracker/internal/trigger"
	"github.com/tartampluch/birthday-tracker/internal/vcard"
)

// Server wires the HTTP surface together. The importer is optional and
// may be nil when no import source is configured.
type Server struct {
	log      *slog.Logger
	store    *store.Store
	manager  *config.Manager
	trigger  *trigger.Trigger
	importer *vcard.Importer
	calendar *CalendarCache
	clock    engine.Clock
	registry *prometheus.Registry

	bind, port string
}

// New assembles the server.
func New(st *store.Store, mgr *config.Manager, trg *trigger.Trigger, imp *vcard.Importer, cal *CalendarCache, clock engine.Clock, reg *prometheus.Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if clock == nil {
		clock = engine.RealClock{}
	}
	srv := mgr.Current().Server
	return &Server{
		log:      log.With(config.LogKeyComponent, config.CompServer),
		store:    st,
		manager:  mgr,
		trigger:  trg,
		importer: imp,
		calendar: cal,
		clock:    clock,
		registry: reg,
		bind:     srv.Bind,
		port:     srv.Port,
	}
}

// Router builds the route tree. Exposed for handler tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Route(config.RouteAPI, func(r chi.Router) {
		r.Get(config.RouteBirthdays, s.handleList)
		r.Post(config.RouteBirthdays, s.handleAdd)
		r.Patch(config.RouteBirthday, s.handleEdit)
		r.Delete(config.RouteBirthday, s.handleRemove)

		r.Get(config.RouteOptions, s.handleOptionsGet)
		r.Put(config.RouteOptions, s.handleOptionsPut)

		r.Post(config.RouteCheck, s.handleCheck)
		r.Post(config.RouteImport, s.handleImport)
	})

	r.Get(config.RouteCalendar, s.calendar.ServeHTTP)
	r.Head(config.RouteCalendar, s.calendar.ServeHTTP)
	r.Get(config.RouteHealth, s.handleHealth)
	if s.registry != nil {
		r.Method(http.MethodGet, config.RouteMetrics, metrics.Handler(s.registry))
	}

	return r
}

// Start runs the HTTP server and blocks until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s.port == "" {
		return errors.New(config.ErrPortRequired)
	}

	srv := &http.Server{
		Addr:         s.bind + config.AddrSeparator + s.port,
		Handler:      s.Router(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		s.log.Info(config.MsgServerListen, config.LogKeyPort, s.port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info(config.MsgServerStop)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil
	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}
