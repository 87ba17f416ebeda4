package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-console/internal/handlers"
	"github.com/ukydev/fleet-console/internal/middleware"
)

func (a *app) newServer() *http.Server {
	router := handlers.NewRouter(handlers.RouterConfig{
		Map:       handlers.NewMapHandler(a.newMapView()),
		Reports:   handlers.NewReportHandler(a.vehicles, a.cfg.Report.Company),
		Auth:      handlers.NewAuthHandler(a.auth.Logout),
		Session:   middleware.NewSessionMiddleware(a.session),
		RateLimit: a.cfg.Map.RateLimitRequests,
		Window:    a.cfg.Map.RateLimitWindow,
	})
	return &http.Server{
		Addr:              a.cfg.Map.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// serve runs the local map server until ctx is cancelled.
func (a *app) serve(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	srv := a.newServer()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("Starting console server")
		fmt.Fprintf(a.out, "Route map on http://%s/\n", displayAddr(srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down console server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Console server exited")
	return nil
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
