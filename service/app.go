package service

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"spacetraveling/app/routes"
	"spacetraveling/logger"
)

const shutdownTimeout = 10 * time.Second

// RunAppServer builds the configured pages, then serves the blog until ctx is
// cancelled or the process receives SIGINT/SIGTERM.
func RunAppServer(ctx context.Context, app *App) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if report, err := app.Pages.Build(ctx); err != nil {
		// pages are still generated on demand
		logger.ErrorWithFields("prebuilding pages failed", logger.Fields{"error": err.Error()})
	} else {
		logger.InfoWithFields("pages prebuilt", logger.Fields{
			"built":   len(report.Built),
			"missing": len(report.Missing),
		})
	}

	router := routes.SetupRoutes(routes.Dependencies{
		Posts:    app.Posts,
		Pages:    app.Pages,
		Locale:   app.Locale,
		BasePath: app.BasePath,
		API:      app.Config.API,
	})

	server := &http.Server{
		Addr:              app.Config.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoWithFields("starting blog server", logger.Fields{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Log.Info("shutting down blog server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
