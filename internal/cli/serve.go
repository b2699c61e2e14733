package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskdesk/internal/config"
	"taskdesk/internal/events"
	"taskdesk/internal/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and websocket feed",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := config.NewLogger(cfg.LogLevel)
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.store.Close()

	hub := events.NewHub(log, originChecker(cfg.HTTP.AllowedOrigins))
	go hub.Run(ctx)
	a.tasks.Subscribe(hub.Publish)

	h := handlers.New(a.tasks, a.categories, a.page, log, handlers.WithClock(func() time.Time {
		return time.Now().In(loc)
	}))

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           h.Router(cfg.HTTP.AllowedOrigins, hub.ServeWS),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.HTTP.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "address", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped unexpectedly", "error", err)
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// originChecker returns the websocket origin policy for the CORS allow list.
// A wildcard entry accepts every origin.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
