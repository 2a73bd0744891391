package serviceutil

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Returns a context that will live until Ctrl+C is pressed or SIGTERM is
// received.
func SignalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

// ServeHttp runs the server until ctx is done, then shuts it down giving
// in-flight requests up to shutdownTimeout to finish.
func ServeHttp(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errs := make(chan error, 1)
	go func() {
		slog.Info("listening for http...", "addr", srv.Addr)
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errs <- err
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down http server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return err
	}
	return <-errs
}

func Fatal(message string, err error) {
	slog.Error(message, "err", err)
	os.Exit(1)
}
