package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toolbridge/pkg/logging"
)

const shutdownTimeout = 5 * time.Second

// runStdioMode serves MCP on in/out. It returns when the client closes in or
// a termination signal arrives.
func runStdioMode(ctx context.Context, a *Application, in io.Reader, out io.Writer) error {
	ctx, stop := handleSignals(ctx, a)
	defer stop()

	if _, err := a.Reload(ctx); err != nil {
		return err
	}

	return a.services.Aggregator.ServeStdio(ctx, in, out)
}

// runSSEMode serves MCP over HTTP/SSE until a termination signal arrives.
func runSSEMode(ctx context.Context, a *Application) error {
	ctx, stop := handleSignals(ctx, a)
	defer stop()

	if _, err := a.Reload(ctx); err != nil {
		return err
	}

	if err := a.services.Aggregator.StartSSE(); err != nil {
		logging.Error("CLI", err, "Failed to start aggregator server")
		return err
	}
	logging.Info("CLI", "Serving on %s. Press Ctrl+C to stop.", a.services.Aggregator.GetEndpoint())

	<-ctx.Done()

	logging.Info("CLI", "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.services.Aggregator.Stop(shutdownCtx)
}

// handleSignals cancels the returned context on SIGINT or SIGTERM and runs a
// reload on every SIGHUP.
func handleSignals(parent context.Context, a *Application) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigChan:
				if sig == syscall.SIGHUP {
					logging.Info("CLI", "Received SIGHUP, reloading configuration")
					if _, err := a.Reload(ctx); err != nil {
						logging.Warn("CLI", "Reload failed: %v", err)
					}
					continue
				}
				logging.Info("CLI", "Received %s", sig)
				cancel()
				return
			}
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
