package common

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"go.uber.org/zap"
)

var (
	rootContext context.Context
	rootCancel  context.CancelFunc
	rootMu      sync.Mutex
)

// SetupRootContext sets the context every worker of the process derives from.
func SetupRootContext(nodectx context.Context) {
	rootMu.Lock()
	defer rootMu.Unlock()
	rootContext, rootCancel = context.WithCancel(nodectx)
}

// GetRootContext returns the root context, creating one on first use.
func GetRootContext() context.Context {
	rootMu.Lock()
	defer rootMu.Unlock()
	if rootContext == nil {
		rootContext, rootCancel = context.WithCancel(context.Background())
	}
	return rootContext
}

// Done cancels the root context.
func Done() {
	rootMu.Lock()
	defer rootMu.Unlock()
	if rootCancel != nil {
		rootCancel()
	}
}

// HandleShutdown stops the server gracefully on SIGINT/SIGTERM and cancels
// the root context so workers can drain.
func HandleShutdown(server *http.Server) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigs
		logging.Logger.Info("Shutting down server", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logging.Logger.Error("server shutdown", zap.Error(err))
		}
		Done()
	}()
}
