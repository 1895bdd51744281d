package main

import (
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/0chain/stitcher/code/go/0chain.net/core/common"
	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/config"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/datastore"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/handler"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/journal"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/transfer"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func startHttpServer(svc *transfer.Service) {
	mode := "main net"
	if config.Development() {
		mode = "development"
	} else if config.TestNet() {
		mode = "test net"
	}

	r := mux.NewRouter()
	handler.SetupHandlers(r, svc, config.Configuration.MaxChunkSize)

	logging.Logger.Info("Starting stitcher", zap.Int("available_cpus", runtime.NumCPU()), zap.Int("port", httpPort), zap.String("mode", mode))

	address := ":" + strconv.Itoa(httpPort)
	var server *http.Server

	if config.Development() {
		// No WriteTimeout setup to enable pprof
		server = &http.Server{
			Addr:              address,
			ReadHeaderTimeout: 30 * time.Second,
			MaxHeaderBytes:    1 << 20,
			Handler:           r,
		}
	} else {
		// chunk uploads and downloads can be large, so only headers are bounded
		server = &http.Server{
			Addr:              address,
			ReadHeaderTimeout: 30 * time.Second,
			IdleTimeout:       30 * time.Second,
			MaxHeaderBytes:    1 << 20,
			Handler:           r,
		}
	}
	common.HandleShutdown(server)

	logging.Logger.Info("Ready to listen to the requests")
	fmt.Printf("[7/%v] start http server	[OK]\n", totalSteps)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.Logger.Fatal("http server", zap.Error(err))
	}

	// drain assemblies already scheduled before exiting
	<-common.GetRootContext().Done()
	svc.Wait()
	journal.Wait()
	if store := datastore.GetStore(); store != nil {
		store.Close()
	}
	logging.Logger.Info("Stitcher stopped")
}
