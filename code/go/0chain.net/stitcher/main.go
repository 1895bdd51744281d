package main

import (
	"context"
	"fmt"
	"os"

	"github.com/0chain/stitcher/code/go/0chain.net/core/common"
	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"go.uber.org/zap"
)

const totalSteps = 7

func main() {
	parseFlags()

	setupConfig(configDir, deploymentMode)

	setupLogging()

	common.SetupRootContext(context.Background())

	if err := setupFileStore(); err != nil {
		logging.Logger.Error("Error setting up file store", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := setupDatabase(5); err != nil {
		logging.Logger.Error("Error setting up data store", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	svc, err := setupTransferService()
	if err != nil {
		logging.Logger.Error("Error setting up transfer service", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	setupWorkers()

	startHttpServer(svc)
}
