package main

import (
	"fmt"
	"time"

	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/config"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/datastore"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/journal"
	"go.uber.org/zap"
)

const dbConnectAttempts = 60

func setupDatabase(step int) error {
	fmt.Printf("[%v/%v] connect data store", step, totalSteps)
	if !config.Configuration.Journal.Enabled {
		fmt.Print("	[SKIP]\n")
		return nil
	}

	var err error
	for i := 0; i < dbConnectAttempts; i++ {
		if i > 0 {
			fmt.Printf("\r[%v/%v] connect(%v) data store", step, totalSteps, i)
			time.Sleep(1 * time.Second)
		}

		if err = datastore.Open(config.Configuration.DB); err == nil {
			break
		}
		logging.Logger.Warn("Unable to open data store", zap.Int("attempt", i+1), zap.Error(err))
	}
	if err != nil {
		logging.Logger.Error("Failed to connect to the database. Shutting the server down")
		return err
	}

	if err := journal.Migrate(); err != nil {
		return fmt.Errorf("error while migrating schema: %v", err)
	}
	fmt.Print("	[OK]\n")
	return nil
}
