package main

import (
	"fmt"

	"github.com/0chain/errors"
	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/config"
)

func setupLogging() {
	fmt.Printf("[3/%v] init logging", totalSteps)

	if config.Development() {
		logging.InitLogging("development", logDir, "0chainStitcher.log")
	} else {
		logging.InitLogging("production", logDir, "0chainStitcher.log")
	}

	// trace ids for errors.ThrowLog
	errors.InitLogger(logging.Logger)
	fmt.Print("		[OK]\n")
}
