package main

import (
	"fmt"

	"github.com/0chain/stitcher/code/go/0chain.net/core/common"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/config"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/filestore"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/journal"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/retention"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/transfer"
)

func setupTransferService() (*transfer.Service, error) {
	fmt.Printf("[6/%v] setup transfer service", totalSteps)
	opts := transfer.Options{
		MaxChunksPerTransfer: config.Configuration.MaxChunksPerTransfer,
		NumWorkers:           config.Configuration.Assembly.NumWorkers,
		InflightSize:         config.Configuration.Assembly.InflightSize,
	}
	if config.Configuration.Journal.Enabled {
		opts.Recorder = journal.RecordAsync
	}

	svc, err := transfer.NewService(common.GetRootContext(), filestore.GetFileStore(), opts)
	if err != nil {
		return nil, err
	}
	fmt.Print("	[OK]\n")
	return svc, nil
}

func setupWorkers() {
	var root = common.GetRootContext()

	var prune retention.Pruner
	if config.Configuration.Journal.Enabled {
		prune = journal.Prune
	}

	cfg := config.Configuration.Retention
	sweeper := retention.NewSweeper(filestore.GetFileStore(), cfg.Window, cfg.NumWorkers, prune)
	retention.SetupWorkers(root, sweeper, cfg.Interval)
}
