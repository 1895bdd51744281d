package main

import (
	"fmt"

	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/config"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/filestore"
	"go.uber.org/zap"
)

func setupFileStore() error {
	fmt.Printf("[4/%v] setup file store", totalSteps)
	fs, err := filestore.NewFileStore(
		config.Configuration.Storage.FilesDir,
		config.Configuration.Digest.Algorithm,
		filestore.WithMaxChunkSize(config.Configuration.MaxChunkSize),
	)
	if err != nil {
		return err
	}

	filestore.SetFileStore(fs)
	logging.Logger.Info("File store ready",
		zap.String("mount_point", fs.MountPoint()),
		zap.String("digest", fs.Algorithm()),
		zap.Uint64("disk_free", fs.GetCurrentDiskCapacity()))
	fmt.Print("		[OK]\n")
	return nil
}
