package main

import (
	"fmt"

	"github.com/0chain/stitcher/code/go/0chain.net/core/logging"
	"github.com/0chain/stitcher/code/go/0chain.net/stitchercore/config"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func setupConfig(configDir string, deploymentMode int) {
	fmt.Printf("[2/%v] load config", totalSteps)
	// setup default
	config.SetupDefaultConfig()

	// setup config file
	config.SetupConfig(configDir)

	if filesDir != "" {
		viper.Set("storage.files_dir", filesDir)
	}

	if err := config.ReadConfig(); err != nil {
		panic(err)
	}

	if config.Configuration.Storage.FilesDir == "" {
		panic("Please specify --files_dir or storage.files_dir where chunks and artifacts can be stored")
	}

	config.Configuration.DeploymentMode = byte(deploymentMode)
	config.Configuration.Port = httpPort

	config.WatchConfig(onConfigChange)
	fmt.Print("		[OK]\n")
}

// onConfigChange applies the settings that are safe to change at runtime.
func onConfigChange(e fsnotify.Event) {
	lvl := viper.GetString("logging.level")
	if err := logging.SetLevel(lvl); err != nil {
		logging.Logger.Error("Invalid logging level in config", zap.String("level", lvl), zap.Error(err))
		return
	}
	logging.Logger.Info("Config file changed", zap.String("file", e.Name), zap.String("logging.level", logging.Level().String()))
}
