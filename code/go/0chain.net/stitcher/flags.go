package main

import (
	"flag"
	"fmt"
)

var (
	deploymentMode int
	filesDir       string
	logDir         string
	httpPort       int
	configDir      string
)

func init() {
	flag.IntVar(&deploymentMode, "deployment_mode", 2, "deployment mode: 0=dev,1=test, 2=mainnet")
	flag.StringVar(&filesDir, "files_dir", "", "files_dir")
	flag.StringVar(&logDir, "log_dir", "", "log_dir")
	flag.IntVar(&httpPort, "port", 0, "port")
	flag.StringVar(&configDir, "config_dir", "./config", "config_dir")
}

func parseFlags() {
	fmt.Printf("[1/%v] load flags", totalSteps)
	flag.Parse()

	if httpPort <= 0 {
		panic("Please specify --port which is the port on which requests are accepted")
	}
	fmt.Print("		[OK]\n")
}
