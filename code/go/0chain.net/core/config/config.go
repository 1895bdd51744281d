package config

/*Config - all the config options passed from the command line*/
type Config struct {
	Host           string
	Port           int
	DeploymentMode byte
}

var Configuration Config
