package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/0chain/stitcher/code/go/0chain.net/core/config"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	DeploymentDevelopment = 0
	DeploymentTestNet     = 1
	DeploymentMainNet     = 2
)

// SetupDefaultConfig - setup the default config options that can be overridden via the config file
func SetupDefaultConfig() {
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.console", false)

	viper.SetDefault("digest.algorithm", "sha256")
	viper.SetDefault("max_chunks_per_transfer", 100000)
	viper.SetDefault("max_chunk_size", 64*1024*1024)

	viper.SetDefault("assembly.num_workers", 4)
	viper.SetDefault("assembly.inflight_size", 4096)

	viper.SetDefault("retention.window", "24h")
	viper.SetDefault("retention.interval", "1h")
	viper.SetDefault("retention.num_workers", 5)

	viper.SetDefault("journal.enabled", false)
	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db.sqlite_path", "")

	viper.SetDefault("rate_limiters.chunk_rps", 200)
	viper.SetDefault("rate_limiters.status_rps", 20)
	viper.SetDefault("rate_limiters.download_rps", 5)
	viper.SetDefault("rate_limiters.general_rps", 5)
	viper.SetDefault("rate_limiters.default_token_expire_duration", "5m")
}

/*SetupConfig - setup the configuration system */
func SetupConfig(configPath string) {
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()
	viper.SetConfigName("0chain_stitcher")

	if configPath == "" {
		viper.AddConfigPath("./config")
	} else {
		viper.AddConfigPath(configPath)
	}

	err := viper.ReadInConfig() // Find and read the config file
	if err != nil {             // Handle errors reading the config file
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	Configuration.Config = &config.Configuration
}

// ReadConfig decodes the loaded viper settings into Configuration.
func ReadConfig() error {
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))

	if err := viper.Unmarshal(&Configuration, hook); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	if Configuration.Config == nil {
		Configuration.Config = &config.Configuration
	}
	return Configuration.Validate()
}

// WatchConfig re-reads the config file whenever it changes on disk and
// calls onChange with the event.
func WatchConfig(onChange func(e fsnotify.Event)) {
	viper.OnConfigChange(onChange)
	viper.WatchConfig()
}

type StorageConfig struct {
	// FilesDir is the shared volume holding chunks, artifacts and staging files.
	FilesDir string `mapstructure:"files_dir"`
}

type DigestConfig struct {
	Algorithm string `mapstructure:"algorithm"`
}

type AssemblyConfig struct {
	NumWorkers   int `mapstructure:"num_workers"`
	InflightSize int `mapstructure:"inflight_size"`
}

type RetentionConfig struct {
	Window     time.Duration `mapstructure:"window"`
	Interval   time.Duration `mapstructure:"interval"`
	NumWorkers int           `mapstructure:"num_workers"`
}

type JournalConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type DBConfig struct {
	Driver     string `mapstructure:"driver"`
	SqlitePath string `mapstructure:"sqlite_path"`
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	Name       string `mapstructure:"name"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password" json:"-"`
}

type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password" json:"-"`
}

type RateLimitConfig struct {
	ChunkRPS    float64 `mapstructure:"chunk_rps"`
	StatusRPS   float64 `mapstructure:"status_rps"`
	DownloadRPS float64 `mapstructure:"download_rps"`
	GeneralRPS  float64 `mapstructure:"general_rps"`
	Proxy       bool    `mapstructure:"proxy"`

	DefaultTokenExpireDuration time.Duration `mapstructure:"default_token_expire_duration"`
}

type Config struct {
	*config.Config `mapstructure:"-"`

	Storage StorageConfig `mapstructure:"storage"`
	Digest  DigestConfig  `mapstructure:"digest"`

	// MaxChunksPerTransfer bounds the total a client may declare.
	MaxChunksPerTransfer int `mapstructure:"max_chunks_per_transfer"`
	// MaxChunkSize bounds a single chunk payload in bytes.
	MaxChunkSize int64 `mapstructure:"max_chunk_size"`

	Assembly     AssemblyConfig  `mapstructure:"assembly"`
	Retention    RetentionConfig `mapstructure:"retention"`
	Journal      JournalConfig   `mapstructure:"journal"`
	DB           DBConfig        `mapstructure:"db"`
	RateLimiters RateLimitConfig `mapstructure:"rate_limiters"`
	// Admin guards the /_stats endpoint; an empty username disables it.
	Admin AdminConfig `mapstructure:"admin"`
}

// Validate checks the values the services cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.MaxChunksPerTransfer < 1:
		return fmt.Errorf("max_chunks_per_transfer must be positive, got %d", c.MaxChunksPerTransfer)
	case c.MaxChunkSize < 1:
		return fmt.Errorf("max_chunk_size must be positive, got %d", c.MaxChunkSize)
	case c.Retention.Window <= 0:
		return fmt.Errorf("retention.window must be positive, got %v", c.Retention.Window)
	case c.Retention.Interval <= 0:
		return fmt.Errorf("retention.interval must be positive, got %v", c.Retention.Interval)
	case c.Assembly.NumWorkers < 1:
		return fmt.Errorf("assembly.num_workers must be positive, got %d", c.Assembly.NumWorkers)
	}
	return nil
}

/*Configuration of the system */
var Configuration Config

/*TestNet is the program running in TestNet mode? */
func TestNet() bool {
	return Configuration.Config != nil && Configuration.DeploymentMode == DeploymentTestNet
}

/*Development - is the programming running in development mode? */
func Development() bool {
	return Configuration.Config != nil && Configuration.DeploymentMode == DeploymentDevelopment
}
