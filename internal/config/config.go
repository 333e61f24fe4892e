package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "config/config.yaml"

type Config struct {
	Env         string         `yaml:"env" env:"ENV" env-default:"prod"`
	HTTP        HTTPConfig     `yaml:"http"`
	Log         LogConfig      `yaml:"log"`
	HDDNames    []string       `yaml:"hdd_names" env:"HDD_NAMES" env-separator:","`
	PingTargets []string       `yaml:"ping_targets" env:"PING_TARGETS" env-separator:","`
	Refresh     RefreshConfig  `yaml:"refresh"`
	Commands    CommandsConfig `yaml:"commands"`
	Store       StoreConfig    `yaml:"store"`
}

type HTTPConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT" env-default:"23629"`
}

func (c HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

type RefreshConfig struct {
	// Timeout is the retrieve budget of every cached source.
	Timeout time.Duration `yaml:"timeout" env:"REFRESH_TIMEOUT" env-default:"100ms"`
	// Interval enables a background refresh loop. Zero disables it.
	Interval time.Duration `yaml:"interval" env:"REFRESH_INTERVAL" env-default:"0s"`
}

type CommandsConfig struct {
	Sensors  string        `yaml:"sensors" env-default:"sensors"`
	Hdparm   string        `yaml:"hdparm" env-default:"hdparm"`
	SkipSudo bool          `yaml:"skip_sudo" env:"SKIP_SUDO"`
	Zpool    string        `yaml:"zpool" env-default:"zpool"`
	Ping     string        `yaml:"ping" env-default:"ping"`
	Timeout  time.Duration `yaml:"timeout" env:"COMMAND_TIMEOUT" env-default:"0s"`
}

type StoreConfig struct {
	Enabled bool   `yaml:"enabled" env:"STORE_ENABLED" env-default:"false"`
	Path    string `yaml:"path" env:"STORE_PATH" env-default:"/var/lib/hostmon/state.db"`
}

// Load reads configuration from configPath, CONFIG_PATH, or the default
// location, in that order. A missing default file is not an error: the
// configuration then comes from the environment alone.
func Load(configPath string) (*Config, error) {
	explicit := true
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = defaultConfigPath
		explicit = false
	}

	var cfg Config

	if _, err := os.Stat(configPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from env: %w", err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return &cfg, nil
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}
